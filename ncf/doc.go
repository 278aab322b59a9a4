// Package ncf reads and writes NCF, a single-file columnar format.
//
// A file is laid out as
//
//	header (28 bytes) | metadata length (u32) | column count (u32) |
//	metadata records | column blocks
//
// All integers are big-endian. Each column block holds an optional null
// bitmap followed by the column's non-null values in row order. Writer
// collects rows in memory and serializes them in one pass over a seekable
// sink; Reader loads the header and metadata up front and decodes columns
// on demand.
package ncf
