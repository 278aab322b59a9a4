// Package reader loads rows from NCF, Parquet and JSON Lines files.
//
// The format is chosen from the file itself: NCF and Parquet files are
// recognized by their magic bytes, JSON Lines by a .jsonl or .ndjson
// extension. Every format yields rows as map[string]interface{}, ready for
// the query package.
//
// # Basic Usage
//
//	reader, err := reader.NewReader("events-2024-05-01.ncf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	rows, err := reader.ReadAll()
//
// # Multi-file Operations
//
//	rows, err := reader.ReadMultipleFiles("data/ncf/events-*.ncf")
//
// Each row read through a glob pattern includes a "_file" column with the
// source file path.
//
// # Schema Introspection
//
// ExtractSchemaInfo reports column names and types for NCF and Parquet
// files. For NCF it also reports where each column block sits in the file.
package reader
