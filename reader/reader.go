package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/ncfstore/internal/rowjson"
	"github.com/vegasq/ncfstore/ncf"
)

// Format identifies the file layout a Reader decodes.
type Format int

const (
	FormatNCF Format = iota
	FormatParquet
	FormatJSONL
)

func (f Format) String() string {
	switch f {
	case FormatNCF:
		return "ncf"
	case FormatParquet:
		return "parquet"
	case FormatJSONL:
		return "jsonl"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ErrUnknownFormat is returned for files that are neither NCF, Parquet nor
// JSON Lines.
var ErrUnknownFormat = errors.New("unrecognized file format")

var parquetMagic = []byte("PAR1")

// DetectFormat identifies a file by its leading magic bytes. Files with a
// .jsonl or .ndjson extension are JSON Lines.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return 0, fmt.Errorf("%w: %s is too short", ErrUnknownFormat, path)
	}

	switch {
	case bytes.Equal(magic, []byte(ncf.Magic)):
		return FormatNCF, nil
	case bytes.Equal(magic, parquetMagic):
		return FormatParquet, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Reader reads a single file and returns its rows as maps.
type Reader struct {
	path   string
	format Format
	ncf    *ncf.Reader
	file   *os.File
	pqFile *parquet.File
	closed bool
}

// NewReader opens path, picking the decoder from the file contents.
//
// Example:
//
//	reader, err := NewReader("events-2024-05-01.ncf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
func NewReader(path string) (*Reader, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{path: path, format: format}
	switch format {
	case FormatNCF:
		r.ncf, err = ncf.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ncf file: %w", err)
		}
	case FormatParquet:
		r.file, r.pqFile, err = openParquet(path)
		if err != nil {
			return nil, err
		}
	case FormatJSONL:
		r.file, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
	}
	return r, nil
}

// Format reports how the file is decoded.
func (r *Reader) Format() Format {
	return r.format
}

// NCF returns the underlying NCF reader, or nil for other formats.
func (r *Reader) NCF() *ncf.Reader {
	return r.ncf
}

// ReadAll reads all rows into memory.
func (r *Reader) ReadAll() ([]map[string]interface{}, error) {
	switch r.format {
	case FormatNCF:
		return r.ncf.ReadAll()
	case FormatParquet:
		return readParquetRows(r.pqFile)
	case FormatJSONL:
		if _, err := r.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind %s: %w", r.path, err)
		}
		return rowjson.ReadLines(r.file)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, r.format)
	}
}

// Close releases the file. It is safe to call Close multiple times.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.ncf != nil {
		return r.ncf.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadFile opens path, reads every row and closes it.
func ReadFile(path string) ([]map[string]interface{}, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}

	rows, readErr := r.ReadAll()
	closeErr := r.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return rows, nil
}

// maxFiles limits how many files one glob pattern may expand to.
const maxFiles = 1000

// ReadMultipleFiles reads all rows from the files matching a glob pattern.
//
// Examples:
//   - "data/*.ncf" - all NCF files in data directory
//   - "data/ncf/events-2024-*.ncf" - one year of daily event files
//   - "data/*.parquet" - parquet files
//
// When the pattern contains wildcards each row is tagged with a "_file"
// column holding its source path. A plain path is read as a single file and
// its rows are returned untouched.
func ReadMultipleFiles(pattern string) ([]map[string]interface{}, error) {
	if !strings.ContainsAny(pattern, "*?[]{}") {
		return ReadFile(pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}

	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}

	var allRows []map[string]interface{}
	for _, filePath := range matches {
		rows, err := ReadFile(filePath)
		if err != nil {
			return nil, err
		}

		for i := range rows {
			rows[i]["_file"] = filePath
		}

		allRows = append(allRows, rows...)
	}

	return allRows, nil
}
