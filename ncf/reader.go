package ncf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// AllRows asks ReadRows for every row from start to the end of the file.
const AllRows = -1

type readerState int

const (
	stateUnopened readerState = iota
	stateHeaderRead
	stateMetadataRead
	stateReady
	stateClosed
)

// Reader decodes an NCF file. It owns its source and closes it on Close, or
// immediately if construction fails. A Reader is not safe for concurrent use.
type Reader struct {
	src     io.ReadSeeker
	size    int64
	header  Header
	columns []ColumnMetadata
	byName  map[string]int
	state   readerState
}

// Open opens the NCF file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return NewReader(f)
}

// NewReader parses the header and column metadata of src. If src is an
// io.Closer it is closed when parsing fails.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	r := &Reader{src: src, state: stateUnopened}
	if err := r.open(); err != nil {
		_ = r.closeSource()
		return nil, err
	}
	r.state = stateReady
	return r, nil
}

func (r *Reader) open() error {
	size, err := r.src.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to determine size: %w", err)
	}
	r.size = size
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}

	headerBytes := make([]byte, HeaderSize)
	if err := r.readFull(headerBytes, "header"); err != nil {
		return err
	}
	header, err := parseHeader(headerBytes)
	if err != nil {
		return err
	}
	r.header = header
	r.state = stateHeaderRead

	var prefix [8]byte
	if err := r.readFull(prefix[:], "metadata prefix"); err != nil {
		return err
	}
	metadataLen := int64(binary.BigEndian.Uint32(prefix[0:4]))
	columnCount := int(int32(binary.BigEndian.Uint32(prefix[4:8])))
	if columnCount < 0 {
		return fmt.Errorf("%w: negative column count %d", ErrFormat, columnCount)
	}
	if metadataLen > r.size-HeaderSize-8 {
		return fmt.Errorf("%w: metadata length %d exceeds file size %d", ErrFormat, metadataLen, r.size)
	}

	metadata := make([]byte, metadataLen)
	if err := r.readFull(metadata, "column metadata"); err != nil {
		return err
	}

	r.columns = make([]ColumnMetadata, 0, columnCount)
	r.byName = make(map[string]int, columnCount)
	off := 0
	for i := 0; i < columnCount; i++ {
		meta, next, err := unmarshalColumnMetadata(metadata, off)
		if err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		if meta.Offset < 0 || meta.Length < 0 || meta.Offset+meta.Length > r.size {
			return fmt.Errorf("%w: column %q block [%d, %d) outside file of %d bytes",
				ErrFormat, meta.Name, meta.Offset, meta.Offset+meta.Length, r.size)
		}
		r.byName[meta.Name] = len(r.columns)
		r.columns = append(r.columns, meta)
		off = next
	}
	r.state = stateMetadataRead
	return nil
}

func (r *Reader) readFull(buf []byte, what string) error {
	if _, err := io.ReadFull(r.src, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%s: %w", what, ErrTruncated)
		}
		return fmt.Errorf("failed to read %s: %w", what, err)
	}
	return nil
}

// Header returns the parsed file header.
func (r *Reader) Header() Header {
	return r.header
}

// RowCount returns the number of rows in the file.
func (r *Reader) RowCount() int {
	return int(r.header.RowCount)
}

// Columns returns column metadata in file order.
func (r *Reader) Columns() []ColumnMetadata {
	out := make([]ColumnMetadata, len(r.columns))
	copy(out, r.columns)
	return out
}

// Column looks up the metadata of one column.
func (r *Reader) Column(name string) (ColumnMetadata, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ColumnMetadata{}, false
	}
	return r.columns[i], true
}

// ReadColumn decodes every value of the named column; nulls are nil.
func (r *Reader) ReadColumn(name string) ([]interface{}, error) {
	if r.state != stateReady {
		return nil, ErrClosed
	}
	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return r.readColumn(r.columns[i])
}

func (r *Reader) readColumn(meta ColumnMetadata) ([]interface{}, error) {
	if _, err := r.src.Seek(meta.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("column %q: failed to seek: %w", meta.Name, err)
	}
	data := make([]byte, meta.Length)
	if err := r.readFull(data, fmt.Sprintf("column %q", meta.Name)); err != nil {
		return nil, err
	}

	values, err := decodeColumn(data, meta, r.RowCount())
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", meta.Name, err)
	}
	return values, nil
}

// ReadRows rebuilds count rows starting at start. Pass AllRows to read to
// the end of the file. Every column is decoded in full regardless of the
// range requested.
func (r *Reader) ReadRows(start, count int) ([]map[string]interface{}, error) {
	if r.state != stateReady {
		return nil, ErrClosed
	}

	total := r.RowCount()
	if total == 0 && start == 0 && (count == 0 || count == AllRows) {
		return []map[string]interface{}{}, nil
	}
	if start < 0 || start >= total {
		return nil, fmt.Errorf("%w: invalid start index %d (rows=%d)", ErrRowRange, start, total)
	}
	if count == AllRows {
		count = total - start
	}
	if count < 0 || start+count > total {
		return nil, fmt.Errorf("%w: invalid count %d from start %d (rows=%d)", ErrRowRange, count, start, total)
	}

	decoded := make([][]interface{}, len(r.columns))
	for i, meta := range r.columns {
		values, err := r.readColumn(meta)
		if err != nil {
			return nil, err
		}
		decoded[i] = values
	}

	rows := make([]map[string]interface{}, 0, count)
	for i := start; i < start+count; i++ {
		row := make(map[string]interface{}, len(r.columns))
		for c, meta := range r.columns {
			row[meta.Name] = decoded[c][i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadAll is ReadRows(0, AllRows).
func (r *Reader) ReadAll() ([]map[string]interface{}, error) {
	return r.ReadRows(0, AllRows)
}

// Close releases the source. It is safe to call Close more than once.
func (r *Reader) Close() error {
	if r.state == stateClosed {
		return nil
	}
	r.state = stateClosed
	return r.closeSource()
}

func (r *Reader) closeSource() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
