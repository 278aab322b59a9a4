package ncf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// metadataSlotSize is the scratch space reserved per column for its
// metadata record. Records longer than this get a larger slot.
const metadataSlotSize = 100

// writePhase is a step of the reserve-then-backfill protocol used by Write.
type writePhase int

const (
	phaseIdle writePhase = iota
	phaseReserveHeader
	phaseReserveMetadata
	phaseWriteColumns
	phaseBackfillHeader
	phaseBackfillMetadata
	phaseDone
)

func (p writePhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseReserveHeader:
		return "reserve header"
	case phaseReserveMetadata:
		return "reserve metadata"
	case phaseWriteColumns:
		return "write columns"
	case phaseBackfillHeader:
		return "backfill header"
	case phaseBackfillMetadata:
		return "backfill metadata"
	case phaseDone:
		return "done"
	default:
		return fmt.Sprintf("writePhase(%d)", int(p))
	}
}

// column is the in-memory accumulator for one column.
type column struct {
	name   string
	typ    DataType
	values []interface{}
}

// Writer accumulates rows column by column and serializes them as one NCF
// file. A Writer is not safe for concurrent use.
type Writer struct {
	compression string
	columns     []*column
	index       map[string]*column
	rowCount    int
	now         func() time.Time
	phase       writePhase
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock overrides the clock used for the header's creation time.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter creates an empty writer. The compression label is recorded in
// the header only; column bytes are stored as-is.
func NewWriter(compression string, opts ...WriterOption) *Writer {
	w := &Writer{
		compression: compression,
		index:       make(map[string]*column),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RowCount returns the number of rows added so far.
func (w *Writer) RowCount() int {
	return w.rowCount
}

// ColumnNames returns column names in insertion order.
func (w *Writer) ColumnNames() []string {
	names := make([]string, len(w.columns))
	for i, col := range w.columns {
		names[i] = col.name
	}
	return names
}

// ColumnType returns the current type of a column.
func (w *Writer) ColumnType(name string) (DataType, bool) {
	col, ok := w.index[name]
	if !ok {
		return 0, false
	}
	return col.typ, true
}

// AddColumn declares a column ahead of the rows that populate it. Rows
// already added read as null in the new column.
func (w *Writer) AddColumn(name string, typ DataType) error {
	if _, exists := w.index[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: column %q: %v", ErrUsage, name, typ)
	}
	if len(name) > math.MaxUint16 {
		return fmt.Errorf("%w: column name is %d bytes (max %d)", ErrUsage, len(name), math.MaxUint16)
	}

	col := &column{
		name:   name,
		typ:    typ,
		values: make([]interface{}, w.rowCount, w.rowCount+1),
	}
	w.columns = append(w.columns, col)
	w.index[name] = col
	return nil
}

// AddRow appends one row. Fields without a column get one, typed from their
// value; columns the row does not mention receive a null.
//
// A column created from a null value is typed by the first non-null value
// that arrives later, and an INTEGER column becomes FLOAT when a float
// arrives (see Widen). Any other value whose kind disagrees with its column's
// type is rejected with ErrTypeMismatch and the row is not added.
func (w *Writer) AddRow(row map[string]interface{}) error {
	if w.rowCount == math.MaxInt32 {
		return fmt.Errorf("%w: row count limit %d reached", ErrUsage, math.MaxInt32)
	}

	promote := make(map[string]DataType)
	var newNames []string
	for name, v := range row {
		col, exists := w.index[name]
		if !exists {
			if len(name) > math.MaxUint16 {
				return fmt.Errorf("%w: column name is %d bytes (max %d)", ErrUsage, len(name), math.MaxUint16)
			}
			newNames = append(newNames, name)
			continue
		}
		if v == nil {
			continue
		}
		if col.typ.accepts(v) {
			continue
		}
		typ, ok := Widen(col.typ, InferDataType(v))
		if !ok {
			return fmt.Errorf("%w: column %q is %s, got %T", ErrTypeMismatch, name, col.typ, v)
		}
		promote[name] = typ
	}

	// Insertion order within a single row follows field name order so files
	// are reproducible for the same input.
	sort.Strings(newNames)
	for _, name := range newNames {
		if err := w.AddColumn(name, InferDataType(row[name])); err != nil {
			return err
		}
	}
	for name, typ := range promote {
		w.index[name].typ = typ
	}

	for _, col := range w.columns {
		col.values = append(col.values, row[col.name])
	}
	w.rowCount++
	return nil
}

// Write serializes everything added so far to sink, starting at the sink's
// current position.
//
// The header and metadata depend on content that is only known after the
// column blocks are written, so Write reserves space for them first, streams
// the columns, then seeks back and fills the reserved regions in. Callers
// must not write to sink concurrently.
func (w *Writer) Write(sink io.WriteSeeker) error {
	w.phase = phaseIdle
	if err := w.write(sink); err != nil {
		return fmt.Errorf("ncf write (%s): %w", w.phase, err)
	}
	return nil
}

func (w *Writer) write(sink io.WriteSeeker) error {
	w.phase = phaseReserveHeader
	headerPos, err := sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := sink.Write(make([]byte, HeaderSize)); err != nil {
		return err
	}

	w.phase = phaseReserveMetadata
	metadataPos := headerPos + HeaderSize
	var prefix [8]byte
	binary.BigEndian.PutUint32(prefix[4:8], uint32(len(w.columns)))
	if _, err := sink.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := sink.Write(make([]byte, w.metadataReservation())); err != nil {
		return err
	}

	w.phase = phaseWriteColumns
	metas := make([]ColumnMetadata, 0, len(w.columns))
	var block bytes.Buffer
	for _, col := range w.columns {
		offset, err := sink.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}

		block.Reset()
		nullable, err := encodeColumn(&block, col.typ, col.values)
		if err != nil {
			return fmt.Errorf("column %q: %w", col.name, err)
		}
		if _, err := sink.Write(block.Bytes()); err != nil {
			return fmt.Errorf("column %q: %w", col.name, err)
		}

		metas = append(metas, ColumnMetadata{
			Name:     col.name,
			Type:     col.typ,
			Offset:   offset,
			Length:   int64(block.Len()),
			Nullable: nullable,
		})
	}

	w.phase = phaseBackfillHeader
	header := Header{
		ColumnCount: int32(len(w.columns)),
		RowCount:    int32(w.rowCount),
		CreatedAt:   w.now().UnixMilli(),
		Compression: w.compression,
	}
	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := sink.Seek(headerPos, io.SeekStart); err != nil {
		return err
	}
	if _, err := sink.Write(headerBytes); err != nil {
		return err
	}

	w.phase = phaseBackfillMetadata
	var records bytes.Buffer
	for _, meta := range metas {
		b, err := meta.MarshalBinary()
		if err != nil {
			return err
		}
		records.Write(b)
	}
	binary.BigEndian.PutUint32(prefix[0:4], uint32(records.Len()))
	if _, err := sink.Seek(metadataPos, io.SeekStart); err != nil {
		return err
	}
	if _, err := sink.Write(prefix[0:4]); err != nil {
		return err
	}
	// The column count written during reservation is already final.
	if _, err := sink.Seek(4, io.SeekCurrent); err != nil {
		return err
	}
	if _, err := sink.Write(records.Bytes()); err != nil {
		return err
	}

	if _, err := sink.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	w.phase = phaseDone
	return nil
}

// metadataReservation sizes the placeholder region so the real records
// always fit before the first column block.
func (w *Writer) metadataReservation() int {
	total := 0
	for _, col := range w.columns {
		size := metadataFixedSize + len(col.name)
		if size < metadataSlotSize {
			size = metadataSlotSize
		}
		total += size
	}
	return total
}
