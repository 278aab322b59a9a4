package ncf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// metadataFixedSize is the per-record size excluding the name bytes:
// nameLen(2) + type(1) + offset(8) + length(8) + nullable(1).
const metadataFixedSize = 2 + 1 + 8 + 8 + 1

// ColumnMetadata locates and describes one column's encoded block.
type ColumnMetadata struct {
	Name     string
	Type     DataType
	Offset   int64 // absolute file offset of the first encoded byte
	Length   int64 // encoded block length in bytes
	Nullable bool  // block starts with a null bitmap
}

// EncodedSize is the number of bytes MarshalBinary produces.
func (m ColumnMetadata) EncodedSize() int {
	return metadataFixedSize + len(m.Name)
}

// MarshalBinary encodes the record as
// nameLen(u16) | name | type(u8) | offset(i64) | length(i64) | nullable(u8).
func (m ColumnMetadata) MarshalBinary() ([]byte, error) {
	if len(m.Name) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: column name is %d bytes (max %d)", ErrUsage, len(m.Name), math.MaxUint16)
	}

	buf := make([]byte, m.EncodedSize())
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(m.Name)))
	pos := 2 + copy(buf[2:], m.Name)
	buf[pos] = byte(m.Type)
	binary.BigEndian.PutUint64(buf[pos+1:pos+9], uint64(m.Offset))
	binary.BigEndian.PutUint64(buf[pos+9:pos+17], uint64(m.Length))
	if m.Nullable {
		buf[pos+17] = 1
	}
	return buf, nil
}

// unmarshalColumnMetadata decodes one record starting at off and returns
// the offset of the record that follows it.
func unmarshalColumnMetadata(data []byte, off int) (ColumnMetadata, int, error) {
	c := &cursor{data: data, pos: off}

	nameLenBytes, err := c.next(2)
	if err != nil {
		return ColumnMetadata{}, 0, fmt.Errorf("column metadata name length: %w", err)
	}
	nameBytes, err := c.next(int(binary.BigEndian.Uint16(nameLenBytes)))
	if err != nil {
		return ColumnMetadata{}, 0, fmt.Errorf("column metadata name: %w", err)
	}
	rest, err := c.next(metadataFixedSize - 2)
	if err != nil {
		return ColumnMetadata{}, 0, fmt.Errorf("column %q metadata: %w", string(nameBytes), err)
	}

	typ, err := DataTypeFromCode(rest[0])
	if err != nil {
		return ColumnMetadata{}, 0, fmt.Errorf("column %q: %w", string(nameBytes), err)
	}

	meta := ColumnMetadata{
		Name:     string(nameBytes),
		Type:     typ,
		Offset:   int64(binary.BigEndian.Uint64(rest[1:9])),
		Length:   int64(binary.BigEndian.Uint64(rest[9:17])),
		Nullable: rest[17] != 0,
	}
	return meta, c.pos, nil
}
