package ncf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// Magic opens every NCF file.
	Magic = "NCF1"

	// HeaderSize is the fixed header width. It never changes, so the header
	// can be reserved first and rewritten in place once counts are known.
	HeaderSize = 28

	// MaxCompressionLabel is the room left for the label after the fixed
	// fields: magic(4) + columns(4) + rows(4) + createdAt(8) + labelLen(2).
	MaxCompressionLabel = HeaderSize - 22
)

// Header is the fixed-width file preamble.
type Header struct {
	ColumnCount int32
	RowCount    int32
	CreatedAt   int64 // unix milliseconds
	Compression string
}

// Created returns CreatedAt as a UTC time.
func (h Header) Created() time.Time {
	return time.UnixMilli(h.CreatedAt).UTC()
}

// MarshalBinary encodes the header into exactly HeaderSize bytes. Labels
// longer than MaxCompressionLabel are cut at a rune boundary.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.ColumnCount))
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.RowCount))
	binary.BigEndian.PutUint64(buf[12:20], uint64(h.CreatedAt))

	label := truncateLabel(h.Compression)
	binary.BigEndian.PutUint16(buf[20:22], uint16(len(label)))
	copy(buf[22:], label)
	return buf, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	if !bytes.Equal(data[0:4], []byte(Magic)) {
		return Header{}, fmt.Errorf("%w: got %q", ErrBadMagic, data[0:4])
	}

	labelLen := int(binary.BigEndian.Uint16(data[20:22]))
	if labelLen > MaxCompressionLabel {
		return Header{}, fmt.Errorf("%w: compression label length %d exceeds %d", ErrFormat, labelLen, MaxCompressionLabel)
	}

	h := Header{
		ColumnCount: int32(binary.BigEndian.Uint32(data[4:8])),
		RowCount:    int32(binary.BigEndian.Uint32(data[8:12])),
		CreatedAt:   int64(binary.BigEndian.Uint64(data[12:20])),
		Compression: string(data[22 : 22+labelLen]),
	}
	if h.ColumnCount < 0 || h.RowCount < 0 {
		return Header{}, fmt.Errorf("%w: negative count (columns=%d rows=%d)", ErrFormat, h.ColumnCount, h.RowCount)
	}
	return h, nil
}

func truncateLabel(label string) string {
	if len(label) <= MaxCompressionLabel {
		return label
	}
	cut := MaxCompressionLabel
	for cut > 0 && !utf8.RuneStart(label[cut]) {
		cut--
	}
	return label[:cut]
}
