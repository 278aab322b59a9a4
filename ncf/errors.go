package ncf

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one
// of them, so callers can branch with errors.Is.
var (
	// ErrFormat marks bytes that are not a valid NCF file.
	ErrFormat = errors.New("ncf: format error")

	// ErrUsage marks a call the codec refuses to perform.
	ErrUsage = errors.New("ncf: usage error")
)

var (
	// ErrBadMagic is returned when the header does not start with Magic.
	ErrBadMagic = fmt.Errorf("%w: magic bytes mismatch", ErrFormat)

	// ErrUnknownDataType is returned for a data type code outside 0..7.
	ErrUnknownDataType = fmt.Errorf("%w: unknown data type", ErrFormat)

	// ErrTruncated is returned when a block ends before its declared content.
	ErrTruncated = fmt.Errorf("%w: truncated data", ErrFormat)

	// ErrDuplicateColumn is returned by AddColumn for an existing name.
	ErrDuplicateColumn = fmt.Errorf("%w: column already exists", ErrUsage)

	// ErrUnknownColumn is returned by ReadColumn for a name not in the file.
	ErrUnknownColumn = fmt.Errorf("%w: column does not exist", ErrUsage)

	// ErrRowRange is returned by ReadRows for an out-of-range start or count.
	ErrRowRange = fmt.Errorf("%w: row range out of bounds", ErrUsage)

	// ErrTypeMismatch is returned by AddRow when a value cannot be stored
	// under the type its column was created with.
	ErrTypeMismatch = fmt.Errorf("%w: value does not match column type", ErrUsage)

	// ErrClosed is returned by reads on a closed Reader.
	ErrClosed = fmt.Errorf("%w: reader is closed", ErrUsage)
)
