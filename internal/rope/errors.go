package rope

import "github.com/cockroachdb/errors"

// Errors returned by rope operations. Call sites wrap these with the
// offending values; test with errors.Is.
var (
	// ErrIndexOutOfRange indicates an offset outside the valid range for the operation.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrRangeOutOfBounds indicates a range that extends past the end of the rope.
	ErrRangeOutOfBounds = errors.New("range out of bounds")

	// ErrSelfConcat indicates an attempt to concatenate a rope with itself.
	ErrSelfConcat = errors.New("cannot concatenate a rope with itself")
)

func indexError(idx, length int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, length)
}

func rangeError(idx, n, length int) error {
	return errors.Wrapf(ErrRangeOutOfBounds, "range [%d, %d+%d), length %d", idx, idx, n, length)
}
