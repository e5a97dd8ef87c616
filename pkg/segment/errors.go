package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrDataMismatch is matched by every DataMismatchError.
	ErrDataMismatch = errors.New("answer text does not match sentence")

	// ErrInvalidIndex is matched by every InvalidIndexError.
	ErrInvalidIndex = errors.New("break index out of range")

	ErrUnknownStrategy = errors.New("unknown break strategy")
)

// DataMismatchError signals that the canonical answer, once separators are
// removed, is not the exercise sentence. Results derived from such an answer
// cannot be trusted.
type DataMismatchError struct {
	Sentence string
	Stripped string
}

func (e *DataMismatchError) Error() string {
	return fmt.Sprintf("%s: sentence %q, answer %q", ErrDataMismatch, e.Sentence, e.Stripped)
}

func (e *DataMismatchError) Is(target error) bool {
	return target == ErrDataMismatch
}

// InvalidIndexError is a break index outside [0, Len-2].
type InvalidIndexError struct {
	Index int
	Len   int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("%s: %d not in [0, %d]", ErrInvalidIndex, e.Index, e.Len-2)
}

func (e *InvalidIndexError) Is(target error) bool {
	return target == ErrInvalidIndex
}

// CheckIndex returns an InvalidIndexError when i is not a gap of a sentence
// with n characters.
func CheckIndex(i, n int) error {
	if i < 0 || i > n-2 {
		return &InvalidIndexError{Index: i, Len: n}
	}
	return nil
}
