package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding is returned when sections cannot be represented.
	ErrEncoding = errors.New("sections are not representable")
	// ErrCorruptBlob is returned when a stored blob fails to decode.
	ErrCorruptBlob = errors.New("content blob is corrupted")
)

// EncodingError names the section that could not be encoded.
type EncodingError struct {
	Key    string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%v: %s", ErrEncoding, e.Reason)
	}
	return fmt.Sprintf("%v: section %q: %s", ErrEncoding, e.Key, e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}
