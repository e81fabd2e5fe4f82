package compress

import (
	"errors"
	"fmt"
)

// ErrUnknownCompression is returned for an unregistered algorithm name.
var ErrUnknownCompression = errors.New("unknown compression")

// Compress transforms blobs before they are written to storage.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	// Name is persisted next to each blob so it can be read back after the
	// configured algorithm changes.
	Name() string
}

// FromName returns the compressor registered under name. The empty name
// resolves to Nop.
func FromName(name string) (Compress, error) {
	switch name {
	case "", "none", "nop":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "lz4":
		return NewLZ4(), nil
	case "zstd":
		return NewZstd(), nil
	case "brotli":
		return NewBrotli(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}
