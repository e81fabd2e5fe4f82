package codec

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Blob is the canonical serialized form of a proposal's sections.
type Blob []byte

// Fingerprint is a 32-byte BLAKE3 digest of a Blob.
type Fingerprint [32]byte

// fingerprintKey separates proposal content hashes from any other BLAKE3
// use. Changing it invalidates every stored fingerprint.
var fingerprintKey = [32]byte{
	'g', 'r', 'a', 'n', 't', 'c', 'o', 'r', 'e', '.', 's', 'e', 'c', 't', 'i', 'o',
	'n', 's', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// encMode uses core deterministic encoding: sorted map keys, shortest
// lengths, no indefinite items. The same map always yields the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: cbor encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		UTF8: cbor.UTF8RejectInvalid,
	}.DecMode()
	if err != nil {
		panic("codec: cbor decoder initialization failed: " + err.Error())
	}
}

// Encode serializes sections and fingerprints the result. Key order of the
// input map never affects the output.
func Encode(sections map[string]string) (Blob, Fingerprint, error) {
	for key, value := range sections {
		if !utf8.ValidString(key) {
			return nil, Fingerprint{}, &EncodingError{Key: key, Reason: "section name is not valid UTF-8"}
		}
		if !utf8.ValidString(value) {
			return nil, Fingerprint{}, &EncodingError{Key: key, Reason: "section text is not valid UTF-8"}
		}
	}

	if sections == nil {
		sections = map[string]string{}
	}

	data, err := encMode.Marshal(sections)
	if err != nil {
		return nil, Fingerprint{}, &EncodingError{Reason: err.Error()}
	}

	return Blob(data), Sum(data), nil
}

// Decode parses a blob produced by Encode.
func Decode(blob Blob) (map[string]string, error) {
	sections := make(map[string]string)
	if len(blob) == 0 {
		return sections, nil
	}
	if err := decMode.Unmarshal(blob, &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}

	return sections, nil
}

// Sum computes the fingerprint of already encoded bytes.
func Sum(data []byte) Fingerprint {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("codec: blake3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(data)

	var fp Fingerprint
	copy(fp[:], hasher.Sum(nil))
	return fp
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// ParseFingerprint parses the 64 character hex form returned by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("parsing fingerprint: %w", err)
	}
	if len(decoded) != len(fp) {
		return fp, fmt.Errorf("fingerprint is %d bytes, want %d", len(decoded), len(fp))
	}
	copy(fp[:], decoded)
	return fp, nil
}
