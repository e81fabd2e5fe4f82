package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd encoders and decoders are safe for concurrent use through
// EncodeAll/DecodeAll, so one pair is shared by every Zstd value.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

type Zstd struct {
}

func NewZstd() Zstd {
	return Zstd{}
}

func (z Zstd) Encode(data []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(data, nil), nil
}

func (z Zstd) Decode(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

func (z Zstd) Name() string {
	return "zstd"
}
