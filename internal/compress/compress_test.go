package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("abstract"),
		bytes.Repeat([]byte("research objectives and methodology "), 512),
	}

	for _, name := range []string{"none", "gzip", "lz4", "zstd", "brotli"} {
		c, err := FromName(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())

		for _, payload := range payloads {
			encoded, err := c.Encode(payload)
			require.NoError(t, err, name)

			decoded, err := c.Decode(encoded)
			require.NoError(t, err, name)
			assert.Equal(t, len(payload), len(decoded), name)
			assert.True(t, bytes.Equal(payload, decoded), name)
		}
	}
}

func TestCompress_Shrinks(t *testing.T) {
	payload := bytes.Repeat([]byte("grant proposal background "), 1024)
	for _, c := range []Compress{NewGZip(), NewLZ4(), NewZstd(), NewBrotli()} {
		encoded, err := c.Encode(payload)
		require.NoError(t, err)
		assert.Less(t, len(encoded), len(payload), c.Name())
	}
}

func TestFromName(t *testing.T) {
	c, err := FromName("")
	require.NoError(t, err)
	assert.Equal(t, "none", c.Name())

	_, err = FromName("snappy")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
