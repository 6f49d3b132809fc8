package imagefile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRLE8(t *testing.T) {
	tests := []struct {
		Name     string
		Input    []byte
		Expected []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"run with two only", []byte{4, 4}, []byte{4, 4, 0}},
		{"no runs", []byte{0, 1, 2, 3, 4}, []byte{0, 1, 2, 3, 4}},
		{"two at end", []byte{6, 1, 3, 0, 0}, []byte{6, 1, 3, 0, 0, 0}},
		{"three at end", []byte{6, 1, 0, 0, 0}, []byte{6, 1, 0, 0, 1}},
		{"short run", []byte{9, 5, 5, 5, 5, 5, 3, 7}, []byte{9, 5, 5, 3, 3, 7}},
		{
			"adjacent runs",
			[]byte{9, 5, 5, 5, 5, 5, 5, 3, 3, 3, 3, 7, 2, 6},
			[]byte{9, 5, 5, 4, 3, 3, 2, 7, 2, 6},
		},
		{
			"erased block",
			bytes.Repeat([]byte{0xff}, 1024),
			[]byte{0xff, 0xff, 255, 0xff, 0xff, 255, 0xff, 0xff, 255, 0xff, 0xff, 251},
		},
		{"257", bytes.Repeat([]byte{8}, 257), []byte{8, 8, 255}},
		{"258", bytes.Repeat([]byte{8}, 258), []byte{8, 8, 255, 8}},
		{"259", bytes.Repeat([]byte{8}, 259), []byte{8, 8, 255, 8, 8, 0}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			encoded := EncodeRLE8(test.Input)
			assert.Equal(t, test.Expected, encoded)

			decoded, err := DecodeRLE8(encoded)
			require.NoError(t, err)
			assert.Equal(t, test.Input, decoded)
		})
	}
}

func TestDecodeRLE8Truncated(t *testing.T) {
	_, err := DecodeRLE8([]byte{1, 2, 2})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
