package imagefile

import (
	"fmt"
	"io"
)

// maxRunLength is the longest run a single RLE8 group can represent.
const maxRunLength = 257

// EncodeRLE8 run-length encodes `data`.
func EncodeRLE8(data []byte) []byte {
	output := make([]byte, 0, len(data)/4)

	for i := 0; i < len(data); {
		value := data[i]
		runLength := 1
		for i+runLength < len(data) && data[i+runLength] == value && runLength < maxRunLength {
			runLength++
		}

		if runLength == 1 {
			output = append(output, value)
		} else {
			output = append(output, value, value, byte(runLength-2))
		}
		i += runLength
	}
	return output
}

// DecodeRLE8 expands RLE8-encoded data.
func DecodeRLE8(encoded []byte) ([]byte, error) {
	output := make([]byte, 0, len(encoded)*2)

	for i := 0; i < len(encoded); i++ {
		value := encoded[i]
		output = append(output, value)

		if i+1 >= len(encoded) || encoded[i+1] != value {
			continue
		}

		// Two of the same byte in a row; the one after is the repeat count.
		if i+2 >= len(encoded) {
			return nil, fmt.Errorf(
				"%w: missing repeat count after two %02x bytes at offset %d",
				io.ErrUnexpectedEOF,
				value,
				i)
		}
		for n := 0; n <= int(encoded[i+2]); n++ {
			output = append(output, value)
		}
		i += 2
	}
	return output, nil
}
