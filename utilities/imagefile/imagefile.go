package imagefile

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// CompressedSuffix marks image files that are stored compressed.
const CompressedSuffix = ".gz"

// IsCompressed returns true if the image at `path` is stored compressed.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// Compress writes `image` to `output` run-length encoded and gzipped. It
// returns the number of bytes written to `output`.
func Compress(image []byte, output io.Writer) (int64, error) {
	counter := &countingWriter{writer: output}
	gzWriter, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}

	_, err = gzWriter.Write(EncodeRLE8(image))
	if err != nil {
		gzWriter.Close()
		return counter.written, err
	}
	err = gzWriter.Close()
	return counter.written, err
}

// Decompress reads a compressed image from `input` and returns the raw bytes.
func Decompress(input io.Reader) ([]byte, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return nil, fmt.Errorf("image isn't gzipped: %w", err)
	}
	defer gzReader.Close()

	encoded, err := io.ReadAll(gzReader)
	if err != nil {
		return nil, err
	}
	return DecodeRLE8(encoded)
}

// Load reads the image at `path`, decompressing it if needed.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return data, nil
	}

	image, err := Decompress(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %q: %w", path, err)
	}
	return image, nil
}

// Save writes `image` to `path`, compressing it if the path ends with
// [CompressedSuffix].
func Save(path string, image []byte) error {
	if !IsCompressed(path) {
		return os.WriteFile(path, image, 0o644)
	}

	var buffer bytes.Buffer
	_, err := Compress(image, &buffer)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buffer.Bytes(), 0o644)
}

type countingWriter struct {
	writer  io.Writer
	written int64
}

func (w *countingWriter) Write(data []byte) (int, error) {
	n, err := w.writer.Write(data)
	w.written += int64(n)
	return n, err
}
