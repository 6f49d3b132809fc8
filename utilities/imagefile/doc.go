// Package imagefile reads and writes flash images stored on the host.
//
// Images can be stored raw or compressed. A mostly empty flash area is mostly
// long runs of erased (0xFF) bytes, so compressed images are first run-length
// encoded and then gzipped, which gets far better results than gzip alone.
//
// The run-length encoding is RLE8: if a byte B occurs N >= 2 times in a row, B
// is written twice followed by a byte giving the number of additional times it
// occurred (N - 2). Runs longer than 257 bytes are split. For example:
//
//	AFFFFFFFFB  ->  A FF 6 B
//	AFFB        ->  A FF 0 B
package imagefile
