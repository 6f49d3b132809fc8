// Package sst implements a power-failure-safe file system for small objects
// stored directly in raw flash blocks.
//
// The first two physical blocks hold the metadata: a header, a table mapping
// logical data blocks to physical blocks, and a fixed-size file table. Only one
// of them is active at a time. Every update is staged in the other one, along
// with a scratch data block, and made durable by writing the header with an
// incremented swap count as the very last step. If power is lost before that,
// the next [Prepare] finds the old metadata block still active and the partial
// update is discarded.
//
// Logical data block 0 shares the metadata block, using whatever space the
// metadata doesn't. If the flash area has four or more blocks, the rest are
// dedicated data blocks with one of them kept erased as the scratch block.
package sst
