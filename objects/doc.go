// Package objects implements a key/value storage service on top of an SST file
// system. Each object is stored in its own file, optionally encrypted and
// authenticated with a key derived from a device root key.
package objects
