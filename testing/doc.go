// Package testing provides flash devices and fixtures for tests of the file
// system and the layers built on it. Import it as sstest to avoid clashing
// with the standard library's testing package.
package testing
