// Package car implements a sans-I/O codec for CAR (Content Addressable
// aRchive) files: incremental parsers and serializers for CARv1, CARv2,
// and a version-autodetecting unified Reader, plus the LEB128 varint and
// CID-framing primitives they share.
//
// Every type here performs no I/O of its own. Callers feed bytes in via
// ReceiveData at the bytes' absolute offset in the stream and drive
// ReadHeader / ReadSection / FindSection, retrying whenever a call returns
// *carv1.InsufficientData. This lets the same parsing logic run identically
// against a file, a network socket, or a byte slice already fully in
// memory — see package carfile for an mmap-backed driver.
package car
