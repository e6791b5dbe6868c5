// Package serialization reads and writes the .kiln checkpoint format.
//
// A .kiln file carries the parameter state of a model, optionally
// together with training-run metadata so a run can resume where it
// stopped:
//
//	Layout:
//	  [4 bytes:  magic "KILN"]
//	  [1 byte:   format version]
//	  [3 bytes:  reserved, zero]
//	  [8 bytes:  header size (uint64 LE)]
//	  [header:   JSON metadata]
//	  [padding to a 64-byte boundary]
//	  [data:     raw tensor bytes, offsets per header]
//	  [32 bytes: SHA-256 of the data section]
//
// Tensor bytes are stored in parameter order, so two saves of the same
// model produce identical data sections. The trailing checksum is
// verified on every read; a file that fails it is rejected with
// ErrChecksumMismatch before any tensor is materialized.
package serialization
