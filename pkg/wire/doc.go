// Package wire implements the binary and CBOR encodings of a hash.Hash and a
// length-prefixed stream of either.
//
// # Binary Format
//
// The binary format is self-describing: every value carries a one-byte type
// tag (the hash.Kind value) followed by its payload. Keys and attribute names
// are prefixed with a one-byte length, counts and lengths are little-endian
// u32. Insertion order and attributes survive a round trip.
//
// Decoding treats its input as untrusted. Counts are checked against the
// remaining input before anything is allocated, nesting is bounded by
// MaxDepth and every failure is an errs.CorruptData error carrying the byte
// offset where decoding stopped.
//
// # CBOR
//
// MarshalCBOR and UnmarshalCBOR carry the same tree as CBOR (RFC 8949). Each
// node is a four-element array [key, tag, value, attributes] so that order
// and attributes are preserved; the encoder is deterministic.
//
// # Streams
//
// Encoder and Decoder frame one hash per message behind a u32 length prefix.
// Both can record every frame to a log.Logger for later inspection.
package wire
