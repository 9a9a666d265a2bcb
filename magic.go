// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import "bytes"

const (
	// fileKindBinary is the fallback kind for content that matches no
	// known signature. Not a failure, just unidentified bytes.
	fileKindBinary = "bin"

	// fileKindGZip is the kind for gzip compressed content.
	fileKindGZip = "gz"
)

// magicSignature maps a fixed byte prefix to a file kind, which doubles as
// the file extension of carved archives.
type magicSignature struct {
	prefix []byte
	kind   string
}

// magicSignatures is the ordered signature table. The prefixes do not
// overlap, so scan order does not change the result.
var magicSignatures = []magicSignature{
	{[]byte{0x7f, 'E', 'L', 'F'}, "elf"},
	{[]byte{0x1f, 0x8b}, fileKindGZip},
	{[]byte("BM"), "bmp"},
	{[]byte{0x89, 'P', 'N', 'G'}, "png"},
	{[]byte("GIF"), "gif"},
	{[]byte("PK\x03\x04"), "zip"},
	{[]byte("BZh"), "bz2"},
	{[]byte("<?xml"), "xml"},
	{[]byte("<"), "xml"},
	{[]byte{0xff, 0xd8, 0xff, 0xe0}, "jpg"},
	{[]byte{0xff, 0xd8, 0xff, 0xe1}, "jpg"},
}

// classifyHeader determines the file kind from the first bytes of a file.
// A header shorter than the signatures it is checked against simply cannot
// match them; there is no error path.
func classifyHeader(header []byte) string {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(header, sig.prefix) {
			return sig.kind
		}
	}
	return fileKindBinary
}

// magicBytesGZip are the magic bytes for gzip compressed streams.
var magicBytesGZip = [][]byte{
	{0x1f, 0x8b},
}

// isGZip checks if the header matches the magic bytes for gzip compressed streams.
func isGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	// check all possible magic bytes until match is found
	for _, mb := range magicBytes {
		// check if header is long enough
		if offset+len(mb) > len(data) {
			continue
		}

		// check for byte match
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}

	// no match found
	return false
}
