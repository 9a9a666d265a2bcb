// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// copyBufferSize is the chunk size used when streaming a decompressed
// member to disk instead of materializing it in memory.
const copyBufferSize = 1 << 20

// findGzipOffsets scans data for every occurrence of the gzip magic and
// returns the offsets in ascending order. The scan is purely syntactic:
// spurious matches that are not valid members are included and weeded out
// later by decodeGzipBounded. That split keeps the scanner cheap and lets
// the splitter simply skip boundaries that fail to decode.
func findGzipOffsets(data []byte) []int {
	var offsets []int
	for pos := 0; ; {
		idx := bytes.Index(data[pos:], magicBytesGZip[0])
		if idx < 0 {
			break
		}
		offsets = append(offsets, pos+idx)
		pos += idx + 1
	}
	return offsets
}

// decodeGzipBounded decompresses the single gzip member at data[start:end].
// A negative end means the member extends to the end of the buffer. The
// member has no declared length, so the bound comes from the caller, which
// knows where the next candidate member begins.
//
// Invalid streams, truncated streams and streams that inflate to zero bytes
// are all the same outcome for the caller: no member at this offset.
func decodeGzipBounded(data []byte, start, end int) ([]byte, error) {
	if start < 0 || start > len(data) {
		return nil, fmt.Errorf("offset 0x%x out of range", start)
	}
	member := data[start:]
	if end >= 0 {
		if end < start || end > len(data) {
			return nil, fmt.Errorf("bound 0x%x out of range", end)
		}
		member = data[start:end]
	}

	src, err := gzip.NewReader(bytes.NewReader(member))
	if err != nil {
		return nil, fmt.Errorf("cannot open gzip member at offset 0x%x: %w", start, err)
	}
	defer src.Close()

	// trailing bytes after the member are the next candidate's business
	src.Multistream(false)

	decompressed, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("cannot decompress gzip member at offset 0x%x: %w", start, err)
	}
	if len(decompressed) == 0 {
		return nil, fmt.Errorf("gzip member at offset 0x%x is empty", start)
	}
	return decompressed, nil
}

// decompressGzipToFile streams the whole buffer through a gzip decoder into
// dst. Used when a section is exactly one gzip stream, where spooling to
// disk beats holding the decompressed payload in memory.
func decompressGzipToFile(data []byte, dst string) (int64, error) {
	src, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("cannot open gzip stream: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("cannot create %s: %w", dst, err)
	}

	n, err := io.CopyBuffer(out, src, make([]byte, copyBufferSize))
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("cannot decompress gzip stream: %w", err)
	}
	if n == 0 {
		os.Remove(dst)
		return 0, fmt.Errorf("gzip stream decompressed to zero bytes")
	}
	return n, nil
}
