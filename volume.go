// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import "bytes"

// fvSignatureOffset is the distance in bytes between the start of a firmware
// volume header and its `_FVH` signature (16-byte zero vector, 16-byte
// filesystem GUID, 8-byte volume length). The constant is specific to this
// container's header layout and is asserted, not derived: the decomposer is
// constructed from data[signature-fvSignatureOffset:].
const fvSignatureOffset = 40

// fvSignature marks a candidate firmware volume header.
var fvSignature = []byte("_FVH")

// searchFirmwareVolumes scans data for the firmware volume signature and
// returns every occurrence in ascending order. The offsets are candidates
// only; header validation is the decomposer's job.
func searchFirmwareVolumes(data []byte) []int {
	var offsets []int
	for pos := 0; ; {
		idx := bytes.Index(data[pos:], fvSignature)
		if idx < 0 {
			break
		}
		offsets = append(offsets, pos+idx)
		pos += idx + len(fvSignature)
	}
	return offsets
}

// Volume is one candidate firmware volume handed to the external decomposer.
// It mirrors the decomposer's own contract: validate the header, parse the
// internal file/section table, then dump every contained file's sections as
// .raw files (plus UI display-name sections as .ui files) into a directory
// tree of per-file subdirectories.
type Volume interface {
	// ValidHeader reports whether the volume header is well formed.
	ValidHeader() bool

	// Size returns the declared size of the volume in bytes.
	Size() int64

	// Process parses the internal file/section table and reports success.
	Process() bool

	// Dump writes every contained file's sections into dir.
	Dump(dir string) error
}

// VolumeDecomposer constructs a [Volume] from a byte slice beginning at a
// candidate volume header. This package consumes the decomposer's contract
// and never reimplements it; the firmware-volume container format stays an
// external concern.
type VolumeDecomposer interface {
	NewVolume(data []byte, name string) (Volume, error)
}
