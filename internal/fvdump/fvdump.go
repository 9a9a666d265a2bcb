// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package fvdump adapts an external uefi-firmware-parser compatible command
// line tool to the [imagefv.VolumeDecomposer] contract. Parsing the firmware
// volume container (header validation beyond the signature probe, walking
// the internal file/section table, dumping sections) happens entirely in the
// external process; this package only stages volume bytes in a temporary
// file and invokes the tool on them.
package fvdump

import (
	"bytes"
	"encoding/binary"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	imagefv "github.com/uefitools/go-imagefv"
)

const (
	// fvSignatureOffset is where the `_FVH` signature sits within a
	// firmware volume header: 16-byte zero vector, 16-byte filesystem
	// GUID, 8-byte volume length.
	fvSignatureOffset = 40

	// fvHeaderLen is the fixed size of the volume header up to and
	// including the revision byte.
	fvHeaderLen = 56
)

var fvSignature = []byte("_FVH")

// Decomposer satisfies [imagefv.VolumeDecomposer] by shelling out to an
// external dump tool.
type Decomposer struct {
	tool string
}

// New returns a Decomposer driving the dump tool at the given path or name.
func New(tool string) *Decomposer {
	return &Decomposer{tool: tool}
}

// NewVolume wraps a candidate volume starting at data[0]. The data is held
// by reference and staged to disk only when the external tool runs.
func (d *Decomposer) NewVolume(data []byte, name string) (imagefv.Volume, error) {
	if len(data) == 0 {
		return nil, errors.New("empty volume data")
	}
	return &volume{tool: d.tool, data: data, name: name}, nil
}

type volume struct {
	tool string
	data []byte
	name string
}

// ValidHeader performs the cheap local sanity gate before a subprocess is
// paid for: signature at its fixed offset and a declared length that fits
// the available bytes. Full validation remains the external tool's job.
func (v *volume) ValidHeader() bool {
	if len(v.data) < fvHeaderLen {
		return false
	}
	if !bytes.Equal(v.data[fvSignatureOffset:fvSignatureOffset+len(fvSignature)], fvSignature) {
		return false
	}
	size := binary.LittleEndian.Uint64(v.data[32:40])
	return size >= fvHeaderLen && size <= uint64(len(v.data))
}

// Size returns the volume length declared in the header.
func (v *volume) Size() int64 {
	if len(v.data) < fvSignatureOffset {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(v.data[32:40]))
}

// Process dry-runs the external parser over the staged volume.
func (v *volume) Process() bool {
	tmp, err := v.stage()
	if err != nil {
		return false
	}
	defer os.Remove(tmp)

	return exec.Command(v.tool, "--test", tmp).Run() == nil
}

// Dump has the external tool extract every contained file's sections into
// dir, producing the per-file directory tree the walker consumes.
func (v *volume) Dump(dir string) error {
	tmp, err := v.stage()
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	out, err := exec.Command(v.tool, "--extract", "--output", dir, tmp).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "dump tool failed: %s", bytes.TrimSpace(out))
	}
	return nil
}

// stage writes the volume bytes to a temporary file for the external tool.
// Only the declared volume length is written, the tail of the input blob
// past the volume is not the tool's business.
func (v *volume) stage() (string, error) {
	f, err := os.CreateTemp("", "fv-*.bin")
	if err != nil {
		return "", errors.Wrap(err, "cannot create staging file")
	}

	data := v.data
	if size := v.Size(); size > 0 && size < int64(len(data)) {
		data = data[:size]
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(err, "cannot stage volume")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "cannot stage volume")
	}
	return f.Name(), nil
}
