// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"fmt"
	"os"
	"path/filepath"
)

// archivesDirName is the subdirectory holding the archives carved out of a
// multi-stream section.
const archivesDirName = "images"

// archiveJob describes one candidate gzip member within a section buffer.
// The member ends where the next candidate begins; the last one runs to the
// end of the buffer (next < 0).
type archiveJob struct {
	data   []byte
	label  string
	idx    int
	offset int
	next   int
	dst    string
}

// splitSection carves a section of concatenated gzip members into numbered
// archive files and returns the count of successfully extracted archives.
//
// The full raw section is persisted first, before any carving, so the
// original bytes survive even if every boundary below fails. Archive indexes
// are dense in scan order and zero-based; a boundary that fails to decode
// leaves a gap in the numbering rather than shifting later indexes.
func (e *Extractor) splitSection(td *TelemetryData, label string, data []byte, outputSubdir string) int {
	log := e.cfg.Logger()

	if err := os.MkdirAll(outputSubdir, 0750); err != nil {
		e.recordError(td, "cannot create section directory", err, "label", label)
		return 0
	}

	rawPath := filepath.Join(outputSubdir, label)
	if err := os.WriteFile(rawPath, data, 0640); err != nil {
		e.recordError(td, "cannot save raw section", err, "label", label)
		return 0
	}
	log.Info("saved raw section", "label", label, "size", len(data))
	e.registry.Set(label+"_raw", rawPath)

	offsets := findGzipOffsets(data)
	log.Info("located gzip stream candidates", "label", label, "count", len(offsets))
	if len(offsets) == 0 {
		return 0
	}

	archivesDir := filepath.Join(outputSubdir, archivesDirName)
	if err := os.MkdirAll(archivesDir, 0750); err != nil {
		e.recordError(td, "cannot create archives directory", err, "label", label)
		return 0
	}

	extracted := 0
	for idx, offset := range offsets {
		next := -1
		if idx+1 < len(offsets) {
			next = offsets[idx+1]
		}

		job := archiveJob{
			data:   data,
			label:  label,
			idx:    idx,
			offset: offset,
			next:   next,
			dst:    filepath.Join(archivesDir, fmt.Sprintf("archive_%04d.bin", idx)),
		}
		if e.extractArchive(td, job) {
			extracted++
		} else {
			log.Debug("cannot extract gzip member", "label", label, "offset", fmt.Sprintf("0x%08x", offset))
		}
	}

	log.Info("extracted archives", "label", label, "count", extracted)
	return extracted
}

// extractArchive decodes one bounded gzip member, persists it, retypes it
// from its on-disk header and renames it to carry the discovered extension.
func (e *Extractor) extractArchive(td *TelemetryData, job archiveJob) bool {
	log := e.cfg.Logger()

	decompressed, err := decodeGzipBounded(job.data, job.offset, job.next)
	if err != nil {
		// expected for spurious magic matches, low severity
		log.Debug("skipping gzip candidate", "offset", fmt.Sprintf("0x%08x", job.offset), "error", err)
		return false
	}

	if err := os.WriteFile(job.dst, decompressed, 0640); err != nil {
		e.recordError(td, "cannot save archive", err, "offset", fmt.Sprintf("0x%08x", job.offset))
		return false
	}

	// read the header back from disk: the persisted file is the unit being
	// typed, not the in-memory buffer
	kind, err := classifyFile(job.dst)
	if err != nil {
		e.recordError(td, "cannot classify archive", err, "offset", fmt.Sprintf("0x%08x", job.offset))
		return false
	}

	betterPath := filepath.Join(filepath.Dir(job.dst), fmt.Sprintf("archive_%04d.%s", job.idx, kind))
	if err := os.Rename(job.dst, betterPath); err != nil {
		e.recordError(td, "cannot rename archive", err, "offset", fmt.Sprintf("0x%08x", job.offset))
		return false
	}

	log.Info("extracted archive",
		"index", job.idx,
		"offset", fmt.Sprintf("0x%08x", job.offset),
		"name", filepath.Base(betterPath),
		"size_mb", fmt.Sprintf("%.1f", float64(len(decompressed))/1024/1024))

	e.registry.Set(fmt.Sprintf("%s_archive_%d", job.label, job.idx), betterPath)
	td.ArchivesExtracted++
	td.ExtractionSize += int64(len(decompressed))
	return true
}

// classifyFile determines the file kind from the first bytes of the file at
// path.
func classifyFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hr, err := newHeaderReader(f, maxHeaderLength)
	if err != nil {
		return "", err
	}
	return classifyHeader(hr.PeekHeader()), nil
}
