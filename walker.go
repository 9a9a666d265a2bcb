// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// rawSectionSuffix is the decomposer's naming convention for dumped raw
// section files.
const rawSectionSuffix = ".raw"

// utf16LabelDecoder decodes the UTF-16LE display strings found in UI
// sections.
var utf16LabelDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ExtractDump routes every raw section under an existing decomposer dump
// tree, for callers that already ran the decomposer themselves. The
// telemetry hook fires once per call.
func (e *Extractor) ExtractDump(ctx context.Context, dumpRoot string) error {
	start := time.Now()
	td := &TelemetryData{}
	defer func() {
		td.ExtractionDuration = time.Since(start)
		e.cfg.TelemetryHook()(ctx, td)
	}()

	if _, err := os.Stat(dumpRoot); err != nil {
		return errors.Wrapf(err, "cannot access dump tree %s", dumpRoot)
	}
	e.walkSectionDump(td, dumpRoot)
	return nil
}

// walkSectionDump enumerates every raw section file under dumpRoot whose
// parent directory follows the decomposer's per-file naming convention,
// derives a label for it and routes its bytes through extractFromSection.
// Files outside recognized per-file directories are ignored. Per-file I/O
// errors skip only the affected file; the walk always continues.
func (e *Extractor) walkSectionDump(td *TelemetryData, dumpRoot string) {
	log := e.cfg.Logger()
	prefix := e.cfg.SectionDirPrefix()

	filepath.WalkDir(dumpRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("cannot access dump entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), rawSectionSuffix) {
			return nil
		}

		parentDir := filepath.Dir(path)
		parentName := filepath.Base(parentDir)
		if !strings.HasPrefix(parentName, prefix) {
			return nil
		}

		label := e.sectionLabel(parentDir)
		if label == "" {
			label = strings.ToLower(strings.TrimPrefix(parentName, prefix))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			e.recordError(td, "cannot read section", err, "path", path)
			return nil
		}
		td.SectionsProcessed++

		outputSubdir := filepath.Join(e.outputDir, label)
		if extracted := e.extractFromSection(td, label, data, outputSubdir); extracted != "" {
			e.registry.Set(label, extracted)
		}
		return nil
	})
}

// sectionLabel derives a human-readable label from the UI display-name
// section in parentDir. The UI section holds a UTF-16LE, NUL-terminated
// string; a decoded label shorter than 2 characters after trimming is
// treated as absent. Returns "" when no usable label exists, in which case
// the caller falls back to the directory-derived name.
func (e *Extractor) sectionLabel(parentDir string) string {
	log := e.cfg.Logger()

	uiPath := filepath.Join(parentDir, e.cfg.UISectionName())
	raw, err := os.ReadFile(uiPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug("cannot read UI section", "path", uiPath, "error", err)
		}
		return ""
	}
	if len(raw) <= 2 {
		return ""
	}

	decoded, err := utf16LabelDecoder.NewDecoder().Bytes(raw)
	if err != nil {
		// malformed label text degrades to the fallback, never fails the section
		log.Debug("cannot decode UI section", "path", uiPath, "error", err)
		return ""
	}

	label, _, _ := strings.Cut(string(decoded), "\x00")
	label = strings.TrimSpace(label)
	if len(label) < 2 {
		return ""
	}
	return label
}
