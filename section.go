// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions are label extensions that short-circuit the router: a
// section already named like an image is final content and is written
// verbatim, whatever its size.
var imageExtensions = map[string]bool{
	".bmp": true,
	".gif": true,
	".jpg": true,
	".png": true,
}

// extractFromSection routes one section's bytes to the matching extraction
// strategy and returns the resulting output path, or "" if nothing could be
// persisted. The policy is evaluated in order:
//
//  1. image-named label or small section: write verbatim under the output root
//  2. gzip-prefixed: decompress the whole buffer as one stream
//  3. large with more than one gzip candidate: carve into numbered archives
//  4. otherwise: write verbatim into the section's subdirectory
//
// A failed decompression in step 2 falls through the remaining steps so the
// original bytes are never lost. Write failures are logged and contained to
// this section.
func (e *Extractor) extractFromSection(td *TelemetryData, label string, data []byte, outputSubdir string) string {
	log := e.cfg.Logger()

	if imageExtensions[strings.ToLower(filepath.Ext(label))] || len(data) < e.cfg.SmallSectionThreshold() {
		outputPath := filepath.Join(e.outputDir, label)
		if err := os.WriteFile(outputPath, data, 0640); err != nil {
			e.recordError(td, "cannot save section", err, "label", label)
			return ""
		}
		log.Info("extracted section", "label", label, "size", len(data))
		td.ExtractionSize += int64(len(data))
		return outputPath
	}

	if err := os.MkdirAll(outputSubdir, 0750); err != nil {
		e.recordError(td, "cannot create section directory", err, "label", label)
		return ""
	}

	if isGZip(data) {
		extractedPath := filepath.Join(outputSubdir, label+".extracted")
		log.Info("detected gzip compression", "label", label)

		if n, err := decompressGzipToFile(data, extractedPath); err == nil {
			log.Info("extracted gzip section", "label", label, "output", filepath.Base(extractedPath), "size", n)
			td.ExtractionSize += n
			return extractedPath
		} else {
			log.Warn("cannot decompress gzip section", "label", label, "error", err)
		}
	}

	if len(data) > e.cfg.LargeSectionThreshold() {
		if offsets := findGzipOffsets(data); len(offsets) > 1 {
			log.Info("detected multiple gzip streams", "label", label, "candidates", len(offsets))
			e.splitSection(td, label, data, outputSubdir)
			return filepath.Join(outputSubdir, label)
		}
	}

	outputPath := filepath.Join(outputSubdir, label)
	if err := os.WriteFile(outputPath, data, 0640); err != nil {
		e.recordError(td, "cannot save section", err, "label", label)
		return ""
	}
	log.Info("extracted raw section", "label", label, "size", len(data))
	td.ExtractionSize += int64(len(data))
	return outputPath
}
