// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Extractor recovers images and archives from the firmware volumes embedded
// in input blobs and writes them, labeled, into its output directory. All
// work is synchronous and single-threaded; results are recorded in the
// extractor's [Registry].
type Extractor struct {
	cfg       *Config
	outputDir string
	registry  *Registry
}

// New creates an Extractor writing into outputDir, which is created if it
// does not exist. A nil cfg uses the defaults.
func New(outputDir string, cfg *Config) (*Extractor, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, errors.Wrapf(err, "cannot create output directory %s", outputDir)
	}
	return &Extractor{
		cfg:       cfg,
		outputDir: outputDir,
		registry:  NewRegistry(),
	}, nil
}

// Registry returns the result registry of this extractor.
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// ExtractImage processes one input firmware image: locate candidate volumes,
// hand each to the configured decomposer, dump its sections into a temporary
// directory scoped to this call, and route every dumped section. The
// temporary directory is removed when the call returns, success or not.
//
// Per-volume and per-section failures are logged and contained; an error is
// returned only when the input cannot be read, no volume candidate exists,
// or nothing at all was extracted. The telemetry hook fires once per call.
func (e *Extractor) ExtractImage(ctx context.Context, path string) error {
	log := e.cfg.Logger()

	start := time.Now()
	td := &TelemetryData{}
	defer func() {
		td.ExtractionDuration = time.Since(start)
		e.cfg.TelemetryHook()(ctx, td)
	}()

	dec := e.cfg.Decomposer()
	if dec == nil {
		return errors.New("no volume decomposer configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "cannot read input %s", path)
	}
	td.InputSize = int64(len(data))

	offsets := searchFirmwareVolumes(data)
	if len(offsets) == 0 {
		return errors.Errorf("no firmware volumes found in %s", path)
	}
	td.VolumesFound = int64(len(offsets))
	log.Info("found firmware volumes", "count", len(offsets))

	tmpDir, err := os.MkdirTemp("", "imagefv-*")
	if err != nil {
		return errors.Wrap(err, "cannot create dump directory")
	}
	defer os.RemoveAll(tmpDir)

	extractedBefore := e.registry.Len()
	for _, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("processing firmware volume", "offset", fmt.Sprintf("0x%x", offset))

		// the signature sits fvSignatureOffset bytes into the header, a
		// match closer to the start of the blob cannot be a whole volume
		if offset < fvSignatureOffset {
			log.Debug("signature too close to start of input", "offset", fmt.Sprintf("0x%x", offset))
			continue
		}
		e.processVolume(td, data[offset-fvSignatureOffset:], offset-fvSignatureOffset, tmpDir)
	}

	if e.registry.Len() == extractedBefore {
		return errors.Errorf("no sections extracted from %s", path)
	}
	return nil
}

// processVolume runs one candidate volume through the external decomposer
// and walks its dump on success. Failures are contained to this volume.
func (e *Extractor) processVolume(td *TelemetryData, data []byte, headerOffset int, tmpDir string) {
	log := e.cfg.Logger()
	name := fmt.Sprintf("0x%x", headerOffset)

	vol, err := e.cfg.Decomposer().NewVolume(data, name)
	if err != nil {
		e.recordError(td, "cannot construct volume", err, "offset", name)
		return
	}
	if !vol.ValidHeader() {
		log.Debug("invalid volume header", "offset", name)
		return
	}
	log.Info("volume header valid", "offset", name, "size", vol.Size())

	if !vol.Process() {
		log.Warn("cannot process volume", "offset", name)
		return
	}
	log.Info("volume processed, dumping sections", "offset", name)

	if err := vol.Dump(tmpDir); err != nil {
		e.recordError(td, "cannot dump volume", err, "offset", name)
		return
	}
	td.VolumesProcessed++

	e.walkSectionDump(td, tmpDir)
}

// recordError increases the error counter, sets the latest error and logs
// it. Extraction always continues; containment is the caller's business.
func (e *Extractor) recordError(td *TelemetryData, msg string, err error, keysAndValues ...interface{}) {
	td.ExtractionErrors++
	td.LastExtractionError = fmt.Errorf("%s: %w", msg, err)
	e.cfg.Logger().Error(msg, append(keysAndValues, "error", err)...)
}
