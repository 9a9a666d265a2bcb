// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"context"
	"encoding/json"
	"time"
)

// TelemetryData holds all telemetry data of one input image's extraction.
type TelemetryData struct {
	// VolumesFound is the number of firmware volume candidates located in the input
	VolumesFound int64 `json:"volumes_found"`

	// VolumesProcessed is the number of volumes that were valid and dumped
	VolumesProcessed int64 `json:"volumes_processed"`

	// SectionsProcessed is the number of raw sections routed through the extractor
	SectionsProcessed int64 `json:"sections_processed"`

	// ArchivesExtracted is the number of archives carved out of multi-stream sections
	ArchivesExtracted int64 `json:"archives_extracted"`

	// ExtractionErrors is the number of errors during extraction
	ExtractionErrors int64 `json:"extraction_errors"`

	// ExtractionDuration is the time it took to process the input image
	ExtractionDuration time.Duration `json:"extraction_duration"`

	// ExtractionSize is the total size of the extracted files
	ExtractionSize int64 `json:"extraction_size"`

	// InputSize is the size of the input image
	InputSize int64 `json:"input_size"`

	// LastExtractionError is the last error during extraction
	LastExtractionError error `json:"last_extraction_error"`
}

// String returns a string representation of [TelemetryData].
func (td TelemetryData) String() string {
	b, _ := json.Marshal(td)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (td TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if td.LastExtractionError != nil {
		lastError = td.LastExtractionError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastExtractionError string `json:"last_extraction_error"`
		*Alias
	}{
		LastExtractionError: lastError,
		Alias:               (*Alias)(&td),
	})
}

// TelemetryHook is a function type that performs operations on [TelemetryData]
// after an input image has been processed, which can be used to submit the
// data to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)
