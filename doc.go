// Package imagefv recovers raster images and compressed archives embedded in
// UEFI firmware-volume file sections.
//
// The firmware-volume container format itself is parsed by an external
// decomposer, consumed through the [VolumeDecomposer] interface. This package
// classifies the raw section blobs the decomposer dumps: a section is either a
// single file, one gzip member, or many gzip members packed back-to-back with
// no container metadata. Concatenated members are carved by scanning for the
// gzip magic and attempting a bounded decode at every candidate boundary.
//
// Configuration is done using [Config] in an option pattern style, which
// carries the logger, the telemetry hook, the decomposer and the section size
// thresholds. Telemetry data is captured per input image as [TelemetryData].
package imagefv
