// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

import (
	"context"
	"io"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The thresholds are heuristic policy, not structural requirements: sections
// below the small threshold are assumed to be already-final images, and only
// sections above the large threshold are scanned for concatenated gzip
// members. They are configurable so boundary behavior can be exercised
// without multi-megabyte fixtures.
type Config struct {
	// decomposer parses and dumps firmware volumes; it is an external
	// collaborator and never implemented in this package
	decomposer VolumeDecomposer

	// logger stream for extraction
	logger logger

	// sectionDirPrefix is the decomposer's naming prefix for per-file
	// directories in its dump tree
	sectionDirPrefix string

	// smallSectionThreshold is the size in bytes below which a section is
	// written verbatim without any decompression attempt
	smallSectionThreshold int

	// largeSectionThreshold is the size in bytes above which a section is
	// scanned for concatenated gzip members
	largeSectionThreshold int

	// telemetryHook is a function to consume telemetry data after an
	// input image has been processed
	telemetryHook TelemetryHook

	// uiSectionName is the file name of the UI display-name section within
	// a per-file dump directory
	uiSectionName string
}

// Decomposer returns the configured firmware-volume decomposer.
func (c *Config) Decomposer() VolumeDecomposer {
	return c.decomposer
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// SectionDirPrefix returns the decomposer's per-file directory name prefix.
func (c *Config) SectionDirPrefix() string {
	return c.sectionDirPrefix
}

// SmallSectionThreshold returns the size in bytes below which a section is
// written verbatim.
func (c *Config) SmallSectionThreshold() int {
	return c.smallSectionThreshold
}

// LargeSectionThreshold returns the size in bytes above which a section is
// scanned for concatenated gzip members.
func (c *Config) LargeSectionThreshold() int {
	return c.largeSectionThreshold
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return func(ctx context.Context, td *TelemetryData) {
			// noop
		}
	}
	return c.telemetryHook
}

// UISectionName returns the file name of the UI display-name section.
func (c *Config) UISectionName() string {
	return c.uiSectionName
}

const (
	defaultSectionDirPrefix      = "file-" // decomposer per-file directory naming convention
	defaultSmallSectionThreshold = 1 << 20 // 1 MiB
	defaultLargeSectionThreshold = 1 << 20 // 1 MiB
	defaultUISectionName         = "section0.ui"
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, td *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		logger:                defaultLogger,
		sectionDirPrefix:      defaultSectionDirPrefix,
		smallSectionThreshold: defaultSmallSectionThreshold,
		largeSectionThreshold: defaultLargeSectionThreshold,
		telemetryHook:         defaultTelemetryHook,
		uiSectionName:         defaultUISectionName,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithDecomposer options pattern function to set the external
// firmware-volume decomposer.
func WithDecomposer(d VolumeDecomposer) ConfigOption {
	return func(c *Config) {
		c.decomposer = d
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithSectionDirPrefix options pattern function to set the decomposer's
// per-file directory naming prefix. The prefix is a documented contract of
// the external decomposer, not something this package derives.
func WithSectionDirPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		if len(prefix) > 0 {
			c.sectionDirPrefix = prefix
		}
	}
}

// WithSmallSectionThreshold options pattern function to set the size in
// bytes below which sections are written verbatim without decompression.
func WithSmallSectionThreshold(bytes int) ConfigOption {
	return func(c *Config) {
		c.smallSectionThreshold = bytes
	}
}

// WithLargeSectionThreshold options pattern function to set the size in
// bytes above which sections are scanned for concatenated gzip members.
func WithLargeSectionThreshold(bytes int) ConfigOption {
	return func(c *Config) {
		c.largeSectionThreshold = bytes
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook],
// which is called after each input image has been processed.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithUISectionName options pattern function to set the file name of the UI
// display-name section within a per-file dump directory.
func WithUISectionName(name string) ConfigOption {
	return func(c *Config) {
		if len(name) > 0 {
			c.uiSectionName = name
		}
	}
}
