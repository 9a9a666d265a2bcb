// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package imagefv

// Registry records the output path of every successfully extracted unit of
// one extraction run, keyed by the section label, plus `<label>_raw` and
// `<label>_archive_<n>` keys for carved multi-archive sections.
//
// The registry is last-write-wins: two sections that derive the same label
// silently replace each other's entry, even though both output files remain
// on disk. Callers that need every path should walk the output directory
// instead. The registry is only ever written by the goroutine performing
// the extraction; it is not safe for concurrent use.
type Registry struct {
	entries map[string]string
}

// NewRegistry returns an empty result registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]string)}
}

// Set records path under key, replacing any earlier entry for key.
func (r *Registry) Set(key, path string) {
	r.entries[key] = path
}

// Get returns the recorded path for key.
func (r *Registry) Get(key string) (string, bool) {
	path, ok := r.entries[key]
	return path, ok
}

// Len returns the number of recorded entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the key to path mapping.
func (r *Registry) Entries() map[string]string {
	out := make(map[string]string, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}
