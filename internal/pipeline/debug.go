package pipeline

import (
	"sort"
	"sync"
)

// Artifact is a single captured intermediate pipeline output: a named,
// ordered snapshot any stage can hand to the DebugSink for inspection.
// Payload is left as interface{} because stages disagree on what's
// worth keeping — a grayscale mask, a raw []byte encoding, or a
// slice of features — rather than forcing everything through an
// image.Image the way a rendering pipeline would.
type Artifact struct {
	Stage       string // e.g. "preprocess", "color", "georef"
	Name        string // e.g. "flatfield_corrected", "bin_00012_mask"
	Description string
	Payload     interface{}
	ZOrder      int
}

// DebugSink optionally collects intermediate artifacts as the
// orchestrator runs a job. A nil *DebugSink is the zero-overhead
// production path: every Capture call on a nil receiver is a no-op.
type DebugSink struct {
	mu        sync.Mutex
	artifacts []Artifact
}

// NewDebugSink returns a sink ready to collect artifacts.
func NewDebugSink() *DebugSink {
	return &DebugSink{}
}

// Capture records an artifact if dc is non-nil.
func (dc *DebugSink) Capture(stage, name, description string, payload interface{}, zorder int) {
	if dc == nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.artifacts = append(dc.artifacts, Artifact{
		Stage:       stage,
		Name:        name,
		Description: description,
		Payload:     payload,
		ZOrder:      zorder,
	})
}

// Artifacts returns every captured artifact ordered by ZOrder, stable
// on insertion order for ties.
func (dc *DebugSink) Artifacts() []Artifact {
	if dc == nil {
		return nil
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	out := make([]Artifact, len(dc.artifacts))
	copy(out, dc.artifacts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZOrder < out[j].ZOrder
	})
	return out
}
