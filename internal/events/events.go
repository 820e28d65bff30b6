// Package events provides a JSONL event stream for recording build
// activity. Every closure computation, cache decision, packaging-tool run,
// and fetch is recorded as a structured JSON event, making builds auditable
// and analyzable after the fact.
package events

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of build event.
const (
	KindBuildStart  = "build_start"
	KindClosureDone = "closure_done"
	KindCacheHit    = "cache_hit"
	KindPackDone    = "pack_done"
	KindBuildDone   = "build_done"
	KindBuildFailed = "build_failed"
	KindFetchDone   = "fetch_done"
)

// Event represents a single build record. Each event carries a timestamp, a
// kind tag, the target label it concerns, and optional structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Label     string    `json:"label,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes build events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates an Emitter that appends JSONL events to the file at
// path, creating it if needed.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("events: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes a single event, stamping the time if unset. Calling Emit on a
// nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Safe on a nil Emitter.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	return e.file.Close()
}
