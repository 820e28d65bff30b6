package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestEmitWritesJSONL(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	e, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	if err := e.Emit(Event{Kind: KindBuildStart, Label: "app:app"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.Emit(Event{Kind: KindPackDone, Label: "app:app", Data: map[string]string{"archive": "out/app.pex"}}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var kinds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		if evt.Timestamp.IsZero() {
			t.Error("event missing timestamp")
		}
		kinds = append(kinds, evt.Kind)
	}
	if len(kinds) != 2 || kinds[0] != KindBuildStart || kinds[1] != KindPackDone {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestEmitAppends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")

	for i := 0; i < 2; i++ {
		e, err := NewEmitter(path)
		if err != nil {
			t.Fatalf("NewEmitter: %v", err)
		}
		if err := e.Emit(Event{Kind: KindFetchDone}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
		e.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2 (second emitter must append)", lines)
	}
}

func TestNilEmitterIsNoOp(t *testing.T) {
	t.Parallel()
	var e *Emitter
	if err := e.Emit(Event{Kind: KindBuildStart}); err != nil {
		t.Errorf("nil Emit = %v, want nil", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("nil Close = %v, want nil", err)
	}
}

func TestEmitConcurrent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	e, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := e.Emit(Event{Kind: KindClosureDone, Label: "x:x"}); err != nil {
					t.Errorf("Emit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("interleaved write produced invalid JSON: %v", err)
		}
		count++
	}
	if count != 200 {
		t.Errorf("events = %d, want 200", count)
	}
}
