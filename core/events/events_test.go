package events

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"
)

func TestSignalNames(t *testing.T) {
	tests := map[string]capitan.Signal{
		"ctrlgen.run.started":        RunStarted,
		"ctrlgen.run.completed":      RunCompleted,
		"ctrlgen.generate.started":   GenerateStarted,
		"ctrlgen.generate.succeeded": GenerateSucceeded,
		"ctrlgen.generate.failed":    GenerateFailed,
		"ctrlgen.watch.triggered":    WatchTriggered,
		"ctrlgen.config.reloaded":    ConfigReloaded,
	}
	for want, sig := range tests {
		if sig.Name() != want {
			t.Errorf("expected name %q, got %q", want, sig.Name())
		}
	}
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of signal workers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogTo(t *testing.T) {
	var out syncBuffer
	LogTo(zerolog.New(&out))

	capitan.Emit(context.Background(), GenerateFailed,
		KeyRunID.Field("run-1"),
		KeyFile.Field("machine.ctrl.go"),
		KeyError.Field("boom"),
	)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "generation failed") {
		if time.Now().After(deadline) {
			t.Fatalf("no log line for the failure, got %q", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	line := out.String()
	for _, want := range []string{`"level":"error"`, `"run_id":"run-1"`, `"file":"machine.ctrl.go"`, `"error":"boom"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q does not contain %s", line, want)
		}
	}
}
