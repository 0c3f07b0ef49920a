package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/ctrlgen/config"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, "generate:\n  strategy: history\n")

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Generate.Strategy != "history" {
		t.Errorf("Generate.Strategy = %s, want history", got.Generate.Strategy)
	}
}

func TestHolder_MissingFileUsesDefaults(t *testing.T) {
	h, err := config.NewHolder(filepath.Join(t.TempDir(), "ctrlgen.yaml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if h.Get().Generate.Suffix != "_ctrl.gen.go" {
		t.Errorf("Generate.Suffix = %s, want default", h.Get().Generate.Suffix)
	}
}

func TestHolder_ReloadAndOnChange(t *testing.T) {
	path := writeConfig(t, "channels:\n  capacity: 4\n")

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var received *config.Config
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		received = cfg
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("channels:\n  capacity: 12\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if h.Get().Channels.Capacity != 12 {
		t.Errorf("reloaded Channels.Capacity = %d, want 12", h.Get().Channels.Capacity)
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("OnChange callback was not called")
	}
	if received.Channels.Capacity != 12 {
		t.Errorf("callback received capacity %d, want 12", received.Channels.Capacity)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, "generate:\n  strategy: history\n")

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("generate:\n  strategy: sometimes\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}

	if h.Get().Generate.Strategy != "history" {
		t.Errorf("should keep old config, got strategy %s", h.Get().Generate.Strategy)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Get().Logging.Level != "debug" {
		if time.Now().After(deadline) {
			t.Fatalf("file watcher did not reload, level = %s", h.Get().Logging.Level)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, "{}\n"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, "{}\n")

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return writeFile(t, "ctrlgen.yaml", content)
}
