package bootstrap_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artpar/ctrlgen/bootstrap"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

func newApp(t *testing.T, addr string) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.NewWithConfig(bootstrap.Config{Addr: addr})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	return app
}

func TestNew_Components(t *testing.T) {
	app := newApp(t, "127.0.0.1:0")

	if app.Registry == nil {
		t.Error("Registry should not be nil")
	}
	if app.Metrics == nil {
		t.Error("Metrics should not be nil")
	}
	if app.HTTPServer == nil {
		t.Fatal("HTTPServer should not be nil")
	}
	if app.HTTPServer.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", app.HTTPServer.ReadTimeout)
	}
}

func TestNew_ServerDisabled(t *testing.T) {
	app := newApp(t, "-")
	if app.HTTPServer != nil {
		t.Error("HTTPServer should be nil when disabled")
	}
	if err := app.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_AddrFromEnv(t *testing.T) {
	t.Setenv(bootstrap.EnvAddr, "127.0.0.1:19999")

	app, err := bootstrap.New()
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	if app.HTTPServer.Addr != "127.0.0.1:19999" {
		t.Errorf("Addr = %s", app.HTTPServer.Addr)
	}
}

func TestRouter_ServesRegistryAndMetrics(t *testing.T) {
	app := newApp(t, "127.0.0.1:0")

	pubsub.MustWatch[int](app.Registry, "LAMP_LEVEL_CHANNEL", 4).MustSender().Send(1)

	srv := httptest.NewServer(app.HTTPServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/channels/LAMP_LEVEL_CHANNEL")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("channel status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), `ctrlgen_channel_published_total{channel="LAMP_LEVEL_CHANNEL",kind="watch"} 1`) {
		t.Errorf("metrics lack the published counter:\n%s", body)
	}
}

func TestRun_StopsTasksOnCancel(t *testing.T) {
	app := newApp(t, "127.0.0.1:0")

	var stopped atomic.Bool
	err := app.Go("worker", func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Store(true)
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Go() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !stopped.Load() {
		t.Error("task was not stopped")
	}
}

func TestRun_TaskFailureStopsApp(t *testing.T) {
	app := newApp(t, "-")
	boom := errors.New("boom")

	_ = app.Go("failing", func(context.Context) error { return boom })
	_ = app.Go("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := app.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "failing") {
		t.Errorf("error does not name the task: %v", err)
	}
}

func TestGo_AfterRun(t *testing.T) {
	app := newApp(t, "-")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := app.Go("late", func(context.Context) error { return nil }); err == nil {
		t.Error("Go() after Run succeeded")
	}
}
