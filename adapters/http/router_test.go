package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/ctrlgen/adapters/http"
	"github.com/artpar/ctrlgen/adapters/metrics"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

func newServer(t *testing.T) (*httptest.Server, *pubsub.Registry) {
	t.Helper()
	promReg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(promReg)
	reg := pubsub.NewRegistry(pubsub.WithObserver(m))

	h := apihttp.NewHandler(reg, zerolog.Nop())
	srv := httptest.NewServer(apihttp.NewRouter(h, promReg, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, reg
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChannels(t *testing.T) {
	srv, reg := newServer(t)

	w := pubsub.MustWatch[int](reg, "LAMP_LEVEL_CHANNEL", 4)
	w.MustSender().Send(3)
	pubsub.MustBroadcast[string](reg, "LAMP_BURNT_CHANNEL", pubsub.Limits{Capacity: 8, MaxSubscribers: 16, MaxPublishers: 1})

	resp := get(t, srv.URL+"/channels")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}

	var body apihttp.ChannelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(body.Channels))
	}
	if body.Channels[0].Name != "LAMP_BURNT_CHANNEL" || body.Channels[0].KindName != "broadcast" {
		t.Errorf("channels[0] = %+v", body.Channels[0])
	}
	if body.Channels[1].Name != "LAMP_LEVEL_CHANNEL" || body.Channels[1].Published != 1 {
		t.Errorf("channels[1] = %+v", body.Channels[1])
	}
}

func TestChannel(t *testing.T) {
	srv, reg := newServer(t)
	pubsub.MustQueue[func()](reg, "LAMP_COMMAND_CHANNEL", 8)

	resp := get(t, srv.URL+"/channels/LAMP_COMMAND_CHANNEL")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var info pubsub.ChannelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.KindName != "queue" || info.Capacity != 8 {
		t.Errorf("info = %+v", info)
	}

	resp = get(t, srv.URL+"/channels/NOPE")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var e apihttp.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(e.Error, "NOPE") {
		t.Errorf("error = %q", e.Error)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)

	resp := get(t, srv.URL+"/health")
	var body apihttp.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Channels != 0 {
		t.Errorf("health = %+v", body)
	}
}

func TestMetrics(t *testing.T) {
	srv, reg := newServer(t)
	pubsub.MustWatch[bool](reg, "LAMP_ON_CHANNEL", 4).MustSender().Send(true)

	resp := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(buf.String(), `ctrlgen_channel_published_total{channel="LAMP_ON_CHANNEL",kind="watch"} 1`) {
		t.Errorf("metrics output lacks the published counter:\n%s", buf.String())
	}
}

func TestNoMetricsWithoutGatherer(t *testing.T) {
	h := apihttp.NewHandler(pubsub.NewRegistry(), zerolog.Nop())
	srv := httptest.NewServer(apihttp.NewRouter(h, nil, zerolog.Nop()))
	defer srv.Close()

	resp := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
