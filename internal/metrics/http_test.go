package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPObserve(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	h := NewHTTP(reg)

	h.Observe("GET /cache/stats", 200, 5*time.Millisecond)
	h.Observe("GET /cache/stats", 200, 7*time.Millisecond)
	h.Observe("POST /cache/clear", 401, time.Millisecond)

	got := gather(t, reg)

	requests, ok := got["bizcache_http_requests_total"]
	if !ok {
		t.Fatal("bizcache_http_requests_total not exported")
	}
	if len(requests.GetMetric()) != 2 {
		t.Errorf("expected 2 route/code series, got %d", len(requests.GetMetric()))
	}

	var total float64
	for _, m := range requests.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	if total != 3 {
		t.Errorf("total requests = %v, want 3", total)
	}

	duration, ok := got["bizcache_http_request_duration_seconds"]
	if !ok {
		t.Fatal("bizcache_http_request_duration_seconds not exported")
	}
	var samples uint64
	for _, m := range duration.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	if samples != 3 {
		t.Errorf("histogram samples = %d, want 3", samples)
	}
}

func TestNewHTTPReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first := NewHTTP(reg)
	second := NewHTTP(reg)

	first.Observe("GET /health", 200, time.Millisecond)
	second.Observe("GET /health", 200, time.Millisecond)

	mf := gather(t, reg)["bizcache_http_requests_total"]
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("shared counter = %v, want 2", v)
	}
}
