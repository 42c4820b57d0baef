// Package metrics exports cache statistics in Prometheus format.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/health"
)

const namespace = "bizcache"

// SnapshotSource is the part of the cache Facade the collector reads.
type SnapshotSource interface {
	Snapshot(ctx context.Context) cache.Snapshot
}

// Collector implements prometheus.Collector over cache snapshots. Each
// scrape takes one fresh snapshot, so the exported values are always
// mutually consistent.
type Collector struct {
	source  SnapshotSource
	timeout time.Duration

	hits           *prometheus.Desc
	misses         *prometheus.Desc
	localEntries   *prometheus.Desc
	localBytes     *prometheus.Desc
	localEvictions *prometheus.Desc
	reachable      *prometheus.Desc
	state          *prometheus.Desc
	failures       *prometheus.Desc
	backendErrors  *prometheus.Desc
	sharedHits     *prometheus.Desc
	sharedMisses   *prometheus.Desc
	sharedKeys     *prometheus.Desc
}

// Compile-time check that Collector implements prometheus.Collector.
var _ prometheus.Collector = (*Collector)(nil)

// backendStates lists every value of the bizcache_backend_state label.
var backendStates = []string{
	health.BackendSharedActive,
	health.BackendDegraded,
	health.BackendProbing,
	cache.StateDisabled,
}

// NewCollector creates a collector reading from source. Shared store
// counters are fetched with the given timeout per scrape.
func NewCollector(source SnapshotSource, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = time.Second
	}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		source:  source,
		timeout: timeout,

		hits:           desc("cache_hits_total", "Cache reads that returned a value."),
		misses:         desc("cache_misses_total", "Cache reads that found nothing."),
		localEntries:   desc("local_entries", "Entries held by the local fallback tier."),
		localBytes:     desc("local_bytes", "Approximate payload bytes held by the local fallback tier."),
		localEvictions: desc("local_evictions_total", "Entries evicted from the local tier for capacity."),
		reachable:      desc("shared_backend_reachable", "1 when the shared backend serves traffic."),
		state:          desc("backend_state", "Current backend state; 1 for the active state.", "state", "mode"),
		failures:       desc("backend_consecutive_failures", "Consecutive shared backend failures."),
		backendErrors:  desc("backend_errors_total", "Shared backend operation failures."),
		sharedHits:     desc("shared_hits_total", "Hits reported by the shared store."),
		sharedMisses:   desc("shared_misses_total", "Misses reported by the shared store."),
		sharedKeys:     desc("shared_keys", "Keys held by the shared store."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.hits, c.misses, c.localEntries, c.localBytes, c.localEvictions,
		c.reachable, c.state, c.failures, c.backendErrors,
		c.sharedHits, c.sharedMisses, c.sharedKeys,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	s := c.source.Snapshot(ctx)

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.HitCount))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.MissCount))
	ch <- prometheus.MustNewConstMetric(c.localEntries, prometheus.GaugeValue, float64(s.LocalEntryCount))
	ch <- prometheus.MustNewConstMetric(c.localBytes, prometheus.GaugeValue, float64(s.LocalBytes))
	ch <- prometheus.MustNewConstMetric(c.localEvictions, prometheus.CounterValue, float64(s.LocalEvictions))
	ch <- prometheus.MustNewConstMetric(c.reachable, prometheus.GaugeValue, boolValue(s.SharedBackendReachable))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.GaugeValue, float64(s.ConsecutiveFailures))
	ch <- prometheus.MustNewConstMetric(c.backendErrors, prometheus.CounterValue, float64(s.BackendErrors))

	for _, st := range backendStates {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue,
			boolValue(st == s.BackendState), st, string(s.SharedMode))
	}

	if s.SharedHits != nil {
		ch <- prometheus.MustNewConstMetric(c.sharedHits, prometheus.CounterValue, float64(*s.SharedHits))
	}
	if s.SharedMisses != nil {
		ch <- prometheus.MustNewConstMetric(c.sharedMisses, prometheus.CounterValue, float64(*s.SharedMisses))
	}
	if s.SharedKeys != nil {
		ch <- prometheus.MustNewConstMetric(c.sharedKeys, prometheus.GaugeValue, float64(*s.SharedKeys))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
