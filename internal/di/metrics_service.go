package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/omarluq/bizcache/internal/metrics"
)

// MetricsService holds the process-wide Prometheus registry.
type MetricsService struct {
	Registry *prometheus.Registry
	HTTP     *metrics.HTTP
}

// NewMetrics creates a registry with runtime collectors, the cache snapshot
// collector and the HTTP request metrics.
func NewMetrics(i do.Injector) (*MetricsService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(cacheSvc.Facade, cfgSvc.Get().Cache.GetOpTimeout()),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return &MetricsService{Registry: reg, HTTP: metrics.NewHTTP(reg)}, nil
}
