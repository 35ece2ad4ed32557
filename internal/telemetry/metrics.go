package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency. Shared across every handler.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "nettap",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var IndicesDeletedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nettap",
		Subsystem: "storage",
		Name:      "indices_deleted_total",
		Help:      "Total number of OpenSearch indices deleted by tier.",
	},
	[]string{"tier"},
)

var PruneCyclesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nettap",
		Subsystem: "storage",
		Name:      "prune_cycles_total",
		Help:      "Total number of prune cycles run, by kind (tiered/emergency/noop).",
	},
	[]string{"kind"},
)

var DiskUsageFraction = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "nettap",
		Subsystem: "storage",
		Name:      "disk_usage_fraction",
		Help:      "Most recently sampled disk usage fraction for the configured check path.",
	},
)

var BridgeHealthStatus = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "nettap",
		Subsystem: "bridge",
		Name:      "health_status",
		Help:      "Bridge health status as an ordinal: 0=down,1=degraded,2=bypass,3=normal.",
	},
)

var InternetHealthStatus = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "nettap",
		Subsystem: "internet",
		Name:      "health_status",
		Help:      "Internet health status as an ordinal: 0=down,1=degraded,2=healthy.",
	},
)

var UpdatesAppliedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nettap",
		Subsystem: "update",
		Name:      "applied_total",
		Help:      "Total number of component updates applied, by success.",
	},
	[]string{"component", "success"},
)

var TSharkInvocationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nettap",
		Subsystem: "tshark",
		Name:      "invocations_total",
		Help:      "Total number of tshark gateway invocations, by outcome.",
	},
	[]string{"outcome"},
)

// All returns every NetTap-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		IndicesDeletedTotal,
		PruneCyclesTotal,
		DiskUsageFraction,
		BridgeHealthStatus,
		InternetHealthStatus,
		UpdatesAppliedTotal,
		TSharkInvocationsTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTP duration metric, and any additional service collectors.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
