// Package metrics exposes process-wide Prometheus series and the metrics HTTP server.
// Component-specific series live next to the code that updates them.
package metrics

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainingestor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainingestor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()

	healthMu sync.RWMutex
	health   = map[string]bool{}
)

// Error severities.
const (
	SeverityTransient = "transient"
	SeverityFatal     = "fatal"
)

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

// ComponentHealthSet records the health of a component for the gauge and /health.
func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)

	healthMu.Lock()
	health[component] = healthy
	healthMu.Unlock()
}

// Unhealthy returns the sorted names of components last reported unhealthy.
func Unhealthy() []string {
	healthMu.RLock()
	defer healthMu.RUnlock()

	var out []string
	for c, ok := range health {
		if !ok {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
