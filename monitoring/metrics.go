package monitoring

import (
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsNamespace = "cardiorisk"
	latencyWindow    = 1000
)

// LatencySummary covers the most recent scoring calls.
type LatencySummary struct {
	Count int           `json:"count"`
	Mean  time.Duration `json:"mean_ns"`
	P50   time.Duration `json:"p50_ns"`
	P95   time.Duration `json:"p95_ns"`
	Max   time.Duration `json:"max_ns"`
}

// Snapshot is a point-in-time copy of the collector.
type Snapshot struct {
	Uptime       time.Duration    `json:"uptime_ns"`
	Assessments  int64            `json:"assessments"`
	Rejected     int64            `json:"rejected"`
	ByRiskLevel  map[string]int64 `json:"by_risk_level"`
	ByProvenance map[string]int64 `json:"by_provenance"`
	Latency      LatencySummary   `json:"latency"`
	System       SystemStats      `json:"system"`
}

// SystemStats is read from the Go runtime.
type SystemStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	NumGC      uint32 `json:"num_gc"`
	NumCPU     int    `json:"num_cpu"`
}

// MetricsCollector counts scoring outcomes. Every sample goes both to a
// private Prometheus registry and to the in-process counters behind
// Snapshot. It is safe for concurrent use.
type MetricsCollector struct {
	registry    *prometheus.Registry
	assessments *prometheus.CounterVec
	rejected    prometheus.Counter
	duration    prometheus.Histogram

	mu           sync.Mutex
	startTime    time.Time
	total        int64
	rejections   int64
	byRiskLevel  map[string]int64
	byProvenance map[string]int64
	latencies    []time.Duration
	next         int
}

func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assessments_total",
			Help:      "Scored assessments by risk level and provenance.",
		}, []string{"risk_level", "provenance"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_total",
			Help:      "Predict requests rejected by validation.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "assessment_duration_seconds",
			Help:      "Time spent scoring one feature vector.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
		startTime:    time.Now(),
		byRiskLevel:  make(map[string]int64),
		byProvenance: make(map[string]int64),
		latencies:    make([]time.Duration, 0, latencyWindow),
	}
	mc.registry.MustRegister(
		mc.assessments,
		mc.rejected,
		mc.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mc
}

// RecordAssessment counts one scored and stored request.
func (mc *MetricsCollector) RecordAssessment(riskLevel, provenance string, elapsed time.Duration) {
	mc.assessments.WithLabelValues(riskLevel, provenance).Inc()
	mc.duration.Observe(elapsed.Seconds())

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.total++
	mc.byRiskLevel[riskLevel]++
	mc.byProvenance[provenance]++

	if len(mc.latencies) < latencyWindow {
		mc.latencies = append(mc.latencies, elapsed)
		return
	}
	mc.latencies[mc.next] = elapsed
	mc.next = (mc.next + 1) % latencyWindow
}

// RecordRejected counts a request that failed validation.
func (mc *MetricsCollector) RecordRejected() {
	mc.rejected.Inc()

	mc.mu.Lock()
	mc.rejections++
	mc.mu.Unlock()
}

// Handler serves the registry in the Prometheus exposition format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry})
}

func (mc *MetricsCollector) Snapshot() Snapshot {
	mc.mu.Lock()
	s := Snapshot{
		Uptime:       time.Since(mc.startTime),
		Assessments:  mc.total,
		Rejected:     mc.rejections,
		ByRiskLevel:  copyCounts(mc.byRiskLevel),
		ByProvenance: copyCounts(mc.byProvenance),
	}
	latencies := append([]time.Duration(nil), mc.latencies...)
	mc.mu.Unlock()

	s.Latency = summarize(latencies)
	s.System = readSystemStats()
	return s
}

func summarize(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	n := len(latencies)
	return LatencySummary{
		Count: n,
		Mean:  total / time.Duration(n),
		P50:   latencies[(n-1)*50/100],
		P95:   latencies[(n-1)*95/100],
		Max:   latencies[n-1],
	}
}

func readSystemStats() SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemStats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		NumGC:      m.NumGC,
		NumCPU:     runtime.NumCPU(),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
