package monitoring

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorCounts(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordAssessment("Low", "heuristic", 2*time.Millisecond)
	mc.RecordAssessment("High", "model", 4*time.Millisecond)
	mc.RecordAssessment("High", "heuristic-fallback", 6*time.Millisecond)
	mc.RecordRejected()

	s := mc.Snapshot()
	assert.Equal(t, int64(3), s.Assessments)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, map[string]int64{"Low": 1, "High": 2}, s.ByRiskLevel)
	assert.Equal(t, int64(1), s.ByProvenance["heuristic-fallback"])
	assert.Equal(t, 3, s.Latency.Count)
	assert.Equal(t, 4*time.Millisecond, s.Latency.Mean)
	assert.Equal(t, 6*time.Millisecond, s.Latency.Max)
	assert.Positive(t, s.System.Goroutines)
}

func TestMetricsLatencyWindowIsBounded(t *testing.T) {
	mc := NewMetricsCollector()
	for i := 0; i < latencyWindow+10; i++ {
		mc.RecordAssessment("Low", "heuristic", time.Duration(i))
	}
	s := mc.Snapshot()
	assert.Equal(t, latencyWindow, s.Latency.Count)
	assert.Equal(t, int64(latencyWindow+10), s.Assessments)
	assert.Equal(t, time.Duration(latencyWindow+9), s.Latency.Max)
}

func TestMetricsHandlerExposition(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordAssessment("Moderate", "model", time.Millisecond)
	mc.RecordRejected()

	rr := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	out := rr.Body.String()
	assert.Contains(t, out, "# TYPE cardiorisk_assessments_total counter")
	assert.Contains(t, out, `cardiorisk_assessments_total{provenance="model",risk_level="Moderate"} 1`)
	assert.Contains(t, out, "cardiorisk_rejected_total 1")
	assert.Contains(t, out, "cardiorisk_assessment_duration_seconds_count 1")
	assert.Contains(t, out, "go_goroutines")
}

func TestMetricsCollectorsAreIndependent(t *testing.T) {
	first := NewMetricsCollector()
	second := NewMetricsCollector()
	first.RecordAssessment("Low", "heuristic", time.Millisecond)

	assert.Equal(t, int64(1), first.Snapshot().Assessments)
	assert.Zero(t, second.Snapshot().Assessments)
}

func TestMetricsConcurrentUse(t *testing.T) {
	mc := NewMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				mc.RecordAssessment("Low", "heuristic", time.Microsecond)
				_ = mc.Snapshot()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(800), mc.Snapshot().Assessments)
}
