package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.validationsTotal)
	assert.NotNil(t, collector.checksTotal)
	assert.NotNil(t, collector.violationsTotal)
	assert.NotNil(t, collector.hubResolutionsTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	// 记录请求
	collector.RecordHTTPRequest("POST", "/validate", 200, 100*time.Millisecond, 1024, 2048)

	// 验证指标
	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)

	// 再记录一次相同的请求
	collector.RecordHTTPRequest("POST", "/validate", 200, 50*time.Millisecond, 512, 1024)

	newCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_RecordValidation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordValidation("input", true, 20*time.Millisecond)
	collector.RecordValidation("output", false, 35*time.Millisecond)

	value := testutil.ToFloat64(collector.validationsTotal.WithLabelValues("input", "true"))
	assert.Equal(t, float64(1), value)

	value = testutil.ToFloat64(collector.validationsTotal.WithLabelValues("output", "false"))
	assert.Equal(t, float64(1), value)
}

func TestCollector_RecordCheck(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCheck("regex_match", "pass", 5*time.Millisecond)
	collector.RecordCheck("regex_match", "fail", 5*time.Millisecond)
	collector.RecordCheck("detect_pii", "pass", 8*time.Millisecond)

	value := testutil.ToFloat64(collector.checksTotal.WithLabelValues("regex_match", "pass"))
	assert.Equal(t, float64(1), value)

	value = testutil.ToFloat64(collector.checksTotal.WithLabelValues("regex_match", "fail"))
	assert.Equal(t, float64(1), value)
}

func TestCollector_RecordViolation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordViolation("validator_failed")
	collector.RecordViolation("validator_failed")
	collector.RecordViolation("validator_timeout")

	value := testutil.ToFloat64(collector.violationsTotal.WithLabelValues("validator_failed"))
	assert.Equal(t, float64(2), value)

	value = testutil.ToFloat64(collector.violationsTotal.WithLabelValues("validator_timeout"))
	assert.Equal(t, float64(1), value)
}

func TestCollector_RecordHubResolution(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordHubResolution("builtin", "found")
	collector.RecordHubResolution("remote", "not_found")

	value := testutil.ToFloat64(collector.hubResolutionsTotal.WithLabelValues("builtin", "found"))
	assert.Equal(t, float64(1), value)
}

func TestCollector_RecordCacheHitMiss(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCacheHit("hub_manifest")
	collector.RecordCacheHit("hub_manifest")
	collector.RecordCacheMiss("hub_manifest")

	hits := testutil.ToFloat64(collector.cacheHits.WithLabelValues("hub_manifest"))
	misses := testutil.ToFloat64(collector.cacheMisses.WithLabelValues("hub_manifest"))
	assert.Equal(t, float64(2), hits)
	assert.Equal(t, float64(1), misses)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{422, "4xx"},
		{500, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusCode(tt.code))
	}
}
