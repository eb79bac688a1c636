package health

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.IngestsTotal.WithLabelValues("acme", "ok").Inc()
	m.QueriesTotal.WithLabelValues("acme", "ok").Inc()
	m.EventsTotal.WithLabelValues("document.ingested").Inc()
	m.Neo4jPoolInUse.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "ragsvc_neo4j_pool_in_use" {
			found = true
			assert.Equal(t, float64(3), f.Metric[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "expected ragsvc_neo4j_pool_in_use to be registered")
}

func TestObservePortRecordsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObservePort("embedder", time.Now().Add(-50*time.Millisecond))

	families, err := reg.Gather()
	require.NoError(t, err)

	var histogram *dto.Histogram
	for _, f := range families {
		if f.GetName() == "ragsvc_port_call_duration_seconds" {
			histogram = f.Metric[0].GetHistogram()
		}
	}
	require.NotNil(t, histogram)
	assert.Equal(t, uint64(1), histogram.GetSampleCount())
}

func TestHandleHealthzReturnsOK(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()

	HandleHealthz(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
