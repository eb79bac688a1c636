package jobstore

import (
	"testing"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestJobToMapSerializesTimestamps(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job := domain.IngestJob{
		ID:         "job-1",
		TenantID:   "acme",
		UserID:     "u1",
		Title:      "doc title",
		Status:     domain.JobCompleted,
		ChunkCount: 7,
		DurationMs: 1234,
		CreatedAt:  created,
		StartedAt:  created,
		UpdatedAt:  created,
	}

	m := jobToMap(job)

	assert.Equal(t, "job-1", m["id"])
	assert.Equal(t, "acme", m["tenantId"])
	assert.Equal(t, "doc title", m["title"])
	assert.Equal(t, string(domain.JobCompleted), m["status"])
	assert.Equal(t, int64(7), m["chunkCount"])
	assert.Equal(t, int64(1234), m["durationMs"])
	assert.Equal(t, created.Format(time.RFC3339Nano), m["createdAt"])
	assert.Equal(t, created.Format(time.RFC3339Nano), m["startedAt"])
}

func TestJobToMapOmitsStartedAtWhenZero(t *testing.T) {
	m := jobToMap(domain.IngestJob{ID: "job-1"})
	_, ok := m["startedAt"]
	assert.False(t, ok)
}

func TestIntPropReturnsZeroForMissingOrWrongType(t *testing.T) {
	assert.Equal(t, int64(0), intProp(map[string]any{}, "chunkCount"))
	assert.Equal(t, int64(0), intProp(map[string]any{"chunkCount": "7"}, "chunkCount"))
}

func TestIntPropReturnsValue(t *testing.T) {
	assert.Equal(t, int64(7), intProp(map[string]any{"chunkCount": int64(7)}, "chunkCount"))
	assert.Equal(t, int64(7), intProp(map[string]any{"chunkCount": 7}, "chunkCount"))
}

func TestStrPropMissingKeyReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", strProp(map[string]any{}, "id"))
}

func TestStrPropWrongTypeReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", strProp(map[string]any{"id": 42}, "id"))
}

func TestTimePropParsesRFC3339Nano(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	props := map[string]any{"createdAt": ts.Format(time.RFC3339Nano)}

	got := timeProp(props, "createdAt")
	assert.True(t, ts.Equal(got))
}

func TestTimePropMissingReturnsZeroValue(t *testing.T) {
	got := timeProp(map[string]any{}, "createdAt")
	assert.True(t, got.IsZero())
}

func TestTimePropInvalidFormatReturnsZeroValue(t *testing.T) {
	got := timeProp(map[string]any{"createdAt": "not-a-time"}, "createdAt")
	assert.True(t, got.IsZero())
}
