package vectorstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrPropReturnsEmptyForMissingKey(t *testing.T) {
	assert.Equal(t, "", strProp(map[string]any{}, "title"))
}

func TestStrPropReturnsEmptyForWrongType(t *testing.T) {
	assert.Equal(t, "", strProp(map[string]any{"title": 42}, "title"))
}

func TestStrPropReturnsValue(t *testing.T) {
	assert.Equal(t, "hello", strProp(map[string]any{"title": "hello"}, "title"))
}

func TestSourceFromPropsParsesCreatedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	props := map[string]any{
		"id":        "s1",
		"tenantId":  "acme",
		"title":     "doc",
		"kind":      "text",
		"createdAt": now.Format(time.RFC3339Nano),
	}

	source := sourceFromProps(props)
	assert.Equal(t, "s1", source.ID)
	assert.Equal(t, "acme", string(source.TenantID))
	assert.True(t, now.Equal(source.CreatedAt))
}

func TestSourceFromPropsToleratesMissingCreatedAt(t *testing.T) {
	source := sourceFromProps(map[string]any{"id": "s2"})
	assert.Equal(t, "s2", source.ID)
	assert.True(t, source.CreatedAt.IsZero())
}
