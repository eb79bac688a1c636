package ratelimiter

import (
	"testing"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRedisKeyIncludesTenantAndWindow(t *testing.T) {
	r := NewRedis(nil, "ratelimit")
	assert.Equal(t, "ratelimit:acme:minute", r.key("acme", domain.WindowMinute))
}

func TestRedisDefaultsKeyPrefixWhenEmpty(t *testing.T) {
	r := NewRedis(nil, "")
	assert.Equal(t, "ratelimit:acme:day", r.key("acme", domain.WindowDay))
}
