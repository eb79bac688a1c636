package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesSentinel(t *testing.T) {
	err := New(KindNotFound, "job missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "not_found: job missing", err.Error())
}

func TestFieldIncludesFieldName(t *testing.T) {
	err := Field(KindValidation, "question", "must not be empty")
	assert.Equal(t, "validation: question: must not be empty", err.Error())
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(KindUnavailable, base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindUnavailable, err.Kind)
}

func TestAsClassifiesAppError(t *testing.T) {
	err := New(KindRateLimited, "too many requests")
	assert.Equal(t, KindRateLimited, As(err))
}

func TestAsClassifiesBareSentinel(t *testing.T) {
	assert.Equal(t, KindForbidden, As(ErrForbidden))
}

func TestAsDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, As(errors.New("boom")))
}
