package modelerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs_MatchesKindThroughWrapping(t *testing.T) {
	err := InvalidValuationInput("value", "discount rate must be > -1").With("discount_rate", -1.5)
	wrapped := fmt.Errorf("grid cell (0,0): %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidValuationInput))
	assert.False(t, errors.Is(wrapped, ErrInvalidAssumptions))
	assert.False(t, errors.Is(wrapped, ErrMalformedInput))
}

func TestError_MessageIncludesParams(t *testing.T) {
	err := InvalidAssumptions("project", "years must be >= 1").With("years", 0)
	assert.Equal(t, "INVALID_ASSUMPTIONS [project]: years must be >= 1 (years=0)", err.Error())
}

func TestWith_DoesNotMutateReceiver(t *testing.T) {
	base := MalformedInput("derive", "bad series")
	_ = base.With("label", "revenue")
	assert.Empty(t, base.Params)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("outer: %w", MalformedInput("parse", "x")))
	assert.True(t, ok)
	assert.Equal(t, KindMalformedInput, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
