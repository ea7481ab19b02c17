package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.05, Clamp(-1.0, 0.05, 2.0))
	assert.Equal(t, 2.0, Clamp(3.5, 0.05, 2.0))
	assert.Equal(t, 1.0, Clamp(1.0, 0.05, 2.0))
	assert.Equal(t, 3, Clamp(7, 0, 3))
}

func TestClampIndex(t *testing.T) {
	assert.Equal(t, 0, ClampIndex(4, 0))
	assert.Equal(t, 0, ClampIndex(-2, 5))
	assert.Equal(t, 4, ClampIndex(9, 5))
	assert.Equal(t, 2, ClampIndex(2, 5))
}

func TestFiniteOr(t *testing.T) {
	assert.Equal(t, 1.5, FiniteOr(1.5, 0))
	assert.Equal(t, 0.05, FiniteOr(math.NaN(), 0.05))
	assert.Equal(t, 0.05, FiniteOr(math.Inf(1), 0.05))
	assert.Equal(t, 0.05, FiniteOr(math.Inf(-1), 0.05))
}
