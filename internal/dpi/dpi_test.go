package dpi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidScaleFactor(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		want  bool
	}{
		{"one", 1, true},
		{"fractional", 1.25, true},
		{"zero", 0, false},
		{"negative", -2, false},
		{"nan", math.NaN(), false},
		{"inf", math.Inf(1), false},
		{"subnormal", math.SmallestNonzeroFloat64, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidScaleFactor(tt.scale))
		})
	}
}

func TestLogicalToPhysical(t *testing.T) {
	tests := []struct {
		name  string
		pos   LogicalPosition
		scale float64
		want  PhysicalPosition
	}{
		{"identity", LogicalPosition{10, 20}, 1, PhysicalPosition{10, 20}},
		{"double", LogicalPosition{10, 20}, 2, PhysicalPosition{20, 40}},
		{"rounds half away from zero", LogicalPosition{1.5, -1.5}, 1, PhysicalPosition{2, -2}},
		{"fractional scale", LogicalPosition{100, 33}, 1.25, PhysicalPosition{125, 41}},
		{"saturates", LogicalPosition{math.MaxFloat64, -math.MaxFloat64}, 2, PhysicalPosition{math.MaxInt32, math.MinInt32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pos.ToPhysical(tt.scale))
		})
	}
}

func TestPhysicalIgnoresScale(t *testing.T) {
	p := PhysicalPosition{X: 7, Y: -3}
	assert.Equal(t, p, p.ToPhysical(3))
	assert.Equal(t, "physical(7, -3)", p.String())
}
