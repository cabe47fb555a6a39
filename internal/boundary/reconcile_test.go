package boundary

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]float64
		sep   float64
		want  []float64
	}{
		{
			name:  "empty input",
			lists: nil,
			sep:   30,
			want:  []float64{},
		},
		{
			name:  "single candidate",
			lists: [][]float64{{12.5}},
			sep:   1000,
			want:  []float64{12.5},
		},
		{
			name:  "close candidates are dropped against the last accepted one",
			lists: [][]float64{{5, 33, 34, 70}},
			sep:   30,
			want:  []float64{5, 70},
		},
		{
			name:  "lists are merged and sorted",
			lists: [][]float64{{70, 5}, {34, 33, 140}},
			sep:   30,
			want:  []float64{5, 70, 140},
		},
		{
			name:  "exact duplicates collapse",
			lists: [][]float64{{10, 10}, {10}},
			sep:   0,
			want:  []float64{10},
		},
		{
			name:  "zero is accepted as first boundary",
			lists: [][]float64{{0, 29.9, 30}},
			sep:   30,
			want:  []float64{0, 30},
		},
		{
			name:  "invalid values are ignored",
			lists: [][]float64{{-4, math.NaN(), math.Inf(1), 8}},
			sep:   30,
			want:  []float64{8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.lists, tt.sep))
		})
	}
}

func TestReconcileProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		lists := make([][]float64, 1+rng.Intn(3))
		var union []float64
		for i := range lists {
			n := rng.Intn(40)
			for j := 0; j < n; j++ {
				v := math.Round(rng.Float64()*3600*100) / 100
				lists[i] = append(lists[i], v)
				union = append(union, v)
			}
		}
		sep := float64(rng.Intn(60))

		got := Reconcile(lists, sep)
		require.True(t, Compliant(got, sep), "round %d: %v", round, got)

		for _, b := range got {
			assert.True(t, slices.Contains(union, b), "round %d: %v not in input", round, b)
		}

		again := Reconcile([][]float64{got, got}, sep)
		assert.Equal(t, got, again, "round %d: reconcile is not idempotent", round)
	}
}

func TestCompliant(t *testing.T) {
	assert.True(t, Compliant(nil, 30))
	assert.True(t, Compliant([]float64{1, 31}, 30))
	assert.False(t, Compliant([]float64{1, 30}, 30))
	assert.False(t, Compliant([]float64{5, 5}, 0))
}
