package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeScore(t *testing.T) {
	limit := 30 * time.Second
	tests := []struct {
		name    string
		correct bool
		elapsed time.Duration
		want    int
	}{
		{"instant", true, 0, 100},
		{"at limit", true, 30 * time.Second, 0},
		{"halfway", true, 15 * time.Second, 50},
		{"a third", true, 10 * time.Second, 67},
		{"late answer clamps", true, 45 * time.Second, 0},
		{"negative elapsed clamps", true, -5 * time.Second, 100},
		{"wrong instant", false, 0, 0},
		{"wrong late", false, 29 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeScore(tt.correct, tt.elapsed, limit))
		})
	}
}

func TestScoringUntimed(t *testing.T) {
	s := Scoring{MinScore: 10, MaxScore: 1000}

	assert.Equal(t, 1000, s.Compute(true, time.Hour, 30*time.Second, false))
	assert.Equal(t, 1000, s.Compute(true, time.Hour, 0, true))
	assert.Equal(t, 10, s.Compute(false, 0, 0, false))
}

func TestScoringCustomBounds(t *testing.T) {
	s := Scoring{MinScore: 10, MaxScore: 1000}

	assert.Equal(t, 500, s.Compute(true, 15*time.Second, 30*time.Second, true))
	assert.Equal(t, 10, s.Compute(true, 30*time.Second, 30*time.Second, true))
	assert.Equal(t, 10, s.Compute(true, time.Minute, 30*time.Second, true))
}

func TestScoringNegativeBoundsClampToZero(t *testing.T) {
	s := Scoring{MinScore: -10, MaxScore: 100}

	assert.Equal(t, 0, s.Compute(false, 0, 30*time.Second, true))
	assert.Equal(t, 0, s.Compute(true, time.Minute, 30*time.Second, true))
	assert.Equal(t, 50, s.Compute(true, 15*time.Second, 30*time.Second, true))
	assert.Equal(t, 0, Scoring{MinScore: -5, MaxScore: -1}.Compute(true, 0, 0, false))
}
