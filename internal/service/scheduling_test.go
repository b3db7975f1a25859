package service

import (
	"testing"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{"partial overlap", at(10, 30), at(11, 30), true},
		{"touching end", at(11, 0), at(12, 0), false},
		{"touching start", at(9, 0), at(10, 0), false},
		{"inside", at(10, 15), at(10, 45), true},
		{"covers", at(9, 0), at(12, 0), true},
		{"identical", at(10, 0), at(11, 0), true},
		{"disjoint", at(13, 0), at(14, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(at(10, 0), at(11, 0), tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, at(10, 0), at(11, 0)))
		})
	}
}

func TestCanTransitionStartWindow(t *testing.T) {
	start := at(14, 0)

	assert.True(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusInProgress, start, at(13, 55)))
	assert.True(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusInProgress, start, at(14, 5)))
	assert.False(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusInProgress, start, at(13, 54)))
	assert.False(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusInProgress, start, at(14, 6)))
}

func TestCanTransitionTerminal(t *testing.T) {
	start := at(14, 0)
	terminal := []models.SessionStatus{
		models.SessionStatusCompleted,
		models.SessionStatusCancelled,
		models.SessionStatusNoShow,
	}
	targets := []models.SessionStatus{
		models.SessionStatusScheduled,
		models.SessionStatusInProgress,
		models.SessionStatusCompleted,
		models.SessionStatusCancelled,
		models.SessionStatusNoShow,
	}

	for _, from := range terminal {
		for _, to := range targets {
			assert.False(t, CanTransition(from, to, start, start), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionRules(t *testing.T) {
	start := at(14, 0)

	assert.True(t, CanTransition(models.SessionStatusInProgress, models.SessionStatusCompleted, start, at(18, 0)))
	assert.False(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusCompleted, start, at(14, 0)))

	assert.True(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusCancelled, start, at(9, 0)))
	assert.True(t, CanTransition(models.SessionStatusInProgress, models.SessionStatusCancelled, start, at(14, 30)))

	assert.False(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusNoShow, start, at(13, 59)))
	assert.True(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusNoShow, start, at(14, 0)))
	assert.False(t, CanTransition(models.SessionStatusInProgress, models.SessionStatusNoShow, start, at(14, 30)))

	assert.False(t, CanTransition(models.SessionStatusScheduled, models.SessionStatusScheduled, start, start))
}
