package service

import (
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
)

// StartWindow is how far from the scheduled start a session may begin.
const StartWindow = 5 * time.Minute

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func IsLive(status models.SessionStatus) bool {
	return status == models.SessionStatusScheduled || status == models.SessionStatusInProgress
}

func IsTerminal(status models.SessionStatus) bool {
	switch status {
	case models.SessionStatusCompleted, models.SessionStatusCancelled, models.SessionStatusNoShow:
		return true
	}
	return false
}

// CanTransition checks a status change against the session state machine.
// startTime and now only matter for moves that depend on the clock.
func CanTransition(from, to models.SessionStatus, startTime, now time.Time) bool {
	if IsTerminal(from) {
		return false
	}

	switch to {
	case models.SessionStatusInProgress:
		if from != models.SessionStatusScheduled {
			return false
		}
		diff := now.Sub(startTime)
		return diff >= -StartWindow && diff <= StartWindow
	case models.SessionStatusCompleted:
		return from == models.SessionStatusInProgress
	case models.SessionStatusCancelled:
		return IsLive(from)
	case models.SessionStatusNoShow:
		return from == models.SessionStatusScheduled && !now.Before(startTime)
	}
	return false
}
