package fsrs

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/repeater/internal/domain"
)

// LearnAheadThreshold is the single learn-ahead constant: cards due within
// this window count as due now, and a freshly graded card whose effective
// interval lands under it is re-admitted to the running session.
const LearnAheadThreshold = 20 * time.Minute

const secondsPerDay = 86_400.0

// ratingFor maps the two-button grade onto FSRS quality.
func ratingFor(grade domain.Grade) Rating {
	if grade == domain.Pass {
		return Good
	}
	return Again
}

// earlyIntervalCap is the learning ramp applied while a card is young:
// regardless of what the model proposes, the first few reviews come back
// within minutes, then a day.
func earlyIntervalCap(reviewCount int, grade domain.Grade) (time.Duration, bool) {
	switch reviewCount {
	case 0:
		return time.Minute, true
	case 1:
		if grade == domain.Pass {
			return 10 * time.Minute, true
		}
		return time.Minute, true
	case 2:
		if grade == domain.Pass {
			return 24 * time.Hour, true
		}
		return 10 * time.Minute, true
	default:
		return 0, false
	}
}

// Scheduler computes review updates. It owns no mutable state; the clock
// is an explicit argument on every call.
type Scheduler struct {
	params Params
}

func NewScheduler() *Scheduler {
	return &Scheduler{params: DefaultParams()}
}

// Update applies a graded review to a card's state. prev is nil for a
// card that has never been reviewed. It returns the new performance and
// whether the session should re-admit the card (effective interval under
// the learn-ahead threshold).
func (sc *Scheduler) Update(prev *domain.Performance, grade domain.Grade, now time.Time) (domain.Performance, bool, error) {
	rating := ratingFor(grade)

	var stability, difficulty float64
	reviewCount := 0
	if prev == nil || prev.ReviewCount == 0 {
		stability = sc.params.initStability(rating)
		difficulty = sc.params.initDifficulty(rating, true)
	} else {
		reviewCount = prev.ReviewCount
		elapsedDays := now.Sub(prev.LastReviewedAt).Seconds() / secondsPerDay
		if elapsedDays < 0 {
			// clock skew
			elapsedDays = 0
		}
		retrievability := sc.params.Retrievability(elapsedDays, prev.Stability)
		difficulty = sc.params.nextDifficulty(prev.Difficulty, rating)
		stability = sc.params.nextStability(difficulty, prev.Stability, retrievability, rating)
	}

	if math.IsNaN(stability) || stability <= 0 || math.IsNaN(difficulty) {
		return domain.Performance{}, false, fmt.Errorf(
			"scheduler produced invalid state (stability=%f difficulty=%f)", stability, difficulty)
	}

	rawDays := sc.params.rawIntervalDays(stability)
	effective := time.Duration(math.Max(math.Round(rawDays*secondsPerDay), 1)) * time.Second
	if ceiling, ok := earlyIntervalCap(reviewCount, grade); ok && effective > ceiling {
		effective = ceiling
	}

	effectiveDays := effective.Seconds() / secondsPerDay
	intervalDays := int(effective.Hours() / 24)

	perf := domain.Performance{
		LastReviewedAt: now,
		Stability:      stability,
		Difficulty:     difficulty,
		IntervalRaw:    effectiveDays,
		IntervalDays:   intervalDays,
		DueDate:        now.Add(effective),
		ReviewCount:    reviewCount + 1,
	}
	return perf, effective < LearnAheadThreshold, nil
}
