package stats

import (
	"time"

	"github.com/conorfennell/repeater/internal/domain"
	"github.com/conorfennell/repeater/internal/fsrs"
)

// Lifecycle buckets a card by how established it is.
type Lifecycle int

const (
	New Lifecycle = iota
	Young
	Mature
)

func (l Lifecycle) String() string {
	switch l {
	case New:
		return "new"
	case Young:
		return "young"
	case Mature:
		return "mature"
	default:
		return "unknown"
	}
}

// matureInterval is the conventional 21-day maturity bound.
const matureInterval = 21.0

const histogramBins = 5

// Histogram buckets values in [0, 1] into a small fixed number of bins.
type Histogram struct {
	Bins  [histogramBins]int
	count int
	sum   float64
}

func (h *Histogram) Update(value float64) {
	v := min(max(value, 0), 1)
	idx := min(int(v*histogramBins), histogramBins-1)
	h.Bins[idx]++
	h.count++
	h.sum += value
}

// Mean returns the average of the observed values; ok is false when the
// histogram is empty.
func (h *Histogram) Mean() (float64, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.sum / float64(h.count), true
}

// Collection is the dashboard view of the indexed decks.
type Collection struct {
	TotalCardsInDB int
	NumCards       int
	Lifecycles     map[Lifecycle]int
	DueCards       int
	UpcomingWeek   map[string]int // day (YYYY-MM-DD) -> count
	UpcomingMonth  int
	FilePaths      map[string]int
	Difficulty     Histogram
	Retrievability Histogram
}

// Collect builds collection statistics for the indexed cards. states is
// the full store snapshot (hash -> performance, nil for unreviewed);
// rows not matched by any card are orphans and only count toward
// TotalCardsInDB.
func Collect(cards []domain.Card, states map[string]*domain.Performance, now time.Time) Collection {
	c := Collection{
		TotalCardsInDB: len(states),
		NumCards:       len(cards),
		Lifecycles:     make(map[Lifecycle]int),
		UpcomingWeek:   make(map[string]int),
		FilePaths:      make(map[string]int),
	}

	params := fsrs.DefaultParams()
	horizon := now.Add(fsrs.LearnAheadThreshold)
	weekHorizon := now.Add(7 * 24 * time.Hour)
	monthHorizon := now.Add(30 * 24 * time.Hour)

	for _, card := range cards {
		perf := states[card.Hash]
		c.FilePaths[card.SourcePath]++

		switch {
		case perf == nil:
			c.Lifecycles[New]++
		case perf.IntervalRaw > matureInterval:
			c.Lifecycles[Mature]++
		default:
			c.Lifecycles[Young]++
		}

		if perf == nil || !perf.DueDate.After(horizon) {
			c.DueCards++
			c.UpcomingWeek[now.Format("2006-01-02")]++
			c.UpcomingMonth++
		} else {
			if !perf.DueDate.After(weekHorizon) {
				c.UpcomingWeek[perf.DueDate.Format("2006-01-02")]++
			}
			if !perf.DueDate.After(monthHorizon) {
				c.UpcomingMonth++
			}
		}

		if perf == nil {
			continue
		}
		c.Difficulty.Update(perf.Difficulty / 10)

		elapsedDays := now.Sub(perf.LastReviewedAt).Hours() / 24
		if elapsedDays < 0 {
			elapsedDays = 0
		}
		c.Retrievability.Update(params.Retrievability(elapsedDays, perf.Stability))
	}

	return c
}
