package stats

import (
	"testing"
	"time"

	"github.com/conorfennell/repeater/internal/domain"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func sampleCard(hash, path string) domain.Card {
	return domain.Card{Hash: hash, Kind: domain.Basic, Question: "Q", Answer: "A", SourcePath: path}
}

func perf(stability float64, intervalRaw float64, due time.Time, last time.Time) *domain.Performance {
	return &domain.Performance{
		LastReviewedAt: last,
		Stability:      stability,
		Difficulty:     5.0,
		IntervalRaw:    intervalRaw,
		IntervalDays:   int(intervalRaw),
		DueDate:        due,
		ReviewCount:    3,
	}
}

func TestCollectCountsNewCardAsDue(t *testing.T) {
	cards := []domain.Card{sampleCard("h1", "deck/file.md")}
	states := map[string]*domain.Performance{"h1": nil}

	c := Collect(cards, states, t0)

	if c.Lifecycles[New] != 1 {
		t.Errorf("expected 1 new card, got %d", c.Lifecycles[New])
	}
	if c.DueCards != 1 {
		t.Errorf("expected new card to count as due, got %d", c.DueCards)
	}
	if c.UpcomingMonth != 1 {
		t.Errorf("expected new card in the month horizon, got %d", c.UpcomingMonth)
	}
	if c.FilePaths["deck/file.md"] != 1 {
		t.Errorf("expected file count 1, got %d", c.FilePaths["deck/file.md"])
	}
	// Unreviewed cards must not contribute to the difficulty histogram.
	if _, ok := c.Difficulty.Mean(); ok {
		t.Error("difficulty histogram must stay empty for unreviewed cards")
	}
}

func TestCollectMatureFutureCard(t *testing.T) {
	cards := []domain.Card{sampleCard("h1", "deck/file.md")}
	states := map[string]*domain.Performance{
		"h1": perf(30, 30, t0.Add(3*24*time.Hour), t0.Add(-27*24*time.Hour)),
	}

	c := Collect(cards, states, t0)

	if c.Lifecycles[Mature] != 1 {
		t.Errorf("expected 1 mature card, got %d", c.Lifecycles[Mature])
	}
	if c.DueCards != 0 {
		t.Errorf("expected no due cards, got %d", c.DueCards)
	}
	if c.UpcomingMonth != 1 {
		t.Errorf("expected card in month horizon, got %d", c.UpcomingMonth)
	}
	total := 0
	for _, n := range c.UpcomingWeek {
		total += n
	}
	if total != 1 {
		t.Errorf("expected 1 card in the week buckets, got %d", total)
	}
}

func TestCollectOrphansOnlyCountInTotal(t *testing.T) {
	cards := []domain.Card{sampleCard("h1", "deck/file.md")}
	states := map[string]*domain.Performance{
		"h1":     nil,
		"orphan": perf(2, 2, t0.Add(-time.Hour), t0.Add(-48*time.Hour)),
	}

	c := Collect(cards, states, t0)

	if c.TotalCardsInDB != 2 {
		t.Errorf("expected 2 rows in store, got %d", c.TotalCardsInDB)
	}
	if c.NumCards != 1 {
		t.Errorf("expected 1 indexed card, got %d", c.NumCards)
	}
	if c.DueCards != 1 {
		t.Errorf("orphans must not count as due, got %d", c.DueCards)
	}
}

func TestCollectReviewedCardHistograms(t *testing.T) {
	cards := []domain.Card{sampleCard("h1", "deck/file.md")}
	states := map[string]*domain.Performance{
		"h1": perf(5, 5, t0.Add(24*time.Hour), t0.Add(-4*24*time.Hour)),
	}

	c := Collect(cards, states, t0)

	if mean, ok := c.Difficulty.Mean(); !ok || mean != 0.5 {
		t.Errorf("expected difficulty mean 0.5, got %f ok=%v", mean, ok)
	}
	if _, ok := c.Retrievability.Mean(); !ok {
		t.Error("expected a retrievability observation")
	}
}

func TestHistogram(t *testing.T) {
	var h Histogram
	if _, ok := h.Mean(); ok {
		t.Error("empty histogram must report no mean")
	}

	for _, v := range []float64{0.2, 0.4, 0.6} {
		h.Update(v)
	}
	mean, ok := h.Mean()
	if !ok || mean < 0.399 || mean > 0.401 {
		t.Errorf("expected mean ~0.4, got %f", mean)
	}

	h.Update(1.0) // top edge lands in the last bin
	if h.Bins[histogramBins-1] != 1 {
		t.Errorf("expected the top value in the last bin, got %v", h.Bins)
	}
}
