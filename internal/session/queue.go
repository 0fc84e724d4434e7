package session

import (
	"math/rand"
	"sort"
	"time"

	"github.com/conorfennell/repeater/internal/domain"
	"github.com/conorfennell/repeater/internal/fsrs"
)

// Item pairs an indexed card with its stored scheduling state (nil when
// the card has never been reviewed).
type Item struct {
	Card domain.Card
	Perf *domain.Performance
}

// Options are the per-session caps. Limits of zero or below mean
// unlimited. Shuffle permutes the seeded queue with the given seed so a
// session is reproducible.
type Options struct {
	CardLimit    int
	NewCardLimit int
	Shuffle      bool
	Seed         int64
}

// Queue is the mutable drill order for one session. Cards re-admitted
// after a short-interval grade go to the tail and never count against
// the caps a second time.
type Queue struct {
	pending []domain.Card
	pos     int
}

// Seed builds the session queue: due cards (overdue first, earliest due
// date first) then new cards in file order, ties broken by hash for
// determinism. Cards due beyond the learn-ahead window are excluded.
func Seed(items []Item, now time.Time, opts Options) *Queue {
	horizon := now.Add(fsrs.LearnAheadThreshold)

	var due, fresh []Item
	for _, item := range items {
		switch {
		case item.Perf == nil:
			fresh = append(fresh, item)
		case !item.Perf.DueDate.After(horizon):
			due = append(due, item)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].Perf.DueDate.Equal(due[j].Perf.DueDate) {
			return due[i].Perf.DueDate.Before(due[j].Perf.DueDate)
		}
		return due[i].Card.Hash < due[j].Card.Hash
	})

	if opts.NewCardLimit > 0 && len(fresh) > opts.NewCardLimit {
		fresh = fresh[:opts.NewCardLimit]
	}

	cards := make([]domain.Card, 0, len(due)+len(fresh))
	for _, item := range due {
		cards = append(cards, item.Card)
	}
	for _, item := range fresh {
		cards = append(cards, item.Card)
	}

	if opts.CardLimit > 0 && len(cards) > opts.CardLimit {
		cards = cards[:opts.CardLimit]
	}

	if opts.Shuffle {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
	}

	return &Queue{pending: cards}
}

// Next pops the next pending card. ok is false when the session is done.
func (q *Queue) Next() (domain.Card, bool) {
	if q.pos >= len(q.pending) {
		return domain.Card{}, false
	}
	card := q.pending[q.pos]
	q.pos++
	return card, true
}

// Readmit appends a card to the tail of the pending sequence.
func (q *Queue) Readmit(card domain.Card) {
	q.pending = append(q.pending, card)
}

// Position is the number of cards handed out so far.
func (q *Queue) Position() int { return q.pos }

// Total is the current length of the pending sequence, re-admissions
// included.
func (q *Queue) Total() int { return len(q.pending) }

// Remaining is how many cards are still pending.
func (q *Queue) Remaining() int { return len(q.pending) - q.pos }
