package sync

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/repeater/internal/domain"
	"github.com/conorfennell/repeater/internal/fsrs"
	"github.com/conorfennell/repeater/internal/parser"
	"github.com/conorfennell/repeater/internal/storage"
)

// Status classifies an indexed card against the clock at index time.
type Status int

const (
	StatusNew Status = iota
	StatusOverdue
	StatusDueNow
	StatusFuture
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusOverdue:
		return "overdue"
	case StatusDueNow:
		return "due-now"
	default:
		return "future"
	}
}

// IndexedCard is a parsed card annotated with its stored state.
type IndexedCard struct {
	domain.Card
	Status Status
	Perf   *domain.Performance
}

// Result is what one indexing pass produced. Parse and file errors are
// collected, not fatal; only store failures abort indexing.
type Result struct {
	Cards         []IndexedCard
	ParseErrors   []parser.ParseError
	FileErrors    []error
	FilesSearched int
	MarkdownFiles int
	NewCards      int
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// Index walks the given paths, parses every deck file, registers unseen
// hashes in the store and annotates each card with its due status.
// Directories recurse; explicit file paths are indexed as-is. The first
// occurrence of a hash wins when decks duplicate a card.
func Index(ctx context.Context, db *storage.DB, paths []string, now time.Time) (Result, error) {
	var result Result
	seen := make(map[string]bool)

	parseInto := func(path string) {
		result.MarkdownFiles++
		cards, parseErrs, err := parser.ParseFile(path)
		if err != nil {
			result.FileErrors = append(result.FileErrors, err)
			return
		}
		result.ParseErrors = append(result.ParseErrors, parseErrs...)
		for _, card := range cards {
			if seen[card.Hash] {
				continue
			}
			seen[card.Hash] = true
			result.Cards = append(result.Cards, IndexedCard{Card: card})
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			result.FileErrors = append(result.FileErrors, err)
			continue
		}
		if !info.IsDir() {
			// Explicit files are indexed as-is.
			result.FilesSearched++
			parseInto(root)
			continue
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				result.FileErrors = append(result.FileErrors, err)
				return nil
			}
			if d.IsDir() {
				return ctx.Err()
			}
			result.FilesSearched++
			if isMarkdown(path) {
				parseInto(path)
			}
			return ctx.Err()
		})
		if walkErr != nil {
			return result, walkErr
		}
	}

	for i := range result.Cards {
		inserted, err := db.UpsertNew(ctx, result.Cards[i].Hash, now)
		if err != nil {
			return result, err
		}
		if inserted {
			result.NewCards++
		}
	}

	states, err := db.AllStates(ctx)
	if err != nil {
		return result, err
	}
	horizon := now.Add(fsrs.LearnAheadThreshold)
	for i := range result.Cards {
		perf := states[result.Cards[i].Hash]
		result.Cards[i].Perf = perf
		result.Cards[i].Status = classify(perf, now, horizon)
	}

	slog.Debug("indexing complete",
		"files", result.FilesSearched,
		"markdown", result.MarkdownFiles,
		"cards", len(result.Cards),
		"new", result.NewCards,
		"errors", len(result.ParseErrors)+len(result.FileErrors),
	)
	return result, nil
}

func classify(perf *domain.Performance, now, horizon time.Time) Status {
	switch {
	case perf == nil:
		return StatusNew
	case perf.DueDate.Before(now):
		return StatusOverdue
	case !perf.DueDate.After(horizon):
		return StatusDueNow
	default:
		return StatusFuture
	}
}
