package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/repeater/internal/gitsource"
	"github.com/conorfennell/repeater/internal/storage"
)

// SyncSources reconciles every registered deck source: git sources are
// fetched concurrently into reposDir, then all roots are indexed in one
// pass. A source that fails to fetch is reported and skipped; the rest
// still index.
func SyncSources(ctx context.Context, db *storage.DB, reposDir string, now time.Time) (Result, error) {
	sources, err := db.Sources(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(sources) == 0 {
		slog.Info("no sources configured; add one with 'repeater sources add <path-or-url>'")
		return Result{}, nil
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create repos directory: %w", err)
	}

	paths := make([]string, len(sources))
	fetchErrs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		if src.Kind != "git" {
			paths[i] = src.Path
			continue
		}
		local, err := gitsource.LocalPath(reposDir, src.Path)
		if err != nil {
			fetchErrs[i] = err
			continue
		}
		paths[i] = local
		g.Go(func() error {
			if err := gitsource.Sync(gctx, src.Path, local); err != nil {
				fetchErrs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	roots := make([]string, 0, len(paths))
	var result Result
	for i, path := range paths {
		if fetchErrs[i] != nil {
			slog.Error("failed to sync source", "path", sources[i].Path, "error", fetchErrs[i])
			result.FileErrors = append(result.FileErrors, fetchErrs[i])
			continue
		}
		if path != "" {
			roots = append(roots, path)
		}
	}

	indexed, err := Index(ctx, db, roots, now)
	if err != nil {
		return result, err
	}
	indexed.FileErrors = append(result.FileErrors, indexed.FileErrors...)

	for _, src := range sources {
		if err := db.TouchSourceScanned(ctx, src.ID, now); err != nil {
			slog.Warn("failed to update source scan time", "source", src.Path, "error", err)
		}
	}
	return indexed, nil
}
