package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/repeater/internal/config"
	"github.com/conorfennell/repeater/internal/domain"
	"github.com/conorfennell/repeater/internal/fsrs"
	"github.com/conorfennell/repeater/internal/gitsource"
	"github.com/conorfennell/repeater/internal/session"
	"github.com/conorfennell/repeater/internal/stats"
	"github.com/conorfennell/repeater/internal/storage"
	"github.com/conorfennell/repeater/internal/sync"
	"github.com/conorfennell/repeater/internal/version"
	"github.com/conorfennell/repeater/internal/watch"
)

// buildVersion is overridden at release time via -ldflags.
var buildVersion = "0.1.0"

const usage = `repeater - spaced repetition for the terminal

Usage:
  repeater drill [paths...]    drill the cards due today
  repeater check [paths...]    re-index decks and show collection stats
  repeater sources [add PATH]  list or register deck sources
  repeater sync                fetch registered sources and re-index them
  repeater watch [paths...]    re-index decks whenever they change
  repeater version             show the version and check for updates

Common flags:
  --config PATH       config file (default: user config dir)
  --db-path PATH      database file (default: user data dir)
  --verbose           debug logging

Drill flags:
  --card-limit N      cap the session size
  --new-card-limit N  cap how many new cards enter the session
  --shuffle           randomize the session order
  --seed N            seed for --shuffle (reproducible sessions)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "drill":
		return runDrill(ctx, rest)
	case "check":
		return runCheck(ctx, rest)
	case "sources":
		return runSources(ctx, rest)
	case "sync":
		return runSync(ctx, rest)
	case "watch":
		return runWatch(ctx, rest)
	case "version":
		return runVersion(ctx, rest)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "", "config file path")
	flags.String("db-path", "", "database file path")
	flags.Bool("verbose", false, "debug logging")
	return flags
}

func loadConfig(flags *pflag.FlagSet, args []string) (config.Config, []string, error) {
	if err := flags.Parse(args); err != nil {
		return config.Config{}, nil, err
	}

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		if p, err := config.DefaultPath(); err == nil {
			configPath = p
		}
	}

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return config.Config{}, nil, err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return cfg, flags.Args(), nil
}

func openDB(cfg config.Config) (*storage.DB, error) {
	if cfg.DBPath != "" {
		return storage.Open(cfg.DBPath)
	}
	return storage.OpenDefault()
}

// deckPaths picks the deck roots for a command: positional args, then
// the configured paths, then the working directory.
func deckPaths(cfg config.Config, positional []string) []string {
	if len(positional) > 0 {
		return positional
	}
	if len(cfg.Paths) > 0 {
		return cfg.Paths
	}
	return []string{"."}
}

func reportIndexIssues(result sync.Result) {
	for _, perr := range result.ParseErrors {
		slog.Warn("skipping malformed card", "error", perr.Error())
	}
	for _, ferr := range result.FileErrors {
		slog.Warn("skipping unreadable path", "error", ferr.Error())
	}
}

func runDrill(ctx context.Context, args []string) error {
	flags := newFlagSet("drill")
	flags.Int("card-limit", 0, "maximum cards per session")
	flags.Int("new-card-limit", 0, "maximum new cards per session")
	flags.Bool("shuffle", false, "randomize session order")
	flags.Int64("seed", 0, "shuffle seed")
	cfg, positional, err := loadConfig(flags, args)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()
	result, err := sync.Index(ctx, db, deckPaths(cfg, positional), now)
	if err != nil {
		return err
	}
	reportIndexIssues(result)

	items := make([]session.Item, 0, len(result.Cards))
	for _, card := range result.Cards {
		items = append(items, session.Item{Card: card.Card, Perf: card.Perf})
	}

	seed := cfg.Seed
	if cfg.Shuffle && seed == 0 {
		seed = now.UnixNano()
	}
	queue := session.Seed(items, now, session.Options{
		CardLimit:    cfg.CardLimit,
		NewCardLimit: cfg.NewCardLimit,
		Shuffle:      cfg.Shuffle,
		Seed:         seed,
	})

	if queue.Remaining() == 0 {
		fmt.Println("All caught up - no cards due today.")
		return nil
	}

	if err := drillLoop(ctx, db, queue); err != nil {
		return err
	}
	notifyUpdates(ctx, db)
	return nil
}

// drillLoop is a plain line-oriented driver around the session queue.
// The full-screen TUI lives outside the core; grades reach the scheduler
// the same way from either front end.
func drillLoop(ctx context.Context, db *storage.DB, queue *session.Queue) error {
	scheduler := fsrs.NewScheduler()
	stdin := bufio.NewScanner(os.Stdin)

	readLine := func() (string, bool) {
		if ctx.Err() != nil {
			return "", false
		}
		if !stdin.Scan() {
			return "", false
		}
		return strings.TrimSpace(strings.ToLower(stdin.Text())), true
	}

	for {
		card, ok := queue.Next()
		if !ok {
			fmt.Println("\nSession complete.")
			return nil
		}

		fmt.Printf("\n--- Card %d/%d (%s) ---\n", queue.Position(), queue.Total(), card.SourcePath)
		fmt.Println(card.Question)
		if len(card.MediaRefs) > 0 {
			fmt.Printf("(media: %s)\n", strings.Join(card.MediaRefs, ", "))
		}
		fmt.Print("[enter] show answer  [q] quit > ")
		input, ok := readLine()
		if !ok || input == "q" {
			return nil
		}

		fmt.Println(card.Answer)
		fmt.Print("[enter/p] pass  [f] fail  [q] quit > ")
		input, ok = readLine()
		if !ok || input == "q" {
			return nil
		}
		grade := domain.Pass
		if input == "f" {
			grade = domain.Fail
		}

		perf, known, err := db.Performance(ctx, card.Hash)
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("card %s disappeared from the store", card.Hash)
		}

		updated, requeue, err := scheduler.Update(perf, grade, time.Now())
		if err != nil {
			return err
		}
		if err := db.UpdateAfterReview(ctx, card.Hash, updated); err != nil {
			return err
		}
		if requeue {
			queue.Readmit(card)
		}
		fmt.Printf("%s (see again in %s)\n", grade, formatInterval(updated.IntervalRaw))
	}
}

// formatInterval renders a fractional-day interval the way the session
// footer shows it.
func formatInterval(days float64) string {
	const minutesPerDay = 24 * 60
	switch {
	case days <= 15.0/minutesPerDay:
		return "<15 mins"
	case days <= 30.0/minutesPerDay:
		return "<30 mins"
	case days <= 0.5:
		return "<12 hours"
	case days <= 1.0:
		return "<1 day"
	default:
		return fmt.Sprintf("%d days", int(days))
	}
}

func runCheck(ctx context.Context, args []string) error {
	flags := newFlagSet("check")
	cfg, positional, err := loadConfig(flags, args)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()
	result, err := sync.Index(ctx, db, deckPaths(cfg, positional), now)
	if err != nil {
		return err
	}
	reportIndexIssues(result)

	summary, err := db.Summary(ctx, now, fsrs.LearnAheadThreshold)
	if err != nil {
		return err
	}

	states, err := db.AllStates(ctx)
	if err != nil {
		return err
	}
	cards := make([]domain.Card, 0, len(result.Cards))
	for _, card := range result.Cards {
		cards = append(cards, card.Card)
	}
	collection := stats.Collect(cards, states, now)

	fmt.Printf("Indexed %d cards across %d markdown files (%d in store).\n",
		collection.NumCards, result.MarkdownFiles, collection.TotalCardsInDB)
	fmt.Printf("  new: %d  overdue: %d  due now: %d  later today: %d  this week: %d\n",
		summary.New, summary.Overdue, summary.DueNow, summary.UpcomingToday, summary.UpcomingWeek)
	fmt.Printf("  lifecycle: %d new / %d young / %d mature\n",
		collection.Lifecycles[stats.New], collection.Lifecycles[stats.Young], collection.Lifecycles[stats.Mature])
	if mean, ok := collection.Difficulty.Mean(); ok {
		fmt.Printf("  mean difficulty: %.1f/10\n", mean*10)
	}
	if mean, ok := collection.Retrievability.Mean(); ok {
		fmt.Printf("  mean retrievability: %.0f%%\n", mean*100)
	}

	if len(collection.UpcomingWeek) > 0 {
		days := make([]string, 0, len(collection.UpcomingWeek))
		for day := range collection.UpcomingWeek {
			days = append(days, day)
		}
		sort.Strings(days)
		fmt.Println("  upcoming week:")
		for _, day := range days {
			fmt.Printf("    %s  %d\n", day, collection.UpcomingWeek[day])
		}
	}

	if len(result.ParseErrors)+len(result.FileErrors) > 0 {
		fmt.Printf("  %d problem(s) reported above.\n", len(result.ParseErrors)+len(result.FileErrors))
	}
	return nil
}

func runSources(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "add" {
		if len(args) < 2 {
			return fmt.Errorf("usage: repeater sources add <path-or-url>")
		}
		path := args[1]
		flags := newFlagSet("sources")
		cfg, _, err := loadConfig(flags, args[2:])
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		kind := "local"
		if gitsource.IsGitURL(path) {
			kind = "git"
		} else {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		if err := db.AddSource(ctx, path, kind); err != nil {
			return err
		}
		fmt.Printf("Added %s source %s\n", kind, path)
		return nil
	}

	flags := newFlagSet("sources")
	cfg, _, err := loadConfig(flags, args)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := db.Sources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No sources configured. Add one with 'repeater sources add <path-or-url>'.")
		return nil
	}
	for _, src := range sources {
		scanned := "never"
		if src.LastScanned != nil {
			scanned = src.LastScanned.Local().Format(time.DateTime)
		}
		fmt.Printf("%3d  %-5s  %s  (last scanned: %s)\n", src.ID, src.Kind, src.Path, scanned)
	}
	return nil
}

func runSync(ctx context.Context, args []string) error {
	flags := newFlagSet("sync")
	cfg, _, err := loadConfig(flags, args)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	dataDir, err := storage.DataDir()
	if err != nil {
		return err
	}

	result, err := sync.SyncSources(ctx, db, filepath.Join(dataDir, "repos"), time.Now())
	if err != nil {
		return err
	}
	reportIndexIssues(result)
	fmt.Printf("Synced %d cards (%d new).\n", len(result.Cards), result.NewCards)
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	flags := newFlagSet("watch")
	cfg, positional, err := loadConfig(flags, args)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	roots := deckPaths(cfg, positional)
	reindex := func() {
		result, err := sync.Index(ctx, db, roots, time.Now())
		if err != nil {
			slog.Error("re-index failed", "error", err)
			return
		}
		reportIndexIssues(result)
		slog.Info("re-indexed decks", "cards", len(result.Cards), "new", result.NewCards)
	}

	reindex()
	return watch.Watch(ctx, roots, reindex)
}

func runVersion(ctx context.Context, args []string) error {
	flags := newFlagSet("version")
	cfg, _, err := loadConfig(flags, args)
	if err != nil {
		return err
	}
	fmt.Printf("repeater %s\n", buildVersion)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	notification, err := version.Check(ctx, db, buildVersion, time.Now())
	if err != nil {
		slog.Debug("version check failed", "error", err)
		return nil
	}
	if notification != nil {
		fmt.Printf("Update available: %s -> %s\n",
			notification.CurrentVersion, notification.LatestVersion)
		if err := db.TouchVersionPrompt(ctx, time.Now()); err != nil {
			slog.Debug("failed to record version prompt", "error", err)
		}
	}
	return nil
}

// notifyUpdates is the best-effort post-session update nag.
func notifyUpdates(ctx context.Context, db *storage.DB) {
	notification, err := version.Check(ctx, db, buildVersion, time.Now())
	if err != nil || notification == nil {
		return
	}
	fmt.Printf("\nA new version is available: %s -> %s\n",
		notification.CurrentVersion, notification.LatestVersion)
	if err := db.TouchVersionPrompt(ctx, time.Now()); err != nil {
		slog.Debug("failed to record version prompt", "error", err)
	}
}
