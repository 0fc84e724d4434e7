package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/conorfennell/repeater/internal/storage"
)

const (
	// checkInterval throttles remote lookups; promptInterval throttles
	// how often the user is prompted, whatever the release.
	checkInterval  = 24 * time.Hour
	promptInterval = 7 * 24 * time.Hour

	latestReleaseURL = "https://api.github.com/repos/conorfennell/repeater/releases/latest"
	requestTimeout   = 2 * time.Second
)

// Notification describes an available update.
type Notification struct {
	CurrentVersion string
	LatestVersion  string
}

type release struct {
	TagName string `json:"tag_name"`
}

// ShouldNotify applies the prompt throttles: at most one remote check
// per day and one prompt per week.
func ShouldNotify(now time.Time, vu storage.VersionUpdate) bool {
	if vu.LastVersionCheckAt != nil && now.Sub(*vu.LastVersionCheckAt) < checkInterval {
		return false
	}
	if vu.LastPromptedAt != nil && now.Sub(*vu.LastPromptedAt) < promptInterval {
		return false
	}
	return true
}

// Check looks up the latest release and returns a notification when its
// version differs from current (after stripping a leading "v"); versions
// are compared for equality only, not ordered. Best-effort: callers
// typically ignore errors.
func Check(ctx context.Context, db *storage.DB, current string, now time.Time) (*Notification, error) {
	vu, err := db.VersionUpdate(ctx)
	if err != nil {
		return nil, err
	}
	if !ShouldNotify(now, vu) {
		return nil, nil
	}

	latest, err := fetchLatest(ctx)
	if err != nil {
		return nil, err
	}

	if err := db.TouchVersionCheck(ctx, now); err != nil {
		return nil, err
	}

	if normalize(latest) == normalize(current) {
		return nil, nil
	}
	return &Notification{
		CurrentVersion: normalize(current),
		LatestVersion:  normalize(latest),
	}, nil
}

func fetchLatest(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestReleaseURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup returned %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", err
	}
	return rel.TagName, nil
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}
