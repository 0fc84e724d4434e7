package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{
			"https url",
			"https://github.com/someone/decks.git",
			filepath.Join("repos", "github.com", "someone", "decks"),
		},
		{
			"https url without suffix",
			"https://github.com/someone/decks",
			filepath.Join("repos", "github.com", "someone", "decks"),
		},
		{
			"scp style",
			"git@github.com:someone/decks.git",
			filepath.Join("repos", "github.com", "someone", "decks"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if err != nil {
				t.Fatalf("LocalPath failed: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestLocalPathRejectsGarbage(t *testing.T) {
	if _, err := LocalPath("repos", "not a url at all"); err == nil {
		t.Fatal("expected an error for an unparseable url")
	}
}

func TestIsGitURL(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"https://github.com/someone/decks.git", true},
		{"git@github.com:someone/decks.git", true},
		{"/home/user/decks", false},
		{"./decks", false},
		{"decks.git", true},
	}
	for _, tc := range testCases {
		if got := IsGitURL(tc.path); got != tc.expected {
			t.Errorf("IsGitURL(%q) = %v, want %v", tc.path, got, tc.expected)
		}
	}
}
