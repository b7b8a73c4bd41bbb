// Package analyzer rebuilds a user's preference profile from their
// accumulated likes: top genres by frequency, widened year and duration
// ranges, and interest tags from a pluggable tagger.
package analyzer

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/mediaswipe/recommender/models"
)

const (
	// topGenres is how many genres a profile retains.
	topGenres = 5

	// yearPadding and durationPadding widen the observed ranges so the
	// scorer does not punish items just outside what the user happened
	// to like so far.
	yearPadding     = 5
	durationPadding = 30

	// minKnownYear / maxKnownYear clamp the widened year range.
	minKnownYear = 1900
	maxKnownYear = 2025
)

// Analyzer derives preference profiles. It is pure: Analyze returns a
// new profile and the caller persists it.
type Analyzer struct {
	tagger Tagger
	logger *slog.Logger
}

func New(tagger Tagger, logger *slog.Logger) *Analyzer {
	if tagger == nil {
		tagger = KeywordTagger{}
	}
	return &Analyzer{tagger: tagger, logger: logger}
}

// Analyze recomputes the profile from the liked snapshot. Each run is a
// full recompute, not an incremental blend. With no likes or no current
// profile the input profile is returned untouched.
func (a *Analyzer) Analyze(ctx context.Context, userID string, liked []models.Content, current *models.UserPreference) *models.UserPreference {
	if len(liked) == 0 || current == nil {
		return current
	}

	updated := *current
	updated.UserID = userID
	updated.PreferredGenres = topGenresByFrequency(liked)

	if minYear, maxYear, ok := yearRange(liked); ok {
		updated.MinYear = clampYear(minYear - yearPadding)
		updated.MaxYear = clampYear(maxYear + yearPadding)
	}
	if minDur, maxDur, ok := durationRange(liked); ok {
		lo := minDur - durationPadding
		if lo < 0 {
			lo = 0
		}
		updated.MinDuration = lo
		updated.MaxDuration = maxDur + durationPadding
	}

	tags, err := a.tagger.Tags(ctx, liked)
	if err != nil {
		// Keep the previous tags rather than wiping them on a flaky
		// tagger backend.
		a.logger.Warn("Interest tagging failed, keeping previous tags",
			slog.String("user", userID), slog.Any("error", err))
	} else {
		updated.InterestTags = tags
	}

	return &updated
}

// topGenresByFrequency tallies genre tags across all liked items and
// returns the most frequent topGenres, ties broken alphabetically so
// repeated runs over unchanged input agree.
func topGenresByFrequency(liked []models.Content) models.StringList {
	counts := make(map[string]int)
	display := make(map[string]string)

	for _, c := range liked {
		for _, g := range c.GenreList() {
			key := strings.ToLower(g)
			if _, ok := display[key]; !ok {
				display[key] = g
			}
			counts[key]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if len(keys) > topGenres {
		keys = keys[:topGenres]
	}
	genres := make(models.StringList, len(keys))
	for i, k := range keys {
		genres[i] = display[k]
	}
	return genres
}

// yearRange finds the min and max release year across liked items,
// ignoring the unknown-year sentinel 0.
func yearRange(liked []models.Content) (minYear, maxYear int, ok bool) {
	for _, c := range liked {
		year := c.Year()
		if year == 0 {
			continue
		}
		if !ok || year < minYear {
			minYear = year
		}
		if !ok || year > maxYear {
			maxYear = year
		}
		ok = true
	}
	return minYear, maxYear, ok
}

func durationRange(liked []models.Content) (minDur, maxDur int, ok bool) {
	for _, c := range liked {
		minutes := c.Runtime()
		if minutes == 0 {
			continue
		}
		if !ok || minutes < minDur {
			minDur = minutes
		}
		if !ok || minutes > maxDur {
			maxDur = minutes
		}
		ok = true
	}
	return minDur, maxDur, ok
}

func clampYear(year int) int {
	if year < minKnownYear {
		return minKnownYear
	}
	if year > maxKnownYear {
		return maxKnownYear
	}
	return year
}
