package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mediaswipe/recommender/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTagger struct{}

func (failingTagger) Tags(ctx context.Context, liked []models.Content) ([]string, error) {
	return nil, errors.New("tagger backend down")
}

func TestAnalyzeNoOpCases(t *testing.T) {
	a := New(nil, slog.Default())
	ctx := context.Background()

	pref := models.NewUserPreference("u1")
	pref.PreferredGenres = models.StringList{"Action"}

	t.Run("no likes keeps profile untouched", func(t *testing.T) {
		got := a.Analyze(ctx, "u1", nil, pref)
		assert.Equal(t, pref, got)
	})

	t.Run("nil profile stays nil", func(t *testing.T) {
		liked := []models.Content{{ID: "a", Genres: "Drama"}}
		assert.Nil(t, a.Analyze(ctx, "u1", liked, nil))
	})
}

func TestAnalyzeTopGenres(t *testing.T) {
	a := New(nil, slog.Default())

	liked := []models.Content{
		{ID: "1", Genres: "Action, Drama"},
		{ID: "2", Genres: "Action, Comedy"},
		{ID: "3", Genres: "Action, Drama, Horror"},
		{ID: "4", Genres: "Drama, Western"},
		{ID: "5", Genres: "Thriller"},
	}

	got := a.Analyze(context.Background(), "u1", liked, models.NewUserPreference("u1"))
	require.NotNil(t, got)

	// Action 3, Drama 3, then the singletons alphabetically with one cut.
	assert.Equal(t, models.StringList{"Action", "Drama", "Comedy", "Horror", "Thriller"}, got.PreferredGenres)
}

func TestAnalyzeGenreCaseFolding(t *testing.T) {
	a := New(nil, slog.Default())

	liked := []models.Content{
		{ID: "1", Genres: "Sci-Fi"},
		{ID: "2", Genres: "sci-fi"},
		{ID: "3", Genres: "SCI-FI"},
	}

	got := a.Analyze(context.Background(), "u1", liked, models.NewUserPreference("u1"))
	require.NotNil(t, got)
	// Counted as one genre under the first-seen spelling.
	assert.Equal(t, models.StringList{"Sci-Fi"}, got.PreferredGenres)
}

func TestAnalyzeYearRangeWidening(t *testing.T) {
	a := New(nil, slog.Default())

	liked := []models.Content{
		{ID: "1", Category: models.CategoryMovie, ReleaseYear: 1995},
		{ID: "2", Category: models.CategoryMovie, ReleaseYear: 2010},
		{ID: "3", Category: models.CategoryMovie}, // unknown year ignored
	}

	got := a.Analyze(context.Background(), "u1", liked, models.NewUserPreference("u1"))
	require.NotNil(t, got)
	assert.Equal(t, 1990, got.MinYear)
	assert.Equal(t, 2015, got.MaxYear)
}

func TestAnalyzeYearRangeClamps(t *testing.T) {
	a := New(nil, slog.Default())

	liked := []models.Content{
		{ID: "1", Category: models.CategoryMovie, ReleaseYear: 1902},
		{ID: "2", Category: models.CategoryMovie, ReleaseYear: 2024},
	}

	got := a.Analyze(context.Background(), "u1", liked, models.NewUserPreference("u1"))
	require.NotNil(t, got)
	assert.Equal(t, 1900, got.MinYear)
	assert.Equal(t, 2025, got.MaxYear)
}

func TestAnalyzeKeepsRangesWithoutUsableValues(t *testing.T) {
	a := New(nil, slog.Default())

	pref := models.NewUserPreference("u1")
	pref.MinYear = 1980
	pref.MaxYear = 1990
	pref.MinDuration = 30
	pref.MaxDuration = 90

	// All years unknown, all durations not applicable.
	liked := []models.Content{
		{ID: "1", Category: models.CategoryBook, Genres: "Fantasy"},
		{ID: "2", Category: models.CategoryBook, Genres: "Fantasy"},
	}

	got := a.Analyze(context.Background(), "u1", liked, pref)
	require.NotNil(t, got)
	assert.Equal(t, 1980, got.MinYear)
	assert.Equal(t, 1990, got.MaxYear)
	assert.Equal(t, 30, got.MinDuration)
	assert.Equal(t, 90, got.MaxDuration)
}

func TestAnalyzeDurationRangeFloorsAtZero(t *testing.T) {
	a := New(nil, slog.Default())

	liked := []models.Content{
		{ID: "1", Category: models.CategoryMovie, DurationMinutes: 20},
		{ID: "2", Category: models.CategoryMovie, DurationMinutes: 110},
	}

	got := a.Analyze(context.Background(), "u1", liked, models.NewUserPreference("u1"))
	require.NotNil(t, got)
	assert.Equal(t, 0, got.MinDuration)
	assert.Equal(t, 140, got.MaxDuration)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a := New(nil, slog.Default())
	ctx := context.Background()

	liked := []models.Content{
		{ID: "1", Category: models.CategoryMovie, Title: "Space War", Genres: "Sci-Fi, Action", ReleaseYear: 2020, DurationMinutes: 120},
		{ID: "2", Category: models.CategoryMovie, Title: "The Last Battle", Genres: "Action", ReleaseYear: 2018, DurationMinutes: 95},
	}

	first := a.Analyze(ctx, "u1", liked, models.NewUserPreference("u1"))
	second := a.Analyze(ctx, "u1", liked, first)
	assert.Equal(t, first, second)
}

func TestAnalyzeTaggerFailureKeepsPreviousTags(t *testing.T) {
	a := New(failingTagger{}, slog.Default())

	pref := models.NewUserPreference("u1")
	pref.InterestTags = models.StringList{"war"}

	liked := []models.Content{{ID: "1", Genres: "Action"}}
	got := a.Analyze(context.Background(), "u1", liked, pref)
	require.NotNil(t, got)
	assert.Equal(t, models.StringList{"war"}, got.InterestTags)
}

func TestKeywordTagger(t *testing.T) {
	tagger := KeywordTagger{}

	tests := []struct {
		name   string
		titles []string
		want   []string
	}{
		{"no keywords", []string{"Cooking Basics"}, nil},
		{"single theme", []string{"The Great War"}, []string{"war"}},
		{
			"multiple themes sorted",
			[]string{"Space Battle", "Dragon Kingdom", "Murder on the Line"},
			[]string{"detective", "fantasy", "sci-fi", "war"},
		},
		{"case insensitive", []string{"ZOMBIE NIGHTS"}, []string{"horror"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			liked := make([]models.Content, len(tt.titles))
			for i, title := range tt.titles {
				liked[i] = models.Content{ID: title, Title: title}
			}
			got, err := tagger.Tags(context.Background(), liked)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
