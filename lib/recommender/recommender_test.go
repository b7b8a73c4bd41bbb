package recommender

import (
	"context"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/mediaswipe/recommender/lib/analyzer"
	"github.com/mediaswipe/recommender/lib/collab"
	"github.com/mediaswipe/recommender/lib/relevance"
	"github.com/mediaswipe/recommender/lib/simcache"
	"github.com/mediaswipe/recommender/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore backs the manager with in-memory data. It also satisfies
// collab.LikesStore so one fixture drives both engines.
type fakeStore struct {
	catalog []models.Content
	likes   map[string][]string
	prefs   map[string]*models.UserPreference
	saved   []*models.UserPreference
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		likes: make(map[string][]string),
		prefs: make(map[string]*models.UserPreference),
	}
}

func (f *fakeStore) byID(id string) (models.Content, bool) {
	for _, c := range f.catalog {
		if c.ID == id {
			return c, true
		}
	}
	return models.Content{}, false
}

func (f *fakeStore) GetCatalog(ctx context.Context, userID, category string) ([]models.Content, error) {
	out := make([]models.Content, 0, len(f.catalog))
	for _, c := range f.catalog {
		if category == "" || c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLikedContent(ctx context.Context, userID string) ([]models.Content, error) {
	out := make([]models.Content, 0)
	for _, id := range f.likes[userID] {
		if c, ok := f.byID(id); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetContent(ctx context.Context, ids []string) ([]models.Content, error) {
	out := make([]models.Content, 0, len(ids))
	for _, id := range ids {
		if c, ok := f.byID(id); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreference, error) {
	return f.prefs[userID], nil
}

func (f *fakeStore) SavePreferences(ctx context.Context, pref *models.UserPreference) error {
	f.prefs[pref.UserID] = pref
	f.saved = append(f.saved, pref)
	return nil
}

func (f *fakeStore) SetLikedStatus(ctx context.Context, userID, contentID string, liked bool) error {
	if liked {
		f.likes[userID] = append(f.likes[userID], contentID)
	}
	return nil
}

func (f *fakeStore) GetLikedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, id := range f.likes[userID] {
		set[id] = struct{}{}
	}
	return set, nil
}

func (f *fakeStore) GetAllUserIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.likes))
	for id := range f.likes {
		ids = append(ids, id)
	}
	return ids, nil
}

func newTestRecommender(store *fakeStore) *Recommender {
	logger := slog.Default()
	scorer := relevance.NewWithSource(logger, rand.New(rand.NewSource(1)), func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	})
	filter := collab.New(store, simcache.NewMemory(), logger)
	prefAnalyzer := analyzer.New(nil, logger)
	return New(store, scorer, filter, prefAnalyzer, logger)
}

func content(id, category string) models.Content {
	return models.Content{ID: id, Category: category, Rating: 7, ReleaseYear: 2022}
}

func TestMergeRankedQuotasAndBackfill(t *testing.T) {
	cb := []models.Content{
		content("c1", "movie"), content("c2", "movie"), content("c3", "movie"),
		content("c4", "movie"), content("c5", "movie"), content("c6", "movie"),
		content("c7", "movie"), content("c8", "movie"), content("c9", "movie"),
		content("c10", "movie"),
	}
	cf := []models.Content{
		content("f1", "movie"), content("f2", "movie"), content("f3", "movie"),
		content("f4", "movie"), content("f5", "movie"),
	}

	got := mergeRanked(cb, cf, 10)
	require.Len(t, got, 10)

	// 60% content-based first, then 40% collaborative.
	wantIDs := []string{"c1", "c2", "c3", "c4", "c5", "c6", "f1", "f2", "f3", "f4"}
	for i, want := range wantIDs {
		assert.Equal(t, want, got[i].ID, "position %d", i)
	}
}

func TestMergeRankedDeduplicates(t *testing.T) {
	cb := []models.Content{content("a", "movie"), content("b", "movie"), content("c", "movie")}
	cf := []models.Content{content("b", "movie"), content("d", "movie")}

	got := mergeRanked(cb, cf, 10)

	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestMergeRankedBackfillsFromContentRemainder(t *testing.T) {
	cb := []models.Content{
		content("c1", "movie"), content("c2", "movie"), content("c3", "movie"),
		content("c4", "movie"), content("c5", "movie"), content("c6", "movie"),
		content("c7", "movie"), content("c8", "movie"),
	}

	// No collaborative candidates: the collab quota goes unused and the
	// content remainder fills the list.
	got := mergeRanked(cb, nil, 8)
	require.Len(t, got, 8)
	assert.Equal(t, "c8", got[7].ID)
}

func TestMergeRankedNeverExceedsLimit(t *testing.T) {
	cb := []models.Content{content("a", "movie"), content("b", "movie"), content("c", "movie")}
	cf := []models.Content{content("d", "movie"), content("e", "movie"), content("f", "movie")}

	for limit := 1; limit <= 6; limit++ {
		got := mergeRanked(cb, cf, limit)
		assert.LessOrEqual(t, len(got), limit, "limit %d", limit)
	}
}

func TestGetRecommendationsExcludesLiked(t *testing.T) {
	store := newFakeStore()
	store.catalog = []models.Content{
		content("a", models.CategoryMovie),
		content("b", models.CategoryMovie),
		content("c", models.CategoryMovie),
	}
	store.likes["u1"] = []string{"b"}

	rec := newTestRecommender(store)
	got, err := rec.GetRecommendations(context.Background(), "u1", "", 10)
	require.NoError(t, err)

	for _, c := range got {
		assert.NotEqual(t, "b", c.ID)
	}
}

func TestGetRecommendationsCategoryFilter(t *testing.T) {
	store := newFakeStore()
	store.catalog = []models.Content{
		content("m1", models.CategoryMovie),
		content("b1", models.CategoryBook),
		content("m2", models.CategoryMovie),
	}

	rec := newTestRecommender(store)
	got, err := rec.GetRecommendations(context.Background(), "u1", models.CategoryBook, 10)
	require.NoError(t, err)

	require.NotEmpty(t, got)
	for _, c := range got {
		assert.Equal(t, models.CategoryBook, c.Category)
	}
}

func TestGetRecommendationsZeroLimit(t *testing.T) {
	store := newFakeStore()
	store.catalog = []models.Content{content("a", models.CategoryMovie)}

	rec := newTestRecommender(store)
	got, err := rec.GetRecommendations(context.Background(), "u1", "", 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAnalyzeAndUpdatePreferencesCreatesProfile(t *testing.T) {
	store := newFakeStore()
	store.catalog = []models.Content{
		{ID: "a", Category: models.CategoryMovie, Genres: "Action", ReleaseYear: 2020, DurationMinutes: 100},
		{ID: "b", Category: models.CategoryMovie, Genres: "Action, Drama", ReleaseYear: 2022, DurationMinutes: 110},
	}
	store.likes["u1"] = []string{"a", "b"}

	rec := newTestRecommender(store)
	require.NoError(t, rec.AnalyzeAndUpdatePreferences(context.Background(), "u1"))

	saved := store.prefs["u1"]
	require.NotNil(t, saved)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, models.StringList{"Action", "Drama"}, saved.PreferredGenres)
	assert.Equal(t, 2015, saved.MinYear)
	assert.Equal(t, 2025, saved.MaxYear)
}

func TestAnalyzeAndUpdatePreferencesNoLikes(t *testing.T) {
	store := newFakeStore()

	rec := newTestRecommender(store)
	require.NoError(t, rec.AnalyzeAndUpdatePreferences(context.Background(), "u1"))

	// Nothing to learn from, nothing persisted.
	assert.Empty(t, store.saved)
}

func TestHandleLikeEventRecordsSwipe(t *testing.T) {
	store := newFakeStore()
	store.catalog = []models.Content{content("a", models.CategoryMovie)}

	rec := newTestRecommender(store)
	require.NoError(t, rec.HandleLikeEvent(context.Background(), "u1", "a", false))

	// Dislikes are recorded without scheduling an analysis.
	assert.Empty(t, store.likes["u1"])
}
