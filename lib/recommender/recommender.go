// Package recommender orchestrates the content-based scorer and the
// collaborative filter into one ranked recommendation list.
package recommender

import (
	"context"
	"fmt"
	"math"
	"time"

	"log/slog"

	"github.com/mediaswipe/recommender/lib/analyzer"
	"github.com/mediaswipe/recommender/lib/collab"
	"github.com/mediaswipe/recommender/lib/relevance"
	"github.com/mediaswipe/recommender/models"
)

const (
	// contentCandidateLimit caps the content-based pool before merging.
	contentCandidateLimit = 30

	// collabCandidateLimit caps how many ids the collaborative filter
	// contributes.
	collabCandidateLimit = 20

	// contentShare / collabShare split the output between the two
	// sources; content-based items fill any remaining slots.
	contentShare = 0.6
	collabShare  = 0.4

	// backgroundAnalysisTimeout bounds the re-analysis triggered by a
	// like event.
	backgroundAnalysisTimeout = 30 * time.Second
)

// Store is the data access the manager needs. *store.Store satisfies it.
type Store interface {
	GetCatalog(ctx context.Context, userID, category string) ([]models.Content, error)
	GetLikedContent(ctx context.Context, userID string) ([]models.Content, error)
	GetContent(ctx context.Context, ids []string) ([]models.Content, error)
	GetPreferences(ctx context.Context, userID string) (*models.UserPreference, error)
	SavePreferences(ctx context.Context, pref *models.UserPreference) error
	SetLikedStatus(ctx context.Context, userID, contentID string, liked bool) error
}

type Recommender struct {
	store    Store
	scorer   *relevance.Scorer
	filter   *collab.Filter
	analyzer *analyzer.Analyzer
	logger   *slog.Logger
}

func New(store Store, scorer *relevance.Scorer, filter *collab.Filter, analyzer *analyzer.Analyzer, logger *slog.Logger) *Recommender {
	return &Recommender{
		store:    store,
		scorer:   scorer,
		filter:   filter,
		analyzer: analyzer,
		logger:   logger,
	}
}

// GetRecommendations returns up to limit content records for the user,
// blending the content-based ranking with collaborative candidates.
// Empty results are a normal "nothing to show yet" state.
func (r *Recommender) GetRecommendations(ctx context.Context, userID, category string, limit int) ([]models.Content, error) {
	if limit <= 0 {
		return nil, nil
	}

	liked, err := r.store.GetLikedContent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.recommend(ctx, userID, category, liked, limit)
}

// RecommendWithLikes is GetRecommendations with an explicit liked
// snapshot in place of the stored one. The offline evaluator calls it
// with the training subset so holdout likes stay eligible; everything
// else about the live system (profile, similarities) is unchanged.
func (r *Recommender) RecommendWithLikes(ctx context.Context, userID string, liked []models.Content, limit int) ([]models.Content, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.recommend(ctx, userID, "", liked, limit)
}

func (r *Recommender) recommend(ctx context.Context, userID, category string, liked []models.Content, limit int) ([]models.Content, error) {
	catalog, err := r.store.GetCatalog(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	pref, err := r.store.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	contentBased := r.scorer.Rank(catalog, liked, pref)
	if len(contentBased) > contentCandidateLimit {
		contentBased = contentBased[:contentCandidateLimit]
	}

	excluded := make(map[string]struct{}, len(liked))
	for _, c := range liked {
		excluded[c.ID] = struct{}{}
	}
	collaborative, err := r.collaborativeCandidates(ctx, userID, category, excluded)
	if err != nil {
		return nil, err
	}

	merged := mergeRanked(contentBased, collaborative, limit)

	r.logger.Debug("Generated recommendations",
		slog.String("user", userID),
		slog.String("category", category),
		slog.Int("content_based", len(contentBased)),
		slog.Int("collaborative", len(collaborative)),
		slog.Int("returned", len(merged)))
	return merged, nil
}

// collaborativeCandidates resolves the filter's id list to records and
// drops anything outside the requested category.
func (r *Recommender) collaborativeCandidates(ctx context.Context, userID, category string, excluded map[string]struct{}) ([]models.Content, error) {
	ids, err := r.filter.RecommendExcluding(ctx, userID, excluded, collabCandidateLimit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := r.store.GetContent(ctx, ids)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return records, nil
	}

	filtered := records[:0]
	for _, c := range records {
		if c.Category == category {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// mergeRanked takes the content-based quota first, then the
// collaborative quota, deduplicating by id, and backfills from the rest
// of the content-based list until limit is reached.
func mergeRanked(contentBased, collaborative []models.Content, limit int) []models.Content {
	contentQuota := int(math.Ceil(float64(limit) * contentShare))
	collabQuota := int(math.Ceil(float64(limit) * collabShare))

	out := make([]models.Content, 0, limit)
	added := make(map[string]struct{}, limit)

	take := func(c models.Content) bool {
		if len(out) >= limit {
			return false
		}
		if _, ok := added[c.ID]; ok {
			return true
		}
		added[c.ID] = struct{}{}
		out = append(out, c)
		return true
	}

	contentTaken := 0
	for _, c := range contentBased {
		if contentTaken >= contentQuota || len(out) >= limit {
			break
		}
		take(c)
		contentTaken++
	}

	collabTaken := 0
	for _, c := range collaborative {
		if collabTaken >= collabQuota || len(out) >= limit {
			break
		}
		take(c)
		collabTaken++
	}

	// Backfill with the remainder of the content-based ranking.
	for i := contentTaken; i < len(contentBased) && len(out) < limit; i++ {
		take(contentBased[i])
	}

	return out
}

// AnalyzeAndUpdatePreferences rebuilds and persists the user's profile
// from their current likes, creating the profile on first analysis.
func (r *Recommender) AnalyzeAndUpdatePreferences(ctx context.Context, userID string) error {
	liked, err := r.store.GetLikedContent(ctx, userID)
	if err != nil {
		return err
	}
	if len(liked) == 0 {
		// Nothing to learn from yet; leave any existing profile alone.
		return nil
	}

	pref, err := r.store.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}
	if pref == nil {
		pref = models.NewUserPreference(userID)
	}

	updated := r.analyzer.Analyze(ctx, userID, liked, pref)
	if updated == nil {
		return nil
	}

	if err := r.store.SavePreferences(ctx, updated); err != nil {
		return fmt.Errorf("failed to save preferences for %s: %w", userID, err)
	}

	r.logger.Debug("Updated preference profile",
		slog.String("user", userID),
		slog.Int("liked", len(liked)),
		slog.Any("genres", updated.PreferredGenres))
	return nil
}

// HandleLikeEvent records a swipe verdict. Liked swipes schedule a
// background profile re-analysis off the interactive path.
func (r *Recommender) HandleLikeEvent(ctx context.Context, userID, contentID string, liked bool) error {
	if err := r.store.SetLikedStatus(ctx, userID, contentID, liked); err != nil {
		return err
	}

	if liked {
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), backgroundAnalysisTimeout)
			defer cancel()
			if err := r.AnalyzeAndUpdatePreferences(bg, userID); err != nil {
				r.logger.Error("Background preference analysis failed",
					slog.String("user", userID), slog.Any("error", err))
			}
		}()
	}
	return nil
}
