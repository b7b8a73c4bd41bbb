// Package collab implements user-based collaborative filtering over
// liked-item sets. Similarity is the Jaccard coefficient of two users'
// liked ids, cached per unordered pair for the engine's lifetime.
package collab

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mediaswipe/recommender/lib/simcache"
)

const (
	// minCommonItems guards against spurious similarity from tiny
	// overlaps: Jaccard of two single-item sets sharing that item would
	// otherwise be a perfect 1.0.
	minCommonItems = 3

	// smallOverlapSimilarity is assigned when users share fewer than
	// minCommonItems but at least one item.
	smallOverlapSimilarity = 0.1

	// similarityThreshold is the minimum similarity for a user to count
	// as a neighbor.
	similarityThreshold = 0.2

	// maxNeighbors caps the neighborhood size.
	maxNeighbors = 10

	// neutralPrediction is returned when no neighborhood exists.
	neutralPrediction = 0.5
)

// LikesStore supplies the user-item interaction snapshot the filter
// operates on.
type LikesStore interface {
	GetLikedIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	GetAllUserIDs(ctx context.Context) ([]string, error)
}

// Filter is a user-based collaborative filter.
type Filter struct {
	store  LikesStore
	cache  simcache.Store
	logger *slog.Logger
}

func New(store LikesStore, cache simcache.Store, logger *slog.Logger) *Filter {
	return &Filter{store: store, cache: cache, logger: logger}
}

// Similarity returns the Jaccard similarity of two users' liked sets in
// [0,1]. Results are cached; the cache is consulted under both key
// orderings before recomputing.
func (f *Filter) Similarity(ctx context.Context, userA, userB string) (float64, error) {
	if score, ok := f.cache.Get(ctx, pairKey(userA, userB)); ok {
		return score, nil
	}
	if score, ok := f.cache.Get(ctx, pairKey(userB, userA)); ok {
		return score, nil
	}

	likesA, err := f.store.GetLikedIDs(ctx, userA)
	if err != nil {
		return 0, fmt.Errorf("failed to get likes for %s: %w", userA, err)
	}
	likesB, err := f.store.GetLikedIDs(ctx, userB)
	if err != nil {
		return 0, fmt.Errorf("failed to get likes for %s: %w", userB, err)
	}

	score := jaccard(likesA, likesB)
	f.cache.Set(ctx, pairKey(userA, userB), score)
	return score, nil
}

// Predict estimates in [0,1] how likely the user is to like the content,
// as the similarity-weighted fraction of neighbors who liked it. Content
// the user already liked predicts 1.0 outright.
func (f *Filter) Predict(ctx context.Context, userID, contentID string) (float64, error) {
	likes, err := f.store.GetLikedIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if _, ok := likes[contentID]; ok {
		return 1.0, nil
	}

	neighbors, err := f.neighbors(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(neighbors) == 0 {
		return neutralPrediction, nil
	}

	var likedWeight, totalWeight float64
	for _, n := range neighbors {
		totalWeight += n.similarity
		if _, ok := n.likes[contentID]; ok {
			likedWeight += n.similarity
		}
	}
	if totalWeight == 0 {
		return neutralPrediction, nil
	}
	return likedWeight / totalWeight, nil
}

// Recommend returns up to limit content ids ordered by accumulated
// neighbor similarity. Items liked by several similar users surface
// first. With no qualifying neighbors the result is empty, not an error.
func (f *Filter) Recommend(ctx context.Context, userID string, limit int) ([]string, error) {
	targetLikes, err := f.store.GetLikedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.RecommendExcluding(ctx, userID, targetLikes, limit)
}

// RecommendExcluding is Recommend with an explicit exclusion set instead
// of the user's stored likes. The offline evaluator uses it to keep
// holdout likes eligible as candidates.
func (f *Filter) RecommendExcluding(ctx context.Context, userID string, excluded map[string]struct{}, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	neighbors, err := f.neighbors(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, n := range neighbors {
		for contentID := range n.likes {
			if _, ok := excluded[contentID]; ok {
				continue
			}
			scores[contentID] += n.similarity
		}
	}

	ranked := make([]string, 0, len(scores))
	for contentID := range scores {
		ranked = append(ranked, contentID)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

type neighbor struct {
	userID     string
	similarity float64
	likes      map[string]struct{}
}

// neighbors scans every other known user, keeps those at or above the
// similarity threshold, and returns at most maxNeighbors sorted by
// descending similarity.
func (f *Filter) neighbors(ctx context.Context, userID string) ([]neighbor, error) {
	userIDs, err := f.store.GetAllUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	neighbors := make([]neighbor, 0)
	for _, other := range userIDs {
		if other == userID {
			continue
		}

		sim, err := f.Similarity(ctx, userID, other)
		if err != nil {
			return nil, err
		}
		if sim < similarityThreshold {
			continue
		}

		likes, err := f.store.GetLikedIDs(ctx, other)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, neighbor{userID: other, similarity: sim, likes: likes})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].similarity > neighbors[j].similarity
	})
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}
	return neighbors, nil
}

// jaccard computes |A∩B| / |A∪B| with the small-overlap rule applied.
func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for id := range a {
		if _, ok := b[id]; ok {
			intersection++
		}
	}

	if intersection < minCommonItems {
		if intersection > 0 {
			return smallOverlapSimilarity
		}
		return 0.0
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func pairKey(a, b string) string {
	return a + "|" + b
}
