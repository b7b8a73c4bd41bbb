// Package quality is the offline evaluation harness: it holds out a
// slice of each user's likes, asks the live recommender for a ranked
// list, and scores the overlap with precision, recall, F1 and mean
// reciprocal rank.
//
// Known limitation: the recommender is not retrained on the 70%
// training split. Only the exclusion set is restricted to it; the
// preference profile and user similarities were built from the full
// liked history, holdout included. The resulting numbers are inflated
// and only comparable against themselves across runs.
package quality

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mediaswipe/recommender/models"
)

const (
	// minLikes is the smallest liked history worth evaluating.
	minLikes = 5

	// trainFraction of each user's likes is set aside; the rest is the
	// holdout the recommendations are scored against.
	trainFraction = 0.7

	// recLimit is how many recommendations are requested per user.
	recLimit = 20
)

// Weights for collapsing the four mean metrics into one scalar.
const (
	precisionWeight = 0.3
	recallWeight    = 0.2
	f1Weight        = 0.3
	mrrWeight       = 0.2
)

// RecommendationSource produces ranked recommendations against an
// explicit liked snapshot; the live recommender satisfies it. Passing
// only the training subset keeps holdout likes recommendable.
type RecommendationSource interface {
	RecommendWithLikes(ctx context.Context, userID string, liked []models.Content, limit int) ([]models.Content, error)
}

// UserStore supplies the population and liked snapshots to evaluate.
type UserStore interface {
	GetAllUserIDs(ctx context.Context) ([]string, error)
	GetLikedContent(ctx context.Context, userID string) ([]models.Content, error)
}

// UserMetrics are one user's holdout results.
type UserMetrics struct {
	UserID         string  `json:"user_id"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	ReciprocalRank float64 `json:"reciprocal_rank"`
	HoldoutSize    int     `json:"holdout_size"`
	Hits           int     `json:"hits"`
}

// Report aggregates the evaluation across the user population.
type Report struct {
	Overall        float64       `json:"overall"`
	MeanPrecision  float64       `json:"mean_precision"`
	MeanRecall     float64       `json:"mean_recall"`
	MeanF1         float64       `json:"mean_f1"`
	MeanMRR        float64       `json:"mean_mrr"`
	EvaluatedUsers int           `json:"evaluated_users"`
	SkippedUsers   int           `json:"skipped_users"`
	Users          []UserMetrics `json:"users,omitempty"`
}

// Evaluator runs holdout evaluations. The shuffle source is injectable
// so tests get deterministic splits.
type Evaluator struct {
	source RecommendationSource
	users  UserStore
	logger *slog.Logger
	rng    *rand.Rand
}

// New creates an Evaluator seeded from the wall clock.
func New(source RecommendationSource, users UserStore, logger *slog.Logger) *Evaluator {
	return NewWithSource(source, users, logger, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithSource creates an Evaluator with a fixed shuffle source.
func NewWithSource(source RecommendationSource, users UserStore, logger *slog.Logger, rng *rand.Rand) *Evaluator {
	return &Evaluator{source: source, users: users, logger: logger, rng: rng}
}

// Evaluate measures recommendation quality across all users. Users with
// fewer than minLikes liked items are skipped; an empty or fully
// skipped population yields an overall quality of exactly 0.0.
func (e *Evaluator) Evaluate(ctx context.Context) (*Report, error) {
	userIDs, err := e.users.GetAllUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var sumPrecision, sumRecall, sumF1, sumMRR float64

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metrics, ok, err := e.evaluateUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.SkippedUsers++
			continue
		}

		report.EvaluatedUsers++
		report.Users = append(report.Users, metrics)
		sumPrecision += metrics.Precision
		sumRecall += metrics.Recall
		sumF1 += metrics.F1
		sumMRR += metrics.ReciprocalRank
	}

	if report.EvaluatedUsers == 0 {
		e.logger.Info("Quality evaluation skipped all users",
			slog.Int("population", len(userIDs)))
		return report, nil
	}

	n := float64(report.EvaluatedUsers)
	report.MeanPrecision = sumPrecision / n
	report.MeanRecall = sumRecall / n
	report.MeanF1 = sumF1 / n
	report.MeanMRR = sumMRR / n
	report.Overall = precisionWeight*report.MeanPrecision +
		recallWeight*report.MeanRecall +
		f1Weight*report.MeanF1 +
		mrrWeight*report.MeanMRR

	e.logger.Info("Quality evaluation finished",
		slog.Float64("overall", report.Overall),
		slog.Int("evaluated", report.EvaluatedUsers),
		slog.Int("skipped", report.SkippedUsers))
	return report, nil
}

// evaluateUser returns the user's metrics and whether the user had
// enough likes to evaluate.
func (e *Evaluator) evaluateUser(ctx context.Context, userID string) (UserMetrics, bool, error) {
	liked, err := e.users.GetLikedContent(ctx, userID)
	if err != nil {
		return UserMetrics{}, false, err
	}
	if len(liked) < minLikes {
		return UserMetrics{}, false, nil
	}

	shuffled := make([]models.Content, len(liked))
	copy(shuffled, liked)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	trainSize := int(float64(len(shuffled)) * trainFraction)
	train := shuffled[:trainSize]
	holdout := make(map[string]struct{}, len(shuffled)-trainSize)
	for _, c := range shuffled[trainSize:] {
		holdout[c.ID] = struct{}{}
	}

	recs, err := e.source.RecommendWithLikes(ctx, userID, train, recLimit)
	if err != nil {
		return UserMetrics{}, false, err
	}

	metrics := UserMetrics{UserID: userID, HoldoutSize: len(holdout)}
	for rank, c := range recs {
		if _, ok := holdout[c.ID]; !ok {
			continue
		}
		if metrics.Hits == 0 {
			metrics.ReciprocalRank = 1.0 / float64(rank+1)
		}
		metrics.Hits++
	}

	if len(recs) > 0 {
		metrics.Precision = float64(metrics.Hits) / float64(len(recs))
	}
	if len(holdout) > 0 {
		metrics.Recall = float64(metrics.Hits) / float64(len(holdout))
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
	}

	return metrics, true, nil
}
