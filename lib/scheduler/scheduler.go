// Package scheduler runs the engine's background work on cron
// schedules: periodic preference re-analysis and the nightly quality
// evaluation. Both scan the full user base, so they stay off the
// interactive path.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/mediaswipe/recommender/lib/lock"
	"github.com/mediaswipe/recommender/lib/quality"
	"github.com/mediaswipe/recommender/lib/recommender"
	"github.com/robfig/cron/v3"
)

const (
	analyzeLockKey = "analyze-all"
	evalLockKey    = "evaluate-quality"

	// jobTimeout bounds a single background run.
	jobTimeout = 30 * time.Minute

	// lockWait is how long a job waits for the previous run's lock
	// before giving up; overlapping runs are skipped, not queued.
	lockWait = 5 * time.Second
)

// UserLister supplies the user population to re-analyze.
type UserLister interface {
	GetAllUserIDs(ctx context.Context) ([]string, error)
}

// Jobs owns the cron runner and the background tasks it triggers.
type Jobs struct {
	cron      *cron.Cron
	rec       *recommender.Recommender
	evaluator *quality.Evaluator
	users     UserLister
	locks     *lock.FileLock
	logger    *slog.Logger
}

func New(rec *recommender.Recommender, evaluator *quality.Evaluator, users UserLister, locks *lock.FileLock, logger *slog.Logger) *Jobs {
	return &Jobs{
		cron:      cron.New(),
		rec:       rec,
		evaluator: evaluator,
		users:     users,
		locks:     locks,
		logger:    logger,
	}
}

// Start registers the jobs under the given cron expressions and begins
// execution.
func (j *Jobs) Start(analyzeSpec, evalSpec string) error {
	if _, err := j.cron.AddFunc(analyzeSpec, j.analyzeAll); err != nil {
		return fmt.Errorf("failed to schedule analysis job: %w", err)
	}
	if _, err := j.cron.AddFunc(evalSpec, j.evaluateQuality); err != nil {
		return fmt.Errorf("failed to schedule evaluation job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("Background jobs scheduled",
		slog.String("analyze", analyzeSpec),
		slog.String("evaluate", evalSpec))
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (j *Jobs) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// analyzeAll rebuilds every user's preference profile.
func (j *Jobs) analyzeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	j.withLock(ctx, analyzeLockKey, func() {
		userIDs, err := j.users.GetAllUserIDs(ctx)
		if err != nil {
			j.logger.Error("Failed to list users for analysis", slog.Any("error", err))
			return
		}

		failures := 0
		for _, userID := range userIDs {
			if ctx.Err() != nil {
				j.logger.Warn("Analysis run cancelled", slog.Int("remaining", len(userIDs)))
				return
			}
			if err := j.rec.AnalyzeAndUpdatePreferences(ctx, userID); err != nil {
				failures++
				j.logger.Error("Failed to analyze user",
					slog.String("user", userID), slog.Any("error", err))
			}
		}
		j.logger.Info("Preference analysis run finished",
			slog.Int("users", len(userIDs)), slog.Int("failures", failures))
	})
}

// evaluateQuality runs the offline holdout evaluation.
func (j *Jobs) evaluateQuality() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	j.withLock(ctx, evalLockKey, func() {
		report, err := j.evaluator.Evaluate(ctx)
		if err != nil {
			j.logger.Error("Quality evaluation failed", slog.Any("error", err))
			return
		}
		j.logger.Info("Scheduled quality evaluation",
			slog.Float64("overall", report.Overall),
			slog.Float64("precision", report.MeanPrecision),
			slog.Float64("recall", report.MeanRecall),
			slog.Float64("f1", report.MeanF1),
			slog.Float64("mrr", report.MeanMRR))
	})
}

func (j *Jobs) withLock(ctx context.Context, key string, fn func()) {
	acquired, err := j.locks.TryLock(ctx, key, lockWait)
	if err != nil {
		j.logger.Error("Failed to acquire job lock", slog.String("key", key), slog.Any("error", err))
		return
	}
	if !acquired {
		j.logger.Warn("Previous run still holds the lock, skipping", slog.String("key", key))
		return
	}
	defer func() {
		if err := j.locks.Unlock(ctx, key); err != nil {
			j.logger.Error("Failed to release job lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	fn()
}
