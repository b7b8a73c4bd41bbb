// Package store is the data-access layer between the recommendation
// engine and SQLite. The engine packages declare the narrow interfaces
// they need; Store satisfies all of them.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mediaswipe/recommender/lib/types"
	"github.com/mediaswipe/recommender/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// GetCatalog returns the content catalog, optionally filtered to one
// category, with Liked/Watched populated for the given user.
func (s *Store) GetCatalog(ctx context.Context, userID, category string) ([]models.Content, error) {
	q := s.db.WithContext(ctx).Model(&models.Content{})
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var catalog []models.Content
	if err := q.Order("id").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	if userID == "" || len(catalog) == 0 {
		return catalog, nil
	}

	swipes, err := s.swipesByContent(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range catalog {
		if sw, ok := swipes[catalog[i].ID]; ok {
			catalog[i].Liked = sw.Liked
			catalog[i].Watched = sw.Watched
		}
	}
	return catalog, nil
}

// GetLikedContent returns the content records a user has liked.
func (s *Store) GetLikedContent(ctx context.Context, userID string) ([]models.Content, error) {
	var liked []models.Content
	err := s.db.WithContext(ctx).
		Joins("JOIN swipes ON swipes.content_id = contents.id").
		Where("swipes.user_id = ? AND swipes.liked = ? AND swipes.deleted_at IS NULL", userID, true).
		Order("contents.id").
		Find(&liked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get liked content for %s: %w", userID, err)
	}
	for i := range liked {
		liked[i].Liked = true
	}
	return liked, nil
}

// GetLikedIDs returns the set of content ids a user has liked. The
// collaborative filter works on id sets and skips record hydration.
func (s *Store) GetLikedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Swipe{}).
		Where("user_id = ? AND liked = ?", userID, true).
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get liked ids for %s: %w", userID, err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// GetAllUserIDs returns every known user id.
func (s *Store) GetAllUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return ids, nil
}

// GetContent resolves a batch of content ids to records, preserving the
// input order and silently dropping unknown ids.
func (s *Store) GetContent(ctx context.Context, ids []string) ([]models.Content, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []models.Content
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve content ids: %w", err)
	}

	byID := make(map[string]models.Content, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]models.Content, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetPreferences returns a user's preference profile, or nil when the
// user has not been analyzed yet. Absence is not an error.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences for %s: %w", userID, err)
	}
	return &pref, nil
}

// SavePreferences upserts a user's preference profile.
func (s *Store) SavePreferences(ctx context.Context, pref *models.UserPreference) error {
	var existing models.UserPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", pref.UserID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(pref).Error; err != nil {
			return fmt.Errorf("failed to create preferences for %s: %w", pref.UserID, err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up preferences for %s: %w", pref.UserID, err)
	default:
		pref.ID = existing.ID
		pref.CreatedAt = existing.CreatedAt
		if err := s.db.WithContext(ctx).Save(pref).Error; err != nil {
			return fmt.Errorf("failed to update preferences for %s: %w", pref.UserID, err)
		}
	}
	return nil
}

// SetLikedStatus records a swipe verdict for a user on a content item,
// creating the user row on first contact.
func (s *Store) SetLikedStatus(ctx context.Context, userID, contentID string, liked bool) error {
	var content models.Content
	if err := s.db.WithContext(ctx).First(&content, "id = ?", contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown content id %s", contentID)
		}
		return fmt.Errorf("failed to look up content %s: %w", contentID, err)
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.User{ID: userID}).Error; err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", userID, err)
	}

	swipe := models.Swipe{UserID: userID, ContentID: contentID, Liked: liked}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
	}).Create(&swipe).Error
	if err != nil {
		return fmt.Errorf("failed to record swipe: %w", err)
	}

	s.logger.Debug("Recorded swipe",
		slog.String("user", userID),
		slog.String("content", contentID),
		slog.Bool("liked", liked))
	return nil
}

// UpsertContent inserts or updates catalog rows. Used by catalog loaders
// and tests; the engine itself never writes catalog data.
func (s *Store) UpsertContent(ctx context.Context, items []models.Content) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
	if err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}

// Stats aggregates catalog and interaction counts for the stats endpoint.
func (s *Store) Stats(ctx context.Context) (*types.StatsData, error) {
	stats := &types.StatsData{}

	if err := s.db.WithContext(ctx).Model(&models.Content{}).Count(&stats.TotalContent).Error; err != nil {
		return nil, fmt.Errorf("failed to count content: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Swipe{}).Where("liked = ?", true).
		Count(&stats.TotalLikes).Error; err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.UserPreference{}).Count(&stats.TotalProfiles).Error; err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}

	rows, err := s.db.WithContext(ctx).Model(&models.Content{}).
		Select("category, count(*) as count").
		Group("category").Order("count desc").Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get category distribution: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close rows", slog.Any("error", err))
		}
	}()

	for rows.Next() {
		var entry types.CategoryCount
		if err := rows.Scan(&entry.Category, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		stats.CategoryDistribution = append(stats.CategoryDistribution, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category rows: %w", err)
	}

	return stats, nil
}

func (s *Store) swipesByContent(ctx context.Context, userID string) (map[string]models.Swipe, error) {
	var swipes []models.Swipe
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&swipes).Error; err != nil {
		return nil, fmt.Errorf("failed to get swipes for %s: %w", userID, err)
	}

	out := make(map[string]models.Swipe, len(swipes))
	for _, sw := range swipes {
		out[sw.ContentID] = sw
	}
	return out, nil
}
