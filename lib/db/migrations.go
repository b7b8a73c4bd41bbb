package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediaswipe/recommender/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the SQLite database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := RunMigrations(gdb, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return gdb, nil
}

// RunMigrations runs all database migrations.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	// Enable SQLite optimizations
	if err := enableSQLiteOptimizations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to enable SQLite optimizations: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Content{},
		&models.Swipe{},
		&models.User{},
		&models.UserPreference{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Create additional indexes and constraints
	if err := createAdditionalIndexes(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

// enableSQLiteOptimizations enables SQLite-specific optimizations
func enableSQLiteOptimizations(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	optimizations := []string{
		"PRAGMA journal_mode=WAL",    // Enable WAL mode for better concurrency
		"PRAGMA synchronous=NORMAL",  // Faster writes while maintaining safety
		"PRAGMA cache_size=1000",     // Increase cache size
		"PRAGMA foreign_keys=ON",     // Enable foreign key constraints
		"PRAGMA temp_store=MEMORY",   // Store temporary tables in memory
		"PRAGMA mmap_size=134217728", // Enable memory-mapped I/O (128MB)
		"PRAGMA optimize",            // Enable query optimization
	}

	for _, pragma := range optimizations {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		} else {
			logger.Debug("Executed pragma", slog.String("pragma", pragma))
		}
	}

	return nil
}

// createAdditionalIndexes creates additional indexes for performance
func createAdditionalIndexes(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	// Composite indexes for the catalog scans the scorers run
	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_contents_category_year ON contents(category, release_year)",
		"CREATE INDEX IF NOT EXISTS idx_contents_rating ON contents(rating)",
		"CREATE INDEX IF NOT EXISTS idx_swipes_user_liked ON swipes(user_id, liked)",
		"CREATE INDEX IF NOT EXISTS idx_swipes_content_liked ON swipes(content_id, liked)",
	}

	for _, indexSQL := range additionalIndexes {
		if err := db.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			logger.Warn("Failed to create index", slog.String("sql", indexSQL), slog.Any("error", err))
		} else {
			logger.Debug("Created index", slog.String("sql", indexSQL))
		}
	}

	return nil
}
