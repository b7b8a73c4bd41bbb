package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Content categories. Stored as plain strings so new categories can be
// added without a migration.
const (
	CategoryMovie  = "movie"
	CategoryTVShow = "tv_show"
	CategoryGame   = "game"
	CategoryBook   = "book"
	CategoryAnime  = "anime"
	CategoryOther  = "other"
)

// Categories lists every known content category.
var Categories = []string{
	CategoryMovie,
	CategoryTVShow,
	CategoryGame,
	CategoryBook,
	CategoryAnime,
	CategoryOther,
}

// Content is a single swipeable catalog item. Identity is the stable
// string ID; Liked and Watched are per-user views populated by the store
// from swipe rows and are never persisted on the catalog row itself.
type Content struct {
	ID              string `gorm:"primaryKey"`
	Category        string `gorm:"index"`
	Title           string
	Description     string
	Genres          string // comma-separated, e.g. "Action, Drama"
	ReleaseYear     int    // 0 = unknown
	DurationMinutes int    // 0 = not applicable (books, games)
	Rating          float64
	Liked           bool `gorm:"-"`
	Watched         bool `gorm:"-"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GetTitle exists so generic helpers can work over any content slice.
func (c Content) GetTitle() string {
	return c.Title
}

// Year returns the release year, 0 when unknown.
func (c Content) Year() int {
	return c.ReleaseYear
}

// Runtime returns the duration in minutes, 0 when not applicable for the
// category (books and games carry no runtime).
func (c Content) Runtime() int {
	switch c.Category {
	case CategoryBook, CategoryGame:
		return 0
	default:
		return c.DurationMinutes
	}
}

// GenreList splits the comma-separated genre string into trimmed tags.
func (c Content) GenreList() []string {
	return SplitTags(c.Genres)
}

// SplitTags splits a comma-separated tag string, trimming whitespace and
// dropping empty entries.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Swipe records a user's verdict on a content item. One row per
// (user, content) pair; repeat swipes update the existing row.
type Swipe struct {
	gorm.Model
	UserID    string `gorm:"index;uniqueIndex:idx_swipes_user_content"`
	ContentID string `gorm:"uniqueIndex:idx_swipes_user_content"`
	Liked     bool
	Watched   bool
}

// User is a minimal account record. The engine only needs the ID; the
// rest of the account lives outside this service.
type User struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// Default preference bounds used before the analyzer has seen any likes.
const (
	DefaultMinYear = 1900
	DefaultMaxYear = 2100
)

// UserPreference is a user's derived taste profile. It is overwritten
// wholesale on each analysis run, never merged.
type UserPreference struct {
	gorm.Model
	UserID              string     `gorm:"uniqueIndex"`
	PreferredGenres     StringList `gorm:"type:text"`
	MinYear             int
	MaxYear             int
	MinDuration         int
	MaxDuration         int // 0 = unbounded
	InterestTags        StringList `gorm:"type:text"`
	AdultContentEnabled bool
}

// NewUserPreference returns a profile with the documented defaults.
func NewUserPreference(userID string) *UserPreference {
	return &UserPreference{
		UserID:  userID,
		MinYear: DefaultMinYear,
		MaxYear: DefaultMaxYear,
	}
}

// StringList is a []string stored as a JSON text column. Malformed
// stored values decode to an empty list and are logged rather than
// failing the query; a corrupt profile row must never break scoring.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		slog.Warn("Unexpected type for string list column", slog.Any("value", value))
		*l = nil
		return nil
	}

	var parsed []string
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Warn("Failed to parse stored string list, treating as empty",
			slog.String("raw", string(data)), slog.Any("error", err))
		*l = nil
		return nil
	}
	*l = parsed
	return nil
}
