package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/mediaswipe/recommender/models"
)

// userIDRegex keeps user ids to a shape safe for cache keys and paths.
var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateUserID checks that a user id is present and well-formed.
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if !userIDRegex.MatchString(userID) {
		return fmt.Errorf("invalid user id: %s", userID)
	}
	return nil
}

// ValidateCategory checks an optional category filter against the known
// content categories. An empty category means no filtering.
func ValidateCategory(category string) error {
	if category == "" {
		return nil
	}
	for _, known := range models.Categories {
		if category == known {
			return nil
		}
	}
	return fmt.Errorf("unknown category: %s", category)
}

// ValidateLimit bounds how many recommendations a request may ask for.
func ValidateLimit(limit int) error {
	if limit < 1 || limit > 100 {
		return fmt.Errorf("limit must be between 1 and 100")
	}
	return nil
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	}); err != nil {
		slog.Error("Failed to encode error response", slog.Any("error", err))
	}
}
