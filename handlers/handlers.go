// Package handlers exposes the recommendation engine as a JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mediaswipe/recommender/lib/quality"
	"github.com/mediaswipe/recommender/lib/recommender"
	"github.com/mediaswipe/recommender/lib/types"
	"github.com/mediaswipe/recommender/lib/validation"
	"github.com/mediaswipe/recommender/models"
)

const defaultLimit = 20

// StatsStore supplies the catalog statistics for GET /stats.
type StatsStore interface {
	Stats(ctx context.Context) (*types.StatsData, error)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

// HandleRecommendations serves GET /recommendations?user=&category=&limit=.
func HandleRecommendations(rec *recommender.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if err := validation.ValidateUserID(userID); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		category := r.URL.Query().Get("category")
		if err := validation.ValidateCategory(category); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				validation.WriteError(w, fmt.Errorf("limit must be an integer"), http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		if err := validation.ValidateLimit(limit); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		items, err := rec.GetRecommendations(r.Context(), userID, category, limit)
		if err != nil {
			slog.Error("Failed to generate recommendations",
				slog.String("user", userID), slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to generate recommendations"), http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []models.Content{}
		}

		writeJSON(w, http.StatusOK, struct {
			UserID string           `json:"user_id"`
			Items  []models.Content `json:"items"`
		}{UserID: userID, Items: items})
	}
}

// swipeRequest is the body of POST /swipe.
type swipeRequest struct {
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	Liked     bool   `json:"liked"`
}

// HandleSwipe records a swipe verdict. A liked swipe also kicks off a
// background profile re-analysis.
func HandleSwipe(rec *recommender.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req swipeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}
		if err := validation.ValidateUserID(req.UserID); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}
		if req.ContentID == "" {
			validation.WriteError(w, fmt.Errorf("content id is required"), http.StatusBadRequest)
			return
		}

		if err := rec.HandleLikeEvent(r.Context(), req.UserID, req.ContentID, req.Liked); err != nil {
			slog.Error("Failed to record swipe",
				slog.String("user", req.UserID),
				slog.String("content", req.ContentID),
				slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to record swipe"), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	}
}

// HandleAnalyze serves POST /users/{user}/analyze: a synchronous profile
// rebuild from the user's current likes.
func HandleAnalyze(rec *recommender.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user")
		if err := validation.ValidateUserID(userID); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		if err := rec.AnalyzeAndUpdatePreferences(r.Context(), userID); err != nil {
			slog.Error("Failed to analyze user",
				slog.String("user", userID), slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to analyze user"), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "analyzed", "user_id": userID})
	}
}

// HandleQuality runs the offline holdout evaluation and returns the
// report. The run touches every user, so this endpoint is for operators,
// not clients.
func HandleQuality(evaluator *quality.Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := evaluator.Evaluate(r.Context())
		if err != nil {
			slog.Error("Quality evaluation failed", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("quality evaluation failed"), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// HandleStats serves catalog and interaction counts.
func HandleStats(store StatsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			slog.Error("Failed to collect stats", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to collect stats"), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
