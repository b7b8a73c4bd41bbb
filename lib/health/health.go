package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"gorm.io/gorm"
)

// Pinger is satisfied by cache backends that can report liveness. A nil
// Pinger means the engine runs on the in-process cache, which has no
// failure mode worth reporting.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health is the health check response: overall status plus per-dependency
// detail for the database and, when configured, the similarity cache.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DB        struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"db"`
	Cache struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"cache"`
}

// Check returns an HTTP handler reporting the engine's dependency
// health. A failed database check makes the response 503; a failed
// cache check only degrades the status, since the similarity cache
// falls back to recomputation.
func Check(db *gorm.DB, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
		}
		health.Cache.Status = "ok"

		sqlDB, err := db.DB()
		if err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Failed to get database connection"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Database ping failed"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}
		health.DB.Status = "ok"

		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				health.Status = "degraded"
				health.Cache.Status = "error"
				health.Cache.Message = "Cache ping failed"
			}
		}

		writeHealth(w, health, http.StatusOK)
	}
}

func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
