package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/floorops-backend/pkg/config"
)

const corsPreflightMaxAge = 5 * time.Minute

// Browsers read the request id and replay marker off responses; floor
// devices send Last-Event-ID when resuming the order stream.
var (
	corsRequestHeaders = []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, "Last-Event-ID", requestIDHeader}
	corsExposedHeaders = []string{requestIDHeader, idempotentReplayHeader}
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
)

func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(corsOptions(cfg)).Handler
}

func corsOptions(cfg config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   corsRequestHeaders,
		ExposedHeaders:   corsExposedHeaders,
		AllowCredentials: true,
		MaxAge:           int(corsPreflightMaxAge.Seconds()),
	}
}
