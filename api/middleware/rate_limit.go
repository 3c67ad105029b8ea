package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/angelmondragon/floorops-backend/api/responses"
	"github.com/angelmondragon/floorops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/floorops-backend/pkg/redis"
)

// WriteRateLimit throttles mutating requests per tenant and per client IP with
// fixed windows. Reads pass through. A limiter outage fails open.
func WriteRateLimit(cfg config.RateLimitConfig, limiter pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || cfg.Window <= 0 || (cfg.TenantWrites <= 0 && cfg.IPWrites <= 0) {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isReadMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			checks := []struct {
				scope string
				limit int
			}{
				{scope: "tenant:" + TenantIDFromContext(ctx), limit: cfg.TenantWrites},
				{scope: "ip:" + clientIP(r), limit: cfg.IPWrites},
			}
			for _, check := range checks {
				if check.limit <= 0 || strings.HasSuffix(check.scope, ":") {
					continue
				}
				allowed, count, err := limiter.FixedWindowAllow(ctx, check.scope, int64(check.limit), cfg.Window)
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "rate_limit.unavailable", err)
					}
					break
				}
				if !allowed {
					if logg != nil {
						logCtx := logg.WithFields(ctx, map[string]any{
							"scope":          check.scope,
							"attempts":       count,
							"limit":          check.limit,
							"window_seconds": int(cfg.Window.Seconds()),
						})
						logg.Warn(logCtx, "rate_limit.blocked")
					}
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimited, "rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isReadMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
