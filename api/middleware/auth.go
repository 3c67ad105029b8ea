package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/floorops-backend/api/responses"
	"github.com/angelmondragon/floorops-backend/internal/tenant"
	pkgAuth "github.com/angelmondragon/floorops-backend/pkg/auth"
	"github.com/angelmondragon/floorops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the tenant
// it names. Nothing else on the request can select a tenant.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, verifierErr := pkgAuth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifierErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, verifierErr, "auth not configured"))
				return
			}
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			tc, err := tenant.FromClaims(claims)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !tc.Role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}

			ctx := tenant.WithContext(r.Context(), tc)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tc.TenantID.String())
				ctx = logg.WithActor(ctx, tc.ActorID, tc.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}
