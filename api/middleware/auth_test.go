package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floorops-backend/internal/tenant"
	"github.com/angelmondragon/floorops-backend/pkg/auth"
	"github.com/angelmondragon/floorops-backend/pkg/config"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "floorops-test", ExpirationMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, restaurantID uuid.UUID, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:       uuid.New(),
		RestaurantID: restaurantID,
		Role:         role,
		JTI:          uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other := testJWTConfig()
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, uuid.New(), enums.ActorRoleServer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWTConfig(), nil)(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsTenantContext(t *testing.T) {
	cfg := testJWTConfig()
	restaurantID := uuid.New()
	token := mintTestToken(t, cfg, restaurantID, enums.ActorRoleExpo)

	var captured tenant.Context
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, err := tenant.Require(r.Context())
		require.NoError(t, err)
		captured = tc
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	// A tenant header must never override the token.
	req.Header.Set("X-Restaurant-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, restaurantID, captured.TenantID)
	assert.Equal(t, enums.ActorRoleExpo, captured.Role)
	assert.NotEmpty(t, captured.ActorID)
}

func TestRequireRoles(t *testing.T) {
	cfg := testJWTConfig()
	handler := Auth(cfg, nil)(RequireRoles(nil, enums.ActorRoleManager, enums.ActorRoleServer)(okHandler()))

	cases := []struct {
		role enums.ActorRole
		want int
	}{
		{enums.ActorRoleManager, http.StatusOK},
		{enums.ActorRoleServer, http.StatusOK},
		{enums.ActorRoleKitchen, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, uuid.New(), tc.role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, tc.want, resp.Code, "role %s", tc.role)
	}

	resp := httptest.NewRecorder()
	RequireRoles(nil, enums.ActorRoleManager)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
