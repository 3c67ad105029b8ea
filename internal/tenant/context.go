// Package tenant carries the authenticated restaurant and actor through a request.
//
// Tenant identity is only ever taken from verified claims; there is no way to
// build a Context from a header or request body.
package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/auth"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
)

// SchedulerActor and SystemActor identify non-human actors in history rows.
const (
	SystemActor    = "system"
	SchedulerActor = "scheduler"
)

// Context identifies who is acting and on behalf of which restaurant.
type Context struct {
	TenantID uuid.UUID
	ActorID  string
	Role     enums.ActorRole
}

type ctxKey struct{}

// FromClaims builds a Context from a verified access token.
func FromClaims(claims *auth.AccessTokenClaims) (Context, error) {
	if claims == nil {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	if claims.RestaurantID == uuid.Nil {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity has no restaurant")
	}
	if claims.UserID == uuid.Nil {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity has no user")
	}
	return Context{
		TenantID: claims.RestaurantID,
		ActorID:  claims.UserID.String(),
		Role:     claims.Role,
	}, nil
}

// ForScheduler builds the Context used by background jobs acting on a tenant.
func ForScheduler(tenantID uuid.UUID) Context {
	return Context{TenantID: tenantID, ActorID: SchedulerActor, Role: enums.ActorRoleSystem}
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the Context stored in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// Require returns the Context in ctx or an UNAUTHORIZED error. Nothing in the
// order core runs without one.
func Require(ctx context.Context) (Context, error) {
	tc, ok := FromContext(ctx)
	if !ok || tc.TenantID == uuid.Nil {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context required")
	}
	if tc.ActorID == "" {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	return tc, nil
}
