package middleware

import (
	"context"

	"github.com/angelmondragon/floorops-backend/internal/tenant"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
)

// ActorIDFromContext returns the authenticated actor, or "" before Auth ran.
func ActorIDFromContext(ctx context.Context) string {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return ""
	}
	return tc.ActorID
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return ""
	}
	return tc.Role
}

func TenantIDFromContext(ctx context.Context) string {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return ""
	}
	return tc.TenantID.String()
}
