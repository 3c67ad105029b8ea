package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
)

var (
	ErrMissingRestaurant = errors.New("token missing restaurant_id")
	ErrUnknownRole       = errors.New("token carries unknown role")
)

// AccessTokenPayload is the input to MintAccessToken.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	RestaurantID uuid.UUID
	Role         enums.ActorRole
	JTI          string
}

// AccessTokenClaims is the identity issued by the auth collaborator. The
// restaurant id here is the only accepted source of tenant identity.
type AccessTokenClaims struct {
	UserID       uuid.UUID       `json:"user_id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	Role         enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt calls it during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.RestaurantID == uuid.Nil {
		return ErrMissingRestaurant
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("%w %q", ErrUnknownRole, c.Role)
	}
	return nil
}
