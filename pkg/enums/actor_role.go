package enums

import "fmt"

// ActorRole is the floor role carried by an access token.
type ActorRole string

const (
	ActorRoleManager ActorRole = "manager"
	ActorRoleServer  ActorRole = "server"
	ActorRoleKitchen ActorRole = "kitchen"
	ActorRoleExpo    ActorRole = "expo"
	ActorRoleKiosk   ActorRole = "kiosk"
	ActorRoleSystem  ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleManager,
	ActorRoleServer,
	ActorRoleKitchen,
	ActorRoleExpo,
	ActorRoleKiosk,
	ActorRoleSystem,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanCancel reports whether the role may move an order to cancelled.
func (r ActorRole) CanCancel() bool {
	switch r {
	case ActorRoleManager, ActorRoleServer, ActorRoleExpo, ActorRoleSystem:
		return true
	default:
		return false
	}
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
