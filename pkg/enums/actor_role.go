package enums

import "fmt"

// ActorRole is the authenticated role the core trusts for authorization.
type ActorRole string

const (
	ActorRoleBuyer         ActorRole = "buyer"
	ActorRoleStoreOwner    ActorRole = "store_owner"
	ActorRoleAdmin         ActorRole = "admin"
	ActorRoleShipper       ActorRole = "shipper"
	ActorRoleDeliveryPoint ActorRole = "delivery_point"
	ActorRoleSystem        ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleBuyer,
	ActorRoleStoreOwner,
	ActorRoleAdmin,
	ActorRoleShipper,
	ActorRoleDeliveryPoint,
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

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
