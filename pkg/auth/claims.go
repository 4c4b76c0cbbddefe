package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Role      enums.ActorRole
	ShipperID *uuid.UUID
	PointID   *uuid.UUID
	Email     string
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. ShipperID
// and PointID are present only for shipper/delivery-point accounts.
type AccessTokenClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	Role      enums.ActorRole `json:"role"`
	ShipperID *uuid.UUID      `json:"shipper_id,omitempty"`
	PointID   *uuid.UUID      `json:"point_id,omitempty"`
	Email     string          `json:"email,omitempty"`
	jwt.RegisteredClaims
}
