package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/pkg/config"
	"github.com/encamino/encamino-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "encamino",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	userID := uuid.New()
	shipperID := uuid.New()

	payload := AccessTokenPayload{
		UserID:    userID,
		Role:      enums.ActorRoleShipper,
		ShipperID: &shipperID,
		Email:     "rider@example.com",
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.ActorRoleShipper {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ShipperID == nil || *claims.ShipperID != shipperID {
		t.Fatalf("shipper id not preserved")
	}
	if claims.Email != "rider@example.com" {
		t.Fatalf("email not preserved")
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "encamino",
		ExpirationMinutes: 10,
	}
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleBuyer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected signature validation failure")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "encamino",
		ExpirationMinutes: 5,
	}
	past := time.Now().Add(-time.Hour)
	token, err := MintAccessToken(cfg, past, AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestMintAccessTokenRejectsInvalidRole(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "encamino",
		ExpirationMinutes: 5,
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRole("superuser"),
	}); err == nil {
		t.Fatalf("expected invalid role error")
	}
}
