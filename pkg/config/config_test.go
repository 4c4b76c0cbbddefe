package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNPrefersExplicitDSN(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://u:p@host:5432/db"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DSN != "postgres://u:p@host:5432/db" {
		t.Fatalf("DSN should be untouched, got %q", cfg.DSN)
	}
}

func TestEnsureDSNBuildsFromLegacyParts(t *testing.T) {
	cfg := DBConfig{
		LegacyHost:     "localhost",
		LegacyPort:     5432,
		LegacyUser:     "encamino",
		LegacyPassword: "s3cret",
		LegacyName:     "encamino",
		LegacySSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"postgres://", "encamino:s3cret@localhost:5432", "sslmode=disable"} {
		if !strings.Contains(cfg.DSN, want) {
			t.Fatalf("DSN %q missing %q", cfg.DSN, want)
		}
	}
}

func TestEnsureDSNReportsMissingParts(t *testing.T) {
	cfg := DBConfig{LegacyHost: "localhost"}
	err := cfg.ensureDSN()
	if err == nil {
		t.Fatal("expected error for missing legacy settings")
	}
	if !strings.Contains(err.Error(), EnvDBUser) || !strings.Contains(err.Error(), EnvDBName) {
		t.Fatalf("error should name the missing vars, got %v", err)
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	app := AppConfig{Env: "DEV"}
	if !app.IsDev() || app.IsProd() {
		t.Fatalf("expected dev environment detection, got dev=%v prod=%v", app.IsDev(), app.IsProd())
	}
	app.Env = "prod"
	if app.IsDev() || !app.IsProd() {
		t.Fatalf("expected prod environment detection")
	}
}
