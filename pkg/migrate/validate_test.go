package migrate_test

import (
	"testing"

	"github.com/encamino/encamino-backend/pkg/migrate"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate, got %v", err)
	}
}
