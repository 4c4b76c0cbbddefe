package deliveries

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
)

func setupDeliveriesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	shippers := `
CREATE TABLE IF NOT EXISTS shippers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  vehicle_type TEXT NOT NULL,
  license_plate TEXT,
  availability TEXT NOT NULL DEFAULT 'available',
  current_location TEXT,
  latitude REAL,
  longitude REAL,
  total_deliveries INTEGER NOT NULL DEFAULT 0,
  successful_deliveries INTEGER NOT NULL DEFAULT 0,
  rating REAL NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	points := `
CREATE TABLE IF NOT EXISTS delivery_points (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  contact_phone TEXT,
  latitude REAL,
  longitude REAL,
  created_at DATETIME,
  updated_at DATETIME
);`
	assignments := `
CREATE TABLE IF NOT EXISTS delivery_assignments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  shipper_id TEXT,
  delivery_point_id TEXT,
  assigned_by_user_id TEXT,
  assigned_at DATETIME,
  unassigned_at DATETIME,
  active INTEGER NOT NULL DEFAULT 1
);`
	require.NoError(t, db.Exec(shippers).Error)
	require.NoError(t, db.Exec(points).Error)
	require.NoError(t, db.Exec(assignments).Error)
	return db
}

func seedDBShipper(t *testing.T, db *gorm.DB) *models.Shipper {
	t.Helper()

	shipper := &models.Shipper{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		VehicleType:  enums.VehicleTypeMotorcycle,
		Availability: enums.AvailabilityStatusAvailable,
	}
	require.NoError(t, db.Create(shipper).Error)
	return shipper
}

func TestRepositoryShipperRoundTrip(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	shipper := seedDBShipper(t, db)

	got, err := repo.FindShipperByID(context.Background(), shipper.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VehicleTypeMotorcycle, got.VehicleType)

	err = repo.UpdateShipper(context.Background(), shipper.ID, map[string]any{
		"latitude":         -12.0464,
		"longitude":        -77.0428,
		"current_location": "Plaza Mayor",
	})
	require.NoError(t, err)

	got, err = repo.FindShipperByID(context.Background(), shipper.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, -12.0464, *got.Latitude, 1e-9)
	require.NotNil(t, got.CurrentLocation)
	assert.Equal(t, "Plaza Mayor", *got.CurrentLocation)
}

func TestRepositoryAssignmentHandoff(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	orderID := uuid.New()
	first := seedDBShipper(t, db)
	second := seedDBShipper(t, db)

	_, err := repo.CreateAssignment(context.Background(), &models.DeliveryAssignment{
		ID:        uuid.New(),
		OrderID:   orderID,
		ShipperID: &first.ID,
		Active:    true,
	})
	require.NoError(t, err)

	require.NoError(t, repo.CloseActiveShipperAssignment(context.Background(), orderID))

	_, err = repo.CreateAssignment(context.Background(), &models.DeliveryAssignment{
		ID:        uuid.New(),
		OrderID:   orderID,
		ShipperID: &second.ID,
		Active:    true,
	})
	require.NoError(t, err)

	list, err := repo.ListAssignmentsByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var activeCount int
	for _, a := range list {
		if a.Active {
			activeCount++
			assert.Equal(t, second.ID, *a.ShipperID)
		} else {
			assert.NotNil(t, a.UnassignedAt)
			assert.Equal(t, first.ID, *a.ShipperID)
		}
	}
	assert.Equal(t, 1, activeCount)
}
