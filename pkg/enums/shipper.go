package enums

import "fmt"

// VehicleType identifies the vehicle a shipper operates.
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeBike       VehicleType = "bike"
)

var validVehicleTypes = []VehicleType{
	VehicleTypeCar,
	VehicleTypeMotorcycle,
	VehicleTypeBike,
}

// IsValid reports whether the value is a known VehicleType.
func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleType converts raw input into a VehicleType.
func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}

// AvailabilityStatus reports whether a shipper can take new assignments.
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "available"
	AvailabilityStatusBusy      AvailabilityStatus = "busy"
	AvailabilityStatusOffline   AvailabilityStatus = "offline"
)

var validAvailabilityStatuses = []AvailabilityStatus{
	AvailabilityStatusAvailable,
	AvailabilityStatusBusy,
	AvailabilityStatusOffline,
}

// IsValid reports whether the value is a known AvailabilityStatus.
func (a AvailabilityStatus) IsValid() bool {
	for _, candidate := range validAvailabilityStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAvailabilityStatus converts raw input into an AvailabilityStatus.
func ParseAvailabilityStatus(value string) (AvailabilityStatus, error) {
	for _, candidate := range validAvailabilityStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid availability status %q", value)
}
