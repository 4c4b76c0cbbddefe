package types

// Coordinates is a plain lat/lon pair used for delivery destinations,
// shipper pings, and tracking events.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
