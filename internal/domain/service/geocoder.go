package service

import (
	"context"
)

// Location is a geocoding result. Score expresses the service's confidence
// in the match on a 0..1 scale.
type Location struct {
	Lat       float64
	Lng       float64
	Formatted string
	Score     float64
	PlaceID   string
}

// Geocoder defines the interface for address geocoding services.
type Geocoder interface {
	// Geocode resolves addresses to locations. Results are returned in
	// input order; an address that could not be resolved yields a nil entry.
	Geocode(ctx context.Context, addresses []string) ([]*Location, error)

	// ReverseGeocode resolves a coordinate pair to the nearest address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Location, error)
}
