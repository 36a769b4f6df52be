package entity

import (
	"encoding/json"

	"zonewatch/internal/domain/errors"
)

// Query kinds stored in a subscription's query snapshot.
const (
	QueryKindBox    = "box"
	QueryKindCircle = "circle"
	QueryKindRegion = "region"
)

// BoxQuery is a rectangular search area expressed in degrees.
type BoxQuery struct {
	LatMin float64 `json:"lat_min"`
	LonMin float64 `json:"lon_min"`
	LatMax float64 `json:"lat_max"`
	LonMax float64 `json:"lon_max"`
}

// CircleQuery is a point search area with a radius in meters. Address is
// the geocoded description of the center point when one was resolved.
type CircleQuery struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Radius  float64 `json:"radius"`
	Address string  `json:"address,omitempty"`
}

// SubscriptionQuery is the stored snapshot of a validated subscription
// query. Exactly one of Box or Circle is set for spatial queries; a
// region-only query has neither. The snapshot is kept verbatim so that
// digests can describe the search the user originally asked for even if
// validation rules have since changed.
type SubscriptionQuery struct {
	Kind       string       `json:"kind"`
	Box        *BoxQuery    `json:"box,omitempty"`
	Circle     *CircleQuery `json:"circle,omitempty"`
	RegionName string       `json:"region_name,omitempty"`
}

// EncodeQuery serializes a query snapshot for storage.
func EncodeQuery(q *SubscriptionQuery) ([]byte, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, errors.ErrInternalError.WrapMessage("encode subscription query")
	}

	return raw, nil
}

// DecodeQuery restores a query snapshot from storage.
func DecodeQuery(raw []byte) (*SubscriptionQuery, error) {
	var q SubscriptionQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, errors.ErrInternalError.WrapMessage("decode subscription query")
	}

	return &q, nil
}
