// Package geo provides coordinate parsing and formatting helpers shared by
// the subscription model and the digest pipeline. Points follow the orb
// convention of x=longitude, y=latitude; the wire format submitted by
// clients uses "lat,lon" ordering, so the parsers below transpose.
package geo

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	domainerrors "zonewatch/internal/domain/errors"
)

// DecomposeCoord splits a degree value into degrees, minutes and seconds.
func DecomposeCoord(ll float64) (degrees int, minutes int, seconds float64) {
	neg := ll < 0
	if neg {
		ll = -ll
	}

	degrees = int(ll)
	minFloat := (ll - float64(degrees)) * 60
	minutes = int(minFloat)
	seconds = (minFloat - float64(minutes)) * 60

	if neg {
		degrees = -degrees
	}

	return degrees, minutes, seconds
}

func prettify(ll float64, hemisphere string) string {
	d, m, s := DecomposeCoord(ll)
	if d < 0 {
		d = -d
	}

	return fmt.Sprintf("%d° %d' %.2f\" %s", d, m, s, hemisphere)
}

// PrettifyLat renders a latitude as a human-friendly DMS string.
func PrettifyLat(lat float64) string {
	if lat > 0 {
		return prettify(lat, "N")
	}

	return prettify(lat, "S")
}

// PrettifyLng renders a longitude as a human-friendly DMS string.
func PrettifyLng(lng float64) string {
	if lng > 0 {
		return prettify(lng, "E")
	}

	return prettify(lng, "W")
}

// PrettifyPoint renders an orb.Point as "lat, lng" in DMS notation.
func PrettifyPoint(pt orb.Point) string {
	return PrettifyLat(pt.Lat()) + ", " + PrettifyLng(pt.Lon())
}

// BoundsFromBox converts a `box` request parameter with the format
// "latMin,lonMin,latMax,lonMax" into an orb.Bound.
func BoundsFromBox(box string) (orb.Bound, error) {
	parts := strings.Split(box, ",")
	if len(parts) != 4 {
		return orb.Bound{}, domainerrors.NewValidationError(
			"box must contain four comma-separated coordinates", "box")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, domainerrors.NewValidationError(
				"box contains a malformed coordinate", "box")
		}
		coords[i] = v
	}

	// Clients submit latMin,lonMin,latMax,lonMax; orb wants lon/lat (x/y).
	return orb.Bound{
		Min: orb.Point{coords[1], coords[0]},
		Max: orb.Point{coords[3], coords[2]},
	}, nil
}

// PointFromString converts a "lat,lon" parameter into an orb.Point.
func PointFromString(coord string) (orb.Point, error) {
	parts := strings.Split(coord, ",")
	if len(parts) != 2 {
		return orb.Point{}, domainerrors.NewValidationError(
			"center must be a lat,lon pair", "center")
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return orb.Point{}, domainerrors.NewValidationError(
			"center contains a malformed coordinate", "center")
	}

	return orb.Point{lng, lat}, nil
}

// AddParams merges new query parameters into a URL and removes unwanted ones,
// leaving the rest of the URL intact.
func AddParams(rawURL string, extra map[string]string, remove []string) (string, error) {
	if len(extra) == 0 && len(remove) == 0 {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse URL")
	}

	params := parsed.Query()
	for k, v := range extra {
		params.Add(k, v)
	}
	for _, k := range remove {
		params.Del(k)
	}
	parsed.RawQuery = params.Encode()

	return parsed.String(), nil
}

// Collection assembles an orb.Collection from a raw GeoJSON document. The
// document may be a FeatureCollection, a single Feature, or a bare geometry;
// nested feature geometries are flattened into the collection.
func Collection(raw []byte) (orb.Collection, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(raw); err == nil {
		geoms := make(orb.Collection, 0, len(fc.Features))
		for _, feat := range fc.Features {
			geoms = append(geoms, feat.Geometry)
		}

		return geoms, nil
	}

	if feat, err := geojson.UnmarshalFeature(raw); err == nil {
		return orb.Collection{feat.Geometry}, nil
	}

	var g geojson.Geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, errors.Wrap(err, "failed to parse GeoJSON document")
	}

	return orb.Collection{g.Geometry()}, nil
}
