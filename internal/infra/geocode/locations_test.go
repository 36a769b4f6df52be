package geocode

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/domain/service"
)

type recordingGeocoder struct {
	queries []string
	results []*service.Location
	err     error
}

func (g *recordingGeocoder) Geocode(_ context.Context, addresses []string) ([]*service.Location, error) {
	g.queries = addresses

	return g.results, g.err
}

func (g *recordingGeocoder) ReverseGeocode(context.Context, float64, float64) (*service.Location, error) {
	return nil, nil
}

type proposalRecord struct {
	Address    string
	RegionName string
	Location   *service.Location
}

func TestAddLocations(t *testing.T) {
	t.Parallel()

	t.Run("annotates resolved records and skips unresolved ones", func(t *testing.T) {
		t.Parallel()

		records := []*proposalRecord{
			{Address: "240 Elm St", RegionName: "Somerville, MA"},
			{Address: "nowhere", RegionName: "Somerville, MA"},
			{Address: "12 Highland Ave"},
		}
		geocoder := &recordingGeocoder{
			results: []*service.Location{
				{Lat: 42.3954, Lng: -71.1222, Formatted: "240 Elm St, Somerville, MA", Score: 1.0},
				nil,
				{Lat: 42.3866, Lng: -71.0993, Formatted: "12 Highland Ave", Score: 0.9},
			},
		}

		err := AddLocations(t.Context(), geocoder, records,
			func(r *proposalRecord) string { return r.Address },
			func(r *proposalRecord) string { return r.RegionName },
			func(r *proposalRecord, loc *service.Location) { r.Location = loc },
		)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"240 Elm St, Somerville, MA",
			"nowhere, Somerville, MA",
			"12 Highland Ave",
		}, geocoder.queries)

		require.NotNil(t, records[0].Location)
		assert.InDelta(t, 42.3954, records[0].Location.Lat, 1e-9)
		assert.Nil(t, records[1].Location)
		require.NotNil(t, records[2].Location)
		assert.Equal(t, "12 Highland Ave", records[2].Location.Formatted)
	})

	t.Run("empty batch never calls the geocoder", func(t *testing.T) {
		t.Parallel()

		geocoder := &recordingGeocoder{err: errors.New("should not be called")}

		err := AddLocations(t.Context(), geocoder, nil,
			func(r *proposalRecord) string { return r.Address },
			func(r *proposalRecord) string { return r.RegionName },
			func(r *proposalRecord, loc *service.Location) { r.Location = loc },
		)
		require.NoError(t, err)
		assert.Nil(t, geocoder.queries)
	})

	t.Run("geocoder failure surfaces", func(t *testing.T) {
		t.Parallel()

		geocoder := &recordingGeocoder{err: errors.New("quota exceeded")}
		records := []*proposalRecord{{Address: "240 Elm St"}}

		err := AddLocations(t.Context(), geocoder, records,
			func(r *proposalRecord) string { return r.Address },
			func(r *proposalRecord) string { return r.RegionName },
			func(r *proposalRecord, loc *service.Location) { r.Location = loc },
		)
		require.Error(t, err)
		assert.Nil(t, records[0].Location)
	})
}
