package geocode

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/config"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *GoogleGeocoder {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	geocoder, err := NewGoogleGeocoder(&config.GeocoderConfig{
		APIKey: "test-key",
		Region: "us",
		Bounds: "42.37,-71.14,42.42,-71.07",
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	geocoder.endpoint = server.URL
	geocoder.client = server.Client()
	geocoder.client.Timeout = 2 * time.Second

	return geocoder
}

func TestGoogleGeocoder_Geocode(t *testing.T) {
	t.Parallel()

	t.Run("resolves addresses in input order with nil gaps", func(t *testing.T) {
		t.Parallel()

		geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			assert.Equal(t, "us", r.URL.Query().Get("region"))
			assert.Equal(t, "42.37,-71.14|42.42,-71.07", r.URL.Query().Get("bounds"))

			if r.URL.Query().Get("address") == "nowhere" {
				_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))

				return
			}
			_, _ = w.Write([]byte(`{"status":"OK","results":[{
				"formatted_address":"240 Elm St, Somerville, MA 02144, USA",
				"place_id":"ChIJtest",
				"geometry":{"location":{"lat":42.3954,"lng":-71.1222},"location_type":"ROOFTOP"}
			}]}`))
		})

		locations, err := geocoder.Geocode(t.Context(), []string{"240 Elm St", "nowhere"})
		require.NoError(t, err)
		require.Len(t, locations, 2)

		require.NotNil(t, locations[0])
		assert.InDelta(t, 42.3954, locations[0].Lat, 1e-9)
		assert.InDelta(t, -71.1222, locations[0].Lng, 1e-9)
		assert.Equal(t, "240 Elm St, Somerville, MA 02144, USA", locations[0].Formatted)
		assert.InDelta(t, 1.0, locations[0].Score, 1e-9)
		assert.Equal(t, "ChIJtest", locations[0].PlaceID)

		assert.Nil(t, locations[1])
	})

	t.Run("scores by match granularity", func(t *testing.T) {
		t.Parallel()

		geocoder := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"OK","results":[{
				"formatted_address":"Somerville, MA, USA",
				"geometry":{"location":{"lat":42.3876,"lng":-71.0995},"location_type":"APPROXIMATE"}
			}]}`))
		})

		locations, err := geocoder.Geocode(t.Context(), []string{"Somerville"})
		require.NoError(t, err)
		require.Len(t, locations, 1)
		assert.InDelta(t, 0.5, locations[0].Score, 1e-9)
	})

	t.Run("api error status fails the batch", func(t *testing.T) {
		t.Parallel()

		geocoder := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","results":[]}`))
		})

		_, err := geocoder.Geocode(t.Context(), []string{"240 Elm St"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REQUEST_DENIED")
	})
}

func TestGoogleGeocoder_ReverseGeocode(t *testing.T) {
	t.Parallel()

	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("latlng"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{
			"formatted_address":"12 Highland Ave, Somerville, MA 02143, USA",
			"geometry":{"location":{"lat":42.3866,"lng":-71.0993},"location_type":"RANGE_INTERPOLATED"}
		}]}`))
	})

	loc, err := geocoder.ReverseGeocode(t.Context(), 42.3866, -71.0993)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "12 Highland Ave, Somerville, MA 02143, USA", loc.Formatted)
	assert.InDelta(t, 0.9, loc.Score, 1e-9)
}

func TestConvertBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,2|3,4", convertBounds("1,2,3,4"))
	assert.Equal(t, "1,2|3,4", convertBounds("1, 2, 3, 4"))
	assert.Empty(t, convertBounds(""))
	assert.Empty(t, convertBounds("1,2,3"))
}
