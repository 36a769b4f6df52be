package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"zonewatch/config"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/errors"
)

const defaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// locationTypeScores maps Google's match granularity to a confidence score.
var locationTypeScores = map[string]float64{
	"ROOFTOP":            1.0,
	"RANGE_INTERPOLATED": 0.9,
	"GEOMETRIC_CENTER":   0.7,
	"APPROXIMATE":        0.5,
}

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey   string
	region   string
	bounds   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewGoogleGeocoder creates a Geocoder backed by the Google Geocoding API.
func NewGoogleGeocoder(cfg *config.GeocoderConfig, logger *slog.Logger) (*GoogleGeocoder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("geocoder requires geocoder.apiKey")
	}

	return &GoogleGeocoder{
		apiKey:   cfg.APIKey,
		region:   cfg.Region,
		bounds:   convertBounds(cfg.Bounds),
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}, nil
}

type apiResponse struct {
	Status  string      `json:"status"`
	Results []apiResult `json:"results"`
}

type apiResult struct {
	FormattedAddress string `json:"formatted_address"`
	PlaceID          string `json:"place_id"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
}

// Geocode resolves each address in turn, preserving input order. An address
// the API cannot resolve yields a nil entry rather than failing the batch.
func (g *GoogleGeocoder) Geocode(ctx context.Context, addresses []string) ([]*service.Location, error) {
	locations := make([]*service.Location, len(addresses))

	for i, address := range addresses {
		loc, err := g.lookup(ctx, map[string]string{"address": address})
		if err != nil {
			return nil, errors.Wrapf(err, "geocode %q", address)
		}
		if loc == nil {
			g.logger.Debug("address not resolved", slog.String("address", address))
		}
		locations[i] = loc
	}

	return locations, nil
}

// ReverseGeocode resolves a coordinate pair to the nearest address.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*service.Location, error) {
	loc, err := g.lookup(ctx, map[string]string{
		"latlng": fmt.Sprintf("%f,%f", lat, lng),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reverse geocode %f,%f", lat, lng)
	}

	return loc, nil
}

// lookup performs one API call with retries and returns the best result, or
// nil when the API reports ZERO_RESULTS.
func (g *GoogleGeocoder) lookup(ctx context.Context, params map[string]string) (*service.Location, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("key", g.apiKey)
	if g.region != "" {
		query.Set("region", g.region)
	}
	if g.bounds != "" {
		query.Set("bounds", g.bounds)
	}

	var resp apiResponse

	err := retry.Do(
		func() error {
			return g.fetch(ctx, query, &resp)
		},
		retry.Attempts(4),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("geocode request failed, retrying",
				slog.Uint64("attempt", uint64(n)+1),
				slog.Any("error", err))
		}),
	)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, errors.Errorf("geocoding api status: %s", resp.Status)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	best := resp.Results[0]
	score, ok := locationTypeScores[best.Geometry.LocationType]
	if !ok {
		score = 0.5
	}

	return &service.Location{
		Lat:       best.Geometry.Location.Lat,
		Lng:       best.Geometry.Location.Lng,
		Formatted: best.FormattedAddress,
		Score:     score,
		PlaceID:   best.PlaceID,
	}, nil
}

func (g *GoogleGeocoder) fetch(ctx context.Context, query url.Values, out *apiResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "build geocode request")
	}

	httpResp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "geocode request")
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))

		return errors.Errorf("geocode request returned %d: %s", httpResp.StatusCode, string(body))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode geocode response")
	}

	return nil
}

// convertBounds turns the configured "latMin,lonMin,latMax,lonMax" string
// into the API's "latMin,lonMin|latMax,lonMax" form.
func convertBounds(bounds string) string {
	parts := strings.Split(bounds, ",")
	if len(parts) != 4 {
		return ""
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts[0] + "," + parts[1] + "|" + parts[2] + "," + parts[3]
}
