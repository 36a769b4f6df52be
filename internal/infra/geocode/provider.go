package geocode

import (
	"context"
	"log/slog"

	"zonewatch/config"
	"zonewatch/internal/domain/service"
)

// noopGeocoder resolves nothing. Used when no API key is configured, so
// subscriptions simply keep their raw coordinates without an address.
type noopGeocoder struct {
	logger *slog.Logger
}

func (g *noopGeocoder) Geocode(_ context.Context, addresses []string) ([]*service.Location, error) {
	g.logger.Debug("geocoding disabled, skipping", slog.Int("addresses", len(addresses)))

	return make([]*service.Location, len(addresses)), nil
}

func (g *noopGeocoder) ReverseGeocode(context.Context, float64, float64) (*service.Location, error) {
	return nil, nil
}

// New creates a Geocoder based on configuration.
func New(cfg *config.Config, logger *slog.Logger) (service.Geocoder, error) {
	if cfg.Geocoder == nil || cfg.Geocoder.APIKey == "" {
		logger.Info("Geocoder not configured, using no-op geocoder")

		return &noopGeocoder{logger: logger}, nil
	}

	return NewGoogleGeocoder(cfg.Geocoder, logger)
}
