package geocode

import (
	"context"

	"zonewatch/internal/domain/service"
)

// AddLocations geocodes a batch of records and annotates each one in place.
// Every record contributes an "address, region" lookup string; records whose
// address cannot be resolved are skipped, never an error.
func AddLocations[T any](
	ctx context.Context,
	geocoder service.Geocoder,
	records []T,
	address func(T) string,
	region func(T) string,
	annotate func(T, *service.Location),
) error {
	if len(records) == 0 {
		return nil
	}

	queries := make([]string, len(records))
	for i, record := range records {
		query := address(record)
		if r := region(record); r != "" {
			query += ", " + r
		}
		queries[i] = query
	}

	locations, err := geocoder.Geocode(ctx, queries)
	if err != nil {
		return err
	}

	for i, location := range locations {
		if location == nil {
			continue
		}
		annotate(records[i], location)
	}

	return nil
}
