package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// localityTypes are the address component types that can name a service area.
var localityTypes = map[string]bool{
	"locality":                    true,
	"sublocality":                 true,
	"sublocality_level_1":         true,
	"neighborhood":                true,
	"administrative_area_level_2": true,
}

// Geocoder resolves pickup addresses to locality names with the Google Geocoding API.
type Geocoder struct {
	client *maps.Client
	region string
}

// NewGeocoder creates a Geocoder biased to the given ccTLD region (e.g. "ke").
func NewGeocoder(apiKey, region string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region}, nil
}

// Localities returns the locality-like names of the best geocoding match, most specific first.
func (g *Geocoder) Localities(ctx context.Context, address string) ([]string, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	return localitiesFrom(results), nil
}

func localitiesFrom(results []maps.GeocodingResult) []string {
	if len(results) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range results[0].AddressComponents {
		if !hasLocalityType(c.Types) || seen[c.LongName] {
			continue
		}
		seen[c.LongName] = true
		out = append(out, c.LongName)
	}
	return out
}

func hasLocalityType(ts []string) bool {
	for _, t := range ts {
		if localityTypes[t] {
			return true
		}
	}
	return false
}
