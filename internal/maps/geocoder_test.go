package maps

import (
	"testing"

	"googlemaps.github.io/maps"
)

func TestLocalitiesFrom(t *testing.T) {
	results := []maps.GeocodingResult{{
		AddressComponents: []maps.AddressComponent{
			{LongName: "Thika Road", Types: []string{"route"}},
			{LongName: "Kahawa West", Types: []string{"sublocality", "political"}},
			{LongName: "Nairobi", Types: []string{"locality", "political"}},
			{LongName: "Nairobi", Types: []string{"administrative_area_level_2"}},
			{LongName: "Kenya", Types: []string{"country"}},
		},
	}, {
		AddressComponents: []maps.AddressComponent{
			{LongName: "Ruiru", Types: []string{"locality"}},
		},
	}}

	got := localitiesFrom(results)
	want := []string{"Kahawa West", "Nairobi"}
	if len(got) != len(want) {
		t.Fatalf("localitiesFrom = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("localitiesFrom[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := localitiesFrom(nil); got != nil {
		t.Errorf("expected nil for no results, got %v", got)
	}
}
