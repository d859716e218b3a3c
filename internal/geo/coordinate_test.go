package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCoercesNonFinite(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantLat  float64
		wantLon  float64
	}{
		{"both finite", 40.0, -74.0, 40.0, -74.0},
		{"nan latitude", math.NaN(), -74.0, 0.0, -74.0},
		{"nan longitude", 40.0, math.NaN(), 40.0, 0.0},
		{"both nan", math.NaN(), math.NaN(), 0.0, 0.0},
		{"positive inf latitude", math.Inf(1), 12.5, 0.0, 12.5},
		{"negative inf longitude", 12.5, math.Inf(-1), 12.5, 0.0},
		{"zero passes through", 0.0, 0.0, 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.lat, tt.lon)
			require.Equal(t, tt.wantLat, c.Latitude)
			require.Equal(t, tt.wantLon, c.Longitude)
		})
	}
}

func TestValid(t *testing.T) {
	require.True(t, Coordinate{Latitude: 40.0, Longitude: -74.0}.Valid())
	require.True(t, Coordinate{}.Valid())
	require.True(t, Coordinate{Latitude: -90, Longitude: 180}.Valid())

	require.False(t, Coordinate{Latitude: math.NaN(), Longitude: -74.0}.Valid())
	require.False(t, Coordinate{Latitude: 40.0, Longitude: math.Inf(1)}.Valid())
	require.False(t, Coordinate{Latitude: 91.0, Longitude: 0}.Valid())
	require.False(t, Coordinate{Latitude: 0, Longitude: -181.0}.Valid())
}
