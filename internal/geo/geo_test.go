package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	p := Point{Lat: 15.3694, Lon: 44.1910}
	require.Zero(t, Haversine(p, p))
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	// one degree of latitude on the 6371 km sphere
	d := Haversine(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	require.InDelta(t, 111.1949, d, 0.0001)
}

func TestHaversineSanaaToAden(t *testing.T) {
	sanaa := Point{Lat: 15.3694, Lon: 44.1910}
	aden := Point{Lat: 12.7855, Lon: 45.0187}
	d := Haversine(sanaa, aden)
	require.InDelta(t, 300, d, 10)
}

func TestHaversineSymmetric(t *testing.T) {
	a := Point{Lat: 15.3694, Lon: 44.1910}
	b := Point{Lat: 12.7855, Lon: 45.0187}
	require.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestHaversineAntipodal(t *testing.T) {
	d := Haversine(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180})
	require.InDelta(t, 20015.08, d, 0.1)
}

func TestDeliveryFee(t *testing.T) {
	origin := &Point{Lat: 0, Lon: 0}
	oneDegreeNorth := &Point{Lat: 1, Lon: 0}

	cases := []struct {
		name string
		cfg  DeliveryConfig
		dest *Point
		want int64
	}{
		{
			name: "one degree at ratio 100",
			cfg:  DeliveryConfig{Enabled: true, RatioPerKM: 100, Origin: origin},
			dest: oneDegreeNorth,
			want: 11119,
		},
		{
			name: "disabled",
			cfg:  DeliveryConfig{Enabled: false, RatioPerKM: 100, Origin: origin},
			dest: oneDegreeNorth,
			want: 0,
		},
		{
			name: "zero ratio",
			cfg:  DeliveryConfig{Enabled: true, RatioPerKM: 0, Origin: origin},
			dest: oneDegreeNorth,
			want: 0,
		},
		{
			name: "missing origin",
			cfg:  DeliveryConfig{Enabled: true, RatioPerKM: 100},
			dest: oneDegreeNorth,
			want: 0,
		},
		{
			name: "missing destination",
			cfg:  DeliveryConfig{Enabled: true, RatioPerKM: 100, Origin: origin},
			dest: nil,
			want: 0,
		},
		{
			name: "same point",
			cfg:  DeliveryConfig{Enabled: true, RatioPerKM: 100, Origin: origin},
			dest: &Point{Lat: 0, Lon: 0},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeliveryFee(tc.cfg, tc.dest))
		})
	}
}
