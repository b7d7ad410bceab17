package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-spot/net-opt/internal/geo"
	"github.com/decision-spot/net-opt/internal/model"
)

// Chicago and Detroit, a lane used throughout these tests. The great-circle
// distance between them is a hair over 237 miles.
const (
	chiLat, chiLon = 41.8781, -87.6298
	detLat, detLon = 42.3314, -83.0458
)

func TestHaversineKnownPair(t *testing.T) {
	d := geo.Haversine(chiLat, chiLon, detLat, detLon, 1, "miles")
	require.InDelta(t, 237.03, d, 0.05)
}

func TestHaversineKilometers(t *testing.T) {
	mi := geo.Haversine(chiLat, chiLon, detLat, detLon, 1, "miles")
	km := geo.Haversine(chiLat, chiLon, detLat, detLon, 1, "km")
	require.InDelta(t, 381.47, km, 0.05)
	// Same arc, different radius: the ratio is fixed by the two radii.
	require.InDelta(t, 6371.00/3958.756, km/mi, 1e-9)
}

func TestHaversineRoadFactor(t *testing.T) {
	base := geo.Haversine(chiLat, chiLon, detLat, detLon, 1, "miles")
	scaled := geo.Haversine(chiLat, chiLon, detLat, detLon, 1.17, "miles")
	require.InDelta(t, base*1.17, scaled, 1e-9)

	// Zero or negative factor falls back to 1.
	require.InDelta(t, base, geo.Haversine(chiLat, chiLon, detLat, detLon, 0, "miles"), 1e-9)
	require.InDelta(t, base, geo.Haversine(chiLat, chiLon, detLat, detLon, -2, "miles"), 1e-9)
}

func TestHaversineDegenerateCases(t *testing.T) {
	require.Zero(t, geo.Haversine(chiLat, chiLon, chiLat, chiLon, 1, "miles"))

	// Quarter of the equator: exactly R*pi/2.
	q := geo.Haversine(0, 0, 0, 90, 1, "miles")
	require.InDelta(t, 3958.756*math.Pi/2, q, 1e-6)

	// Symmetric in its endpoints.
	ab := geo.Haversine(chiLat, chiLon, detLat, detLon, 1, "km")
	ba := geo.Haversine(detLat, detLon, chiLat, chiLon, 1, "km")
	require.InDelta(t, ab, ba, 1e-9)
}

func TestUnitRadius(t *testing.T) {
	require.Equal(t, geo.UnitRadius("miles"), geo.UnitRadius(""))
	require.Equal(t, geo.UnitRadius("km"), geo.UnitRadius("kilometers"))
	// Unknown units fall back to miles.
	require.Equal(t, geo.UnitRadius("miles"), geo.UnitRadius("furlongs"))
	require.Greater(t, geo.UnitRadius("km"), geo.UnitRadius("miles"))
}

func TestBuildMatrix(t *testing.T) {
	plants := []model.Plant{
		{ID: "P1", Latitude: chiLat, Longitude: chiLon},
		{ID: "P2", Latitude: detLat, Longitude: detLon},
	}
	customers := []model.Customer{
		{ID: "C1", Latitude: detLat, Longitude: detLon, Demand: 10},
		{ID: "C2", Latitude: chiLat, Longitude: chiLon, Demand: 5},
	}
	params := model.Params{Units: "miles", RoadFactor: 1, CostPerMile: 2, MinLaneCost: 100}

	mx := geo.BuildMatrix(plants, customers, params)
	require.Len(t, mx.Dist, 2)
	require.Len(t, mx.Dist[0], 2)

	require.InDelta(t, 237.03, mx.Dist[0][0], 0.05)
	require.Zero(t, mx.Dist[0][1])
	require.InDelta(t, mx.Dist[0][0], mx.Dist[1][1], 1e-9)

	// Lane cost is max(costPerMile*dist, minLaneCost): the long lane is
	// priced per mile, the zero-length lane hits the floor.
	require.InDelta(t, 2*mx.Dist[0][0], mx.Cost[0][0], 1e-9)
	require.Equal(t, 100.0, mx.Cost[0][1])
}
