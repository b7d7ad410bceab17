// Package geo computes great-circle distances and the dense
// plant-by-customer distance/cost matrices the optimizer consumes.
package geo

import (
	"math"

	"github.com/decision-spot/net-opt/internal/model"
)

// Earth radii by unit. The mile radius matches the value used across our
// network studies rather than the rounded 3959.
const (
	earthRadiusMiles = 3958.756
	earthRadiusKm    = 6371.00
)

// UnitRadius returns the earth radius for a unit string. Accepts
// "miles"/"mile"/"m" and "kilometers"/"kilometer"/"km"; anything else
// falls back to miles.
func UnitRadius(units string) float64 {
	switch units {
	case "km", "kilometer", "kilometers":
		return earthRadiusKm
	case "", "m", "mile", "miles":
		return earthRadiusMiles
	default:
		return earthRadiusMiles
	}
}

// Haversine returns the great-circle distance between two coordinates in
// the requested units, scaled by roadFactor to approximate road distance.
// A roadFactor of 0 is treated as 1.
func Haversine(lat1, lon1, lat2, lon2 float64, roadFactor float64, units string) float64 {
	if roadFactor <= 0 {
		roadFactor = 1
	}
	r := UnitRadius(units)
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return r * c * roadFactor
}

// Matrix holds pairwise plant->customer distances and lane costs, indexed
// by position in the source slices.
type Matrix struct {
	Dist [][]float64 // [plant][customer] distance
	Cost [][]float64 // [plant][customer] lane transport cost
}

// BuildMatrix computes distances for every (plant, customer) pair and the
// per-lane transport cost max(costPerMile*dist, minLaneCost).
func BuildMatrix(plants []model.Plant, customers []model.Customer, p model.Params) Matrix {
	m := Matrix{
		Dist: make([][]float64, len(plants)),
		Cost: make([][]float64, len(plants)),
	}
	for i, pl := range plants {
		m.Dist[i] = make([]float64, len(customers))
		m.Cost[i] = make([]float64, len(customers))
		for j, c := range customers {
			d := Haversine(pl.Latitude, pl.Longitude, c.Latitude, c.Longitude, p.RoadFactor, p.Units)
			m.Dist[i][j] = d
			m.Cost[i][j] = math.Max(p.CostPerMile*d, p.MinLaneCost)
		}
	}
	return m
}
