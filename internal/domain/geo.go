package domain

import (
	"math"
	"time"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// HaversineKm returns the great-circle distance in kilometers between two points
//
//	d = 2R * asin( sqrt( sin²(Δφ/2) + cos φ1 * cos φ2 * sin²(Δλ/2) ) )
//
// where φ is latitude and λ is longitude, both in radians.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := Deg2Rad(lat1)
	phi2 := Deg2Rad(lat2)
	dPhi := Deg2Rad(lat2 - lat1)
	dLambda := Deg2Rad(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Rounding can push a slightly above 1 for antipodal points.
	if a > 1 {
		a = 1
	}

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// NormalizeLon180 maps a longitude into the [-180, 180] range.
//
// Satellite tracks and ERA5 grids are often delivered on a 0–360° axis;
// values above 180 are shifted by -360. Values already in range are
// returned unchanged.
func NormalizeLon180(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return lon
}

// NormalizeLon360 maps a longitude into the [0, 360) range.
func NormalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon
}

// BoundingBox is a latitude/longitude rectangle. Longitudes are in [-180, 180].
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box (edges included).
// A box with MinLon > MaxLon crosses the antimeridian.
func (b BoundingBox) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	lon = NormalizeLon180(lon)
	if b.MinLon <= b.MaxLon {
		return lon >= b.MinLon && lon <= b.MaxLon
	}
	return lon >= b.MinLon || lon <= b.MaxLon
}

// IsZero reports whether the box is unset.
func (b BoundingBox) IsZero() bool {
	return b == BoundingBox{}
}

// Region is a bounding box combined with an inclusive time window.
// Zero Start or End leaves that side of the window open.
type Region struct {
	Box   BoundingBox
	Start time.Time
	End   time.Time
}

// Contains reports whether a point at time t falls inside the region.
func (r Region) Contains(lat, lon float64, t time.Time) bool {
	if !r.Box.IsZero() && !r.Box.Contains(lat, lon) {
		return false
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// AkaraRegion is the study area and period of the Akará cyclone (February 2024).
func AkaraRegion() Region {
	return Region{
		Box: BoundingBox{
			MinLat: -45.0,
			MaxLat: -20.0,
			MinLon: -50.0,
			MaxLon: -30.0,
		},
		Start: time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 16, 23, 59, 0, 0, time.UTC),
	}
}
