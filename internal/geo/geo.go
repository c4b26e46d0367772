// Package geo holds the great-circle math used by discovery.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether p lies within the coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Box is a lat/lon rectangle. When the box crosses the antimeridian
// MinLon > MaxLon.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// WrapsLon reports whether the box crosses the antimeridian.
func (b Box) WrapsLon() bool { return b.MinLon > b.MaxLon }

// BoundingBox returns a rectangle that contains every point within
// radiusKm of center. It over-approximates; callers still filter by
// DistanceKm.
func BoundingBox(center Point, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	lat := radians(center.Lat)
	lon := radians(center.Lon)

	minLat, maxLat := lat-angular, lat+angular
	var minLon, maxLon float64

	if minLat > -math.Pi/2 && maxLat < math.Pi/2 {
		dLon := math.Asin(math.Sin(angular) / math.Cos(lat))
		minLon, maxLon = lon-dLon, lon+dLon
		if minLon < -math.Pi {
			minLon += 2 * math.Pi
		}
		if maxLon > math.Pi {
			maxLon -= 2 * math.Pi
		}
	} else {
		// a pole is inside the circle
		minLat = math.Max(minLat, -math.Pi/2)
		maxLat = math.Min(maxLat, math.Pi/2)
		minLon, maxLon = -math.Pi, math.Pi
	}

	return Box{
		MinLat: degrees(minLat), MaxLat: degrees(maxLat),
		MinLon: degrees(minLon), MaxLon: degrees(maxLon),
	}
}

// Destination moves distanceKm from p along the initial bearing (degrees
// clockwise from north).
func Destination(p Point, distanceKm, bearingDeg float64) Point {
	angular := distanceKm / EarthRadiusKm
	bearing := radians(bearingDeg)
	lat1, lon1 := radians(p.Lat), radians(p.Lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)
	lon2 = math.Mod(lon2+3*math.Pi, 2*math.Pi) - math.Pi

	return Point{Lat: degrees(lat2), Lon: degrees(lon2)}
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
