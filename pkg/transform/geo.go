package transform

import (
	"math"
	"sort"

	"github.com/meridianlabs/boardsync/pkg/boards"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// HaversineKm computes the great-circle distance in kilometers between
// two coordinate pairs given in degrees.
func HaversineKm(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// NearestCity returns the name of the table entry closest to the given
// point. O(n) scan in sorted name order, so exact distance ties resolve
// deterministically to the first minimal entry encountered.
func (r *Registry) NearestCity(point Coordinates) (string, bool) {
	if len(r.tables.Cities) == 0 {
		return "", false
	}

	names := make([]string, 0, len(r.tables.Cities))
	for name := range r.tables.Cities {
		names = append(names, name)
	}
	sort.Strings(names)

	nearest := ""
	minDistance := math.Inf(1)
	for _, name := range names {
		if d := HaversineKm(point, r.tables.Cities[name]); d < minDistance {
			minDistance = d
			nearest = name
		}
	}

	return nearest, true
}

// mapNearestCity resolves a location column's coordinates to the nearest
// reference city, returned as a single dropdown label.
func (r *Registry) mapNearestCity(tc Context) (any, bool) {
	cv := tc.sourceValue()
	if cv == nil {
		return nil, false
	}

	decoded := cv.Decode()
	if decoded.Kind != boards.KindLocation {
		return nil, false
	}

	city, ok := r.NearestCity(Coordinates{Lat: decoded.Location.Lat, Lng: decoded.Location.Lng})
	if !ok {
		return nil, false
	}
	return []string{city}, true
}
