package snapshot

import (
	"math"
	"sort"
)

// Declutter tuning. Coordinates are binned to GroupingPrecision
// degrees; co-located servers are pushed apart on a ring starting at
// BaseOffsetDeg from the group center.
const (
	GroupingPrecision = 0.2
	BaseOffsetDeg     = 2.0
)

// Placement is a server with its final plot position. Servers alone in
// their bin keep their exact coordinates.
type Placement struct {
	Server Server
	Lat    float64
	Lon    float64
	Size   float64 // marker area, scaled from SizeGB
}

type binKey struct {
	lat float64
	lon float64
}

func roundTo(x, step float64) float64 {
	return math.Round(x/step) * step
}

// Declutter groups servers by binned coordinates and spreads each
// group so overlapping markers stay readable. The largest server of a
// group keeps the true coordinate; the rest ring around it.
func Declutter(servers []Server) []Placement {
	sizes := markerSizes(servers)

	groups := make(map[binKey][]int)
	var order []binKey
	for i, s := range servers {
		key := binKey{lat: roundTo(s.Lat, GroupingPrecision), lon: roundTo(s.Lon, GroupingPrecision)}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var placements []Placement
	for _, key := range order {
		members := groups[key]
		// Largest first so it anchors the true coordinate.
		sort.SliceStable(members, func(a, b int) bool {
			return servers[members[a]].SizeGB > servers[members[b]].SizeGB
		})

		center := servers[members[0]]
		offsets := ringOffsets(len(members), center.Lat)
		for rank, idx := range members {
			placements = append(placements, Placement{
				Server: servers[idx],
				Lat:    servers[idx].Lat + offsets[rank][0],
				Lon:    servers[idx].Lon + offsets[rank][1],
				Size:   sizes[idx],
			})
		}
	}
	return placements
}

// ringOffsets returns (dlat, dlon) offsets for n group members. The
// first member stays put; the others are spaced evenly on a circle
// whose radius grows with the group size. Longitude offsets are
// stretched by 1/cos(lat) so the ring stays circular on the map, with
// the divisor floored to avoid blowups near the poles.
func ringOffsets(n int, centerLat float64) [][2]float64 {
	offsets := make([][2]float64, 0, n)
	offsets = append(offsets, [2]float64{0, 0})
	if n == 1 {
		return offsets
	}

	radius := BaseOffsetDeg * (1 + 0.15*float64(n-2))
	cosLat := math.Max(math.Cos(centerLat*math.Pi/180), 0.2)
	for i := 1; i < n; i++ {
		angle := 2 * math.Pi * float64(i-1) / float64(n-1)
		dlat := radius * math.Cos(angle)
		dlon := radius * math.Sin(angle) / cosLat
		offsets = append(offsets, [2]float64{dlat, dlon})
	}
	return offsets
}

// markerSizes scales marker areas so area tracks the square root of
// the min-max normalized size. All-equal sizes collapse to a uniform
// marker.
func markerSizes(servers []Server) []float64 {
	if len(servers) == 0 {
		return nil
	}

	minSize, maxSize := servers[0].SizeGB, servers[0].SizeGB
	for _, s := range servers[1:] {
		minSize = math.Min(minSize, s.SizeGB)
		maxSize = math.Max(maxSize, s.SizeGB)
	}

	sizes := make([]float64, len(servers))
	if maxSize == minSize {
		for i := range sizes {
			sizes[i] = 300
		}
		return sizes
	}

	for i, s := range servers {
		norm := (s.SizeGB - minSize) / (maxSize - minSize)
		sizes[i] = 100 + 2000*math.Sqrt(norm)
	}
	return sizes
}
