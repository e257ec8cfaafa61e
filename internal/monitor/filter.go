package monitor

import (
	"sort"
	"strings"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/geo"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

// MatchesTeryt reports whether any of the record's TERYT codes falls under
// the requested filter: a 2-digit filter matches a whole voivodeship, a
// 4-digit filter one powiat.
func MatchesTeryt(codes []string, filter string) bool {
	if filter == "" {
		return true
	}
	for _, code := range codes {
		if strings.HasPrefix(code, filter) {
			return true
		}
	}
	return false
}

// matchesHydroArea applies the free-text matching hydrological warnings
// require. With a powiat name, the name must appear as a case-insensitive
// substring of some area description; there is no structured fallback.
// Whole-region mode matches the voivodeship name against each area's region
// field.
func matchesHydroArea(rec imgw.Record, voivName, powiatName string) bool {
	areas := rec.Records("obszary")
	if powiatName != "" {
		for _, area := range areas {
			if containsFold(area.Str("opis"), powiatName) {
				return true
			}
		}
		return false
	}
	if voivName == "" {
		return true
	}
	for _, area := range areas {
		if containsFold(area.Str("wojewodztwo"), voivName) {
			return true
		}
	}
	return false
}

// stationPoint is the station geometry a nearest-search needs.
type stationPoint struct {
	index int
	lat   float64
	lon   float64
}

// nearestIndexes returns the indexes of the closest points within radiusKM,
// nearest first, at most max entries.
func nearestIndexes(points []stationPoint, lat, lon, radiusKM float64, max int) []int {
	type candidate struct {
		index int
		dist  float64
	}
	candidates := make([]candidate, 0, len(points))
	for _, p := range points {
		d := geo.Haversine(lat, lon, p.lat, p.lon)
		if d <= radiusKM {
			candidates = append(candidates, candidate{index: p.index, dist: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.index
	}
	return out
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func distanceTo(lat, lon float64, pLat, pLon *float64) *float64 {
	if pLat == nil || pLon == nil {
		return nil
	}
	d := geo.Haversine(lat, lon, *pLat, *pLon)
	return &d
}
