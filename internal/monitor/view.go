package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/geo"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/poller"
)

// ErrUpdateFailed is returned when the shared cache holds no usable data for
// any of the subscribed endpoints. This is the only data error a consumer
// ever sees; everything else degrades to stale or partial snapshots.
var ErrUpdateFailed = errors.New("monitor: no usable shared data")

// Source is the shared cache a view reads from.
type Source interface {
	Entry(ep imgw.Endpoint) (poller.Entry, bool)
}

// Geocoder resolves administrative regions for tracked locations. Both calls
// are best effort; the view falls back to capital-distance heuristics.
type Geocoder interface {
	NominatimReverse(ctx context.Context, lat, lon float64) (string, error)
	ReverseGeocode(ctx context.Context, lat, lon float64, hints []string, maxKM float64, distance func(lat1, lon1, lat2, lon2 float64) float64) (*imgw.SearchResult, error)
}

// LocationSource supplies an externally mutable reference point (e.g. a home
// location) for subscriptions with dynamic tracking. It is polled once per
// refresh cycle.
type LocationSource interface {
	Coordinates() (lat, lon float64, ok bool)
}

// region is the effective administrative scope used for warning filters.
type region struct {
	voivCode   string // 2-digit TERYT
	powiatCode string // 4-digit TERYT, optional
	powiatName string // display name for free-text hydro matching
	resolved   bool   // true once geocoding (not just heuristics) succeeded
}

// View is one consumer's coordinator: it reads the shared cache on its own
// schedule, applies the subscription's filters, and republishes a processed
// snapshot. It never mutates the shared cache.
type View struct {
	source    Source
	geocoder  Geocoder
	locations LocationSource

	mu             sync.Mutex
	sub            Subscription
	lat, lon       float64
	hasPoint       bool
	reg            region
	geocodePending bool

	snapMu   sync.RWMutex
	snapshot *Snapshot
}

// NewView creates a view over the shared source. geocoder and locations may
// be nil; dynamic relocation then degrades to the configured point.
func NewView(source Source, geocoder Geocoder, locations LocationSource, sub Subscription) *View {
	v := &View{
		source:    source,
		geocoder:  geocoder,
		locations: locations,
	}
	v.applySubscription(sub)
	return v
}

// SetSubscription replaces the view's configuration (options edit).
func (v *View) SetSubscription(sub Subscription) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applySubscription(sub)
}

// applySubscription resets derived state; callers hold v.mu (or own v
// exclusively during construction).
func (v *View) applySubscription(sub Subscription) {
	if sub.RadiusKM <= 0 {
		sub.RadiusKM = DefaultRadiusKM
	}
	if sub.MaxStations <= 0 {
		sub.MaxStations = 1
	}
	v.sub = sub
	v.lat, v.lon = sub.Lat, sub.Lon
	v.hasPoint = sub.Mode == FilterPoint
	v.reg = region{
		voivCode:   sub.Voivodeship,
		powiatCode: sub.Powiat,
		powiatName: sub.PowiatName,
		resolved:   sub.Voivodeship != "",
	}
	if !v.reg.resolved && v.hasPoint {
		v.reg.voivCode = geo.NearestVoivodeship(v.lat, v.lon)
	}
}

// Subscription returns a copy of the current configuration.
func (v *View) Subscription() Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sub
}

// Snapshot returns the latest processed snapshot, or ErrUpdateFailed when no
// refresh has produced one yet.
func (v *View) Snapshot() (*Snapshot, error) {
	v.snapMu.RLock()
	defer v.snapMu.RUnlock()
	if v.snapshot == nil {
		return nil, ErrUpdateFailed
	}
	return v.snapshot, nil
}

// Refresh reads the shared cache, filters it for this subscription, and
// publishes a new snapshot. Data-quality problems degrade to nil fields or
// excluded records; only a fully unusable cache is an error.
func (v *View) Refresh(ctx context.Context) (*Snapshot, error) {
	v.mu.Lock()
	v.trackLocationLocked(ctx)
	sub := v.sub
	lat, lon, hasPoint := v.lat, v.lon, v.hasPoint
	reg := v.reg
	v.mu.Unlock()

	snapshot := &Snapshot{
		GeneratedAt: time.Now().UTC(),
		Freshness:   make(map[imgw.Endpoint]time.Time),
	}

	usable := 0
	for _, ep := range sub.ActiveEndpoints() {
		entry, ok := v.source.Entry(ep)
		if !ok || !entry.Usable() {
			continue
		}
		usable++
		snapshot.Freshness[ep] = entry.FetchedAt

		switch ep {
		case imgw.EndpointSynop:
			snapshot.Synop = v.filterSynop(entry.Records, sub, lat, lon, hasPoint)
		case imgw.EndpointHydro:
			snapshot.Hydro = v.filterHydro(entry.Records, sub, lat, lon, hasPoint, reg)
		case imgw.EndpointMeteo:
			snapshot.Meteo = v.filterMeteo(entry.Records, sub, lat, lon, hasPoint)
		case imgw.EndpointWarningsMeteo:
			snapshot.WarningsMeteo = filterMeteoWarnings(entry.Records, reg)
		case imgw.EndpointWarningsHydro:
			snapshot.WarningsHydro = filterHydroWarnings(entry.Records, reg)
		}
	}

	if usable == 0 {
		return nil, ErrUpdateFailed
	}

	v.snapMu.Lock()
	v.snapshot = snapshot
	v.snapMu.Unlock()
	return snapshot, nil
}

// trackLocationLocked polls the external reference point once per refresh.
// On movement the nearest stations are re-resolved from cached lists by the
// subsequent filtering (no network), while the administrative region is
// refreshed lazily off the hot path.
func (v *View) trackLocationLocked(ctx context.Context) {
	if !v.sub.TrackLocation || v.locations == nil {
		return
	}
	lat, lon, ok := v.locations.Coordinates()
	if !ok {
		return
	}
	if v.hasPoint && lat == v.lat && lon == v.lon {
		return
	}

	v.lat, v.lon = lat, lon
	v.hasPoint = true

	// Heuristic region takes effect immediately; geocoding refines it later
	// and is allowed to fail silently.
	v.reg = region{voivCode: geo.NearestVoivodeship(lat, lon)}
	if v.geocoder != nil && !v.geocodePending {
		v.geocodePending = true
		go v.resolveRegion(context.WithoutCancel(ctx), lat, lon)
	}
}

// resolveRegion refines the effective region via reverse geocoding.
func (v *View) resolveRegion(ctx context.Context, lat, lon float64) {
	defer func() {
		v.mu.Lock()
		v.geocodePending = false
		v.mu.Unlock()
	}()

	name, err := v.geocoder.NominatimReverse(ctx, lat, lon)
	if err != nil || name == "" {
		log.Printf("monitor: reverse geocode skipped for %.4f,%.4f: %v", lat, lon, err)
		return
	}

	result, err := v.geocoder.ReverseGeocode(ctx, lat, lon, []string{name}, DefaultRadiusKM, geo.Haversine)
	if err != nil || result == nil || len(result.Teryt) < 2 {
		return
	}

	v.mu.Lock()
	// Only apply if the point has not moved again meanwhile.
	if v.lat == lat && v.lon == lon {
		v.reg = region{
			voivCode:   result.Teryt[:2],
			powiatCode: result.Teryt,
			powiatName: result.District,
			resolved:   true,
		}
	}
	v.mu.Unlock()
}

func (v *View) filterSynop(records []imgw.Record, sub Subscription, lat, lon float64, hasPoint bool) []SynopObservation {
	parsed := make([]SynopObservation, 0, len(records))
	for _, rec := range records {
		parsed = append(parsed, parseSynop(rec))
	}

	switch sub.Mode {
	case FilterStations:
		ids := stringSet(sub.StationIDs)
		out := parsed[:0]
		for _, obs := range parsed {
			if _, ok := ids[obs.StationID]; ok {
				if hasPoint {
					obs.DistanceKM = distanceTo(lat, lon, obs.Lat, obs.Lon)
				}
				out = append(out, obs)
			}
		}
		return out

	case FilterPoint:
		points := make([]stationPoint, 0, len(parsed))
		for i, obs := range parsed {
			if obs.Lat != nil && obs.Lon != nil {
				points = append(points, stationPoint{index: i, lat: *obs.Lat, lon: *obs.Lon})
			}
		}
		out := make([]SynopObservation, 0, sub.MaxStations)
		for _, i := range nearestIndexes(points, lat, lon, sub.RadiusKM, sub.MaxStations) {
			obs := parsed[i]
			obs.DistanceKM = distanceTo(lat, lon, obs.Lat, obs.Lon)
			out = append(out, obs)
		}
		return out
	}

	// Region mode carries no synoptic station scope.
	return nil
}

func (v *View) filterHydro(records []imgw.Record, sub Subscription, lat, lon float64, hasPoint bool, reg region) []HydroObservation {
	parsed := make([]HydroObservation, 0, len(records))
	for _, rec := range records {
		parsed = append(parsed, parseHydro(rec))
	}

	switch sub.Mode {
	case FilterStations:
		ids := stringSet(sub.StationIDs)
		out := parsed[:0]
		for _, obs := range parsed {
			if _, ok := ids[obs.StationID]; ok {
				if hasPoint {
					obs.DistanceKM = distanceTo(lat, lon, obs.Lat, obs.Lon)
				}
				out = append(out, obs)
			}
		}
		return out

	case FilterPoint:
		points := make([]stationPoint, 0, len(parsed))
		for i, obs := range parsed {
			if obs.Lat != nil && obs.Lon != nil {
				points = append(points, stationPoint{index: i, lat: *obs.Lat, lon: *obs.Lon})
			}
		}
		out := make([]HydroObservation, 0, sub.MaxStations)
		for _, i := range nearestIndexes(points, lat, lon, sub.RadiusKM, sub.MaxStations) {
			obs := parsed[i]
			obs.DistanceKM = distanceTo(lat, lon, obs.Lat, obs.Lon)
			out = append(out, obs)
		}
		return out

	case FilterRegion:
		voivName := imgw.Voivodeships[reg.voivCode]
		if voivName == "" {
			return nil
		}
		out := parsed[:0]
		for _, obs := range parsed {
			if containsFold(obs.Voivodeship, voivName) {
				out = append(out, obs)
			}
		}
		return out
	}
	return nil
}

func (v *View) filterMeteo(records []imgw.Record, sub Subscription, lat, lon float64, hasPoint bool) []MeteoObservation {
	parsed := make([]MeteoObservation, 0, len(records))
	for _, rec := range records {
		parsed = append(parsed, parseMeteo(rec))
	}

	switch sub.Mode {
	case FilterStations:
		ids := stringSet(sub.StationIDs)
		out := parsed[:0]
		for _, obs := range parsed {
			if _, ok := ids[obs.StationCode]; ok {
				if hasPoint {
					obs.DistanceKM = distanceTo(lat, lon, obs.Lat, obs.Lon)
				}
				out = append(out, obs)
			}
		}
		return out

	case FilterPoint:
		points := make([]stationPoint, 0, len(parsed))
		for i, obs := range parsed {
			if obs.Lat != nil && obs.Lon != nil {
				points = append(points, stationPoint{index: i, lat: *obs.Lat, lon: *obs.Lon})
			}
		}
		out := make([]MeteoObservation, 0, sub.MaxStations)
		for _, i := range nearestIndexes(points, lat, lon, sub.RadiusKM, sub.MaxStations) {
			obs := parsed[i]
			obs.DistanceKM = distanceTo(lat, lon, obs.Lat, obs.Lon)
			out = append(out, obs)
		}
		return out
	}
	return nil
}

func filterMeteoWarnings(records []imgw.Record, reg region) *MeteoWarningReport {
	filter := reg.powiatCode
	if filter == "" {
		filter = reg.voivCode
	}

	warnings := make([]MeteoWarning, 0, len(records))
	for _, rec := range records {
		if !MatchesTeryt(rec.Strings("teryt"), filter) {
			continue
		}
		warnings = append(warnings, parseMeteoWarning(rec))
	}
	return buildMeteoWarningReport(warnings)
}

func filterHydroWarnings(records []imgw.Record, reg region) *HydroWarningReport {
	voivName := imgw.Voivodeships[reg.voivCode]

	warnings := make([]HydroWarning, 0, len(records))
	for _, rec := range records {
		if !matchesHydroArea(rec, voivName, reg.powiatName) {
			continue
		}
		warnings = append(warnings, parseHydroWarning(rec))
	}
	return buildHydroWarningReport(warnings)
}
