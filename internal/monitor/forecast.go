package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

// ForecastFetcher is the forecast slice of the IMGW client.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) (imgw.Record, error)
}

// ForecastView is the optional per-consumer forecast sub-coordinator. It
// runs on its own timer, independent of the shared poller, since the
// forecast endpoint is keyed by coordinates rather than shared across
// consumers.
type ForecastView struct {
	fetcher  ForecastFetcher
	lat, lon float64

	mu       sync.RWMutex
	snapshot *ForecastSnapshot
}

// NewForecastView creates a forecast coordinator for a fixed point.
func NewForecastView(fetcher ForecastFetcher, lat, lon float64) *ForecastView {
	return &ForecastView{fetcher: fetcher, lat: lat, lon: lon}
}

// Snapshot returns the latest forecast, or ErrUpdateFailed before the first
// successful fetch.
func (f *ForecastView) Snapshot() (*ForecastSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.snapshot == nil {
		return nil, ErrUpdateFailed
	}
	return f.snapshot, nil
}

// Refresh fetches and parses the forecast. A fetch failure keeps the
// previous snapshot.
func (f *ForecastView) Refresh(ctx context.Context) (*ForecastSnapshot, error) {
	payload, err := f.fetcher.FetchForecast(ctx, f.lat, f.lon)
	if err != nil {
		return nil, err
	}

	snapshot := parseForecast(payload)
	f.mu.Lock()
	f.snapshot = snapshot
	f.mu.Unlock()
	return snapshot, nil
}

func parseForecast(payload imgw.Record) *ForecastSnapshot {
	snapshot := &ForecastSnapshot{FetchedAt: time.Now().UTC()}

	if current, ok := payload["current"].(map[string]any); ok {
		rec := imgw.Record(current)
		snapshot.Current = CurrentConditions{
			Temperature: safeFloat(rec["temp"]),
			FeelsLike:   safeFloat(rec["feels_like"]),
			Humidity:    safeFloat(rec["humidity"]),
			Pressure:    safeFloat(rec["pressure"]),
			WindSpeed:   safeFloat(rec["wind_speed"]),
			CloudCover:  safeFloat(rec["cloud"]),
			Precip:      safeFloat(rec["precip"]),
			Snow:        safeFloat(rec["snow"]),
			Icon:        rec.Str("icon"),
		}
		snapshot.Current.Condition = forecastCondition(
			snapshot.Current.Icon,
			snapshot.Current.Precip,
			snapshot.Current.Snow,
			snapshot.Current.CloudCover,
		)
	}

	for _, rec := range payload.Records("hourly") {
		entry := HourlyForecast{
			Date:        rec.Str("date"),
			Temperature: safeFloat(rec["temp"]),
			Precip:      safeFloat(rec["precip"]),
			WindSpeed:   safeFloat(rec["wind_speed"]),
			Icon:        rec.Str("icon"),
		}
		entry.Condition = forecastCondition(entry.Icon, entry.Precip, nil, nil)
		snapshot.Hourly = append(snapshot.Hourly, entry)
	}

	for _, rec := range payload.Records("daily") {
		entry := DailyForecast{
			Date:      rec.Str("date"),
			TempMax:   safeFloat(rec["temp_max"]),
			TempMin:   safeFloat(rec["temp_min"]),
			Precip:    safeFloat(rec["precip"]),
			WindSpeed: safeFloat(rec["wind_speed"]),
			Icon:      rec.Str("icon"),
		}
		entry.Condition = forecastCondition(entry.Icon, entry.Precip, nil, nil)
		snapshot.Daily = append(snapshot.Daily, entry)
	}

	if sun, ok := payload["sun"].(map[string]any); ok {
		rec := imgw.Record(sun)
		snapshot.Sun = SunTimes{
			Sunrise: rec.Str("sunrise"),
			Sunset:  rec.Str("sunset"),
		}
	}

	return snapshot
}

// forecastCondition prefers the icon code and falls back to measurements.
func forecastCondition(icon string, precip, snow, cloud *float64) Condition {
	if cond := ParseIcon(icon); cond != ConditionUnknown {
		return cond
	}
	return conditionFromValues(precip, snow, cloud, false)
}
