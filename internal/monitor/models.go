// Package monitor turns raw shared-poller payloads into per-consumer views:
// filtered station selections, region-scoped warnings, and optional weather
// forecasts, refreshed on each consumer's own cadence.
package monitor

import (
	"time"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

// FilterMode selects how a subscription narrows the shared data down.
type FilterMode string

const (
	// FilterStations selects explicit station identifiers.
	FilterStations FilterMode = "stations"
	// FilterPoint selects the nearest stations around a geographic point.
	FilterPoint FilterMode = "point"
	// FilterRegion selects warnings by voivodeship (and optionally powiat).
	FilterRegion FilterMode = "region"
)

// Interval bounds for consumer refresh cadences, in minutes.
const (
	MinIntervalMinutes     = 5
	MaxIntervalMinutes     = 120
	DefaultIntervalMinutes = 30
)

// DefaultRadiusKM is the station search radius when none is configured.
const DefaultRadiusKM = 50.0

// Subscription describes what one consumer wants from the shared data.
type Subscription struct {
	Name string `json:"name" validate:"required"`

	// Endpoints to include; empty means all five.
	Endpoints []imgw.Endpoint `json:"endpoints" validate:"dive,oneof=synop hydro meteo warningsmeteo warningshydro"`

	Mode FilterMode `json:"mode" validate:"required,oneof=stations point region"`

	// FilterStations mode.
	StationIDs []string `json:"station_ids,omitempty" validate:"required_if=Mode stations"`

	// FilterPoint mode.
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	RadiusKM    float64 `json:"radius_km,omitempty" validate:"gte=0"`
	MaxStations int     `json:"max_stations,omitempty" validate:"gte=0"`

	// TrackLocation re-resolves the nearest stations whenever the injected
	// location source reports a moved reference point.
	TrackLocation bool `json:"track_location,omitempty"`

	// FilterRegion mode. Powiat is the 4-digit TERYT code; PowiatName is the
	// display name used for free-text matching on hydrological warnings,
	// which carry no structured codes.
	Voivodeship string `json:"voivodeship,omitempty" validate:"required_if=Mode region,omitempty,len=2,numeric"`
	Powiat      string `json:"powiat,omitempty" validate:"omitempty,len=4,numeric"`
	PowiatName  string `json:"powiat_name,omitempty"`

	// UpdateInterval is the refresh cadence in minutes, clamped to
	// [MinIntervalMinutes, MaxIntervalMinutes].
	UpdateInterval int `json:"update_interval" validate:"gte=5,lte=120"`

	// Optional forecast sub-coordinator.
	EnableForecast bool    `json:"enable_forecast,omitempty"`
	ForecastLat    float64 `json:"forecast_lat,omitempty"`
	ForecastLon    float64 `json:"forecast_lon,omitempty"`
}

// ActiveEndpoints returns the subscribed endpoints, defaulting to all.
func (s Subscription) ActiveEndpoints() []imgw.Endpoint {
	if len(s.Endpoints) == 0 {
		return imgw.Endpoints
	}
	return s.Endpoints
}

// Interval returns the refresh cadence as a duration, clamped.
func (s Subscription) Interval() time.Duration {
	return time.Duration(clampInterval(s.UpdateInterval)) * time.Minute
}

func clampInterval(minutes int) int {
	if minutes < MinIntervalMinutes {
		return MinIntervalMinutes
	}
	if minutes > MaxIntervalMinutes {
		return MaxIntervalMinutes
	}
	return minutes
}

// SynopObservation is one parsed synoptic station reading. Coordinates come
// from the static station table since the synop endpoint omits them.
type SynopObservation struct {
	StationID       string   `json:"station_id"`
	StationName     string   `json:"station_name"`
	MeasurementDate string   `json:"measurement_date,omitempty"`
	MeasurementHour string   `json:"measurement_hour,omitempty"`
	Temperature     *float64 `json:"temperature"`
	WindSpeed       *float64 `json:"wind_speed"`
	WindDirection   *int     `json:"wind_direction"`
	Humidity        *float64 `json:"humidity"`
	Precipitation   *float64 `json:"precipitation"`
	Pressure        *float64 `json:"pressure"`
	Lat             *float64 `json:"lat,omitempty"`
	Lon             *float64 `json:"lon,omitempty"`
	DistanceKM      *float64 `json:"distance_km,omitempty"`
}

// HydroObservation is one parsed hydrological station reading.
type HydroObservation struct {
	StationID            string   `json:"station_id"`
	StationName          string   `json:"station_name"`
	River                string   `json:"river,omitempty"`
	Voivodeship          string   `json:"voivodeship,omitempty"`
	Lat                  *float64 `json:"lat,omitempty"`
	Lon                  *float64 `json:"lon,omitempty"`
	WaterLevel           *int     `json:"water_level"`
	WaterLevelDate       string   `json:"water_level_date,omitempty"`
	WaterTemperature     *float64 `json:"water_temperature"`
	WaterTemperatureDate string   `json:"water_temperature_date,omitempty"`
	Flow                 *float64 `json:"flow"`
	FlowDate             string   `json:"flow_date,omitempty"`
	IcePhenomenon        *int     `json:"ice_phenomenon"`
	IcePhenomenonDate    string   `json:"ice_phenomenon_date,omitempty"`
	OvergrowthPhenomenon *int     `json:"overgrowth_phenomenon"`
	DistanceKM           *float64 `json:"distance_km,omitempty"`
}

// MeteoObservation is one parsed meteorological station reading.
type MeteoObservation struct {
	StationCode            string   `json:"station_code"`
	StationName            string   `json:"station_name"`
	Lat                    *float64 `json:"lat,omitempty"`
	Lon                    *float64 `json:"lon,omitempty"`
	GroundTemperature      *float64 `json:"ground_temperature"`
	GroundTemperatureDate  string   `json:"ground_temperature_date,omitempty"`
	AirTemperature         *float64 `json:"air_temperature"`
	AirTemperatureDate     string   `json:"air_temperature_date,omitempty"`
	WindDirection          *int     `json:"wind_direction"`
	WindDirectionDate      string   `json:"wind_direction_date,omitempty"`
	WindAvgSpeed           *float64 `json:"wind_avg_speed"`
	WindAvgSpeedDate       string   `json:"wind_avg_speed_date,omitempty"`
	WindMaxSpeed           *float64 `json:"wind_max_speed"`
	WindMaxSpeedDate       string   `json:"wind_max_speed_date,omitempty"`
	Humidity               *float64 `json:"humidity"`
	HumidityDate           string   `json:"humidity_date,omitempty"`
	WindGust10Min          *float64 `json:"wind_gust_10min"`
	WindGust10MinDate      string   `json:"wind_gust_10min_date,omitempty"`
	Precipitation10Min     *float64 `json:"precipitation_10min"`
	Precipitation10MinDate string   `json:"precipitation_10min_date,omitempty"`
	DistanceKM             *float64 `json:"distance_km,omitempty"`
}

// MeteoWarning is one active meteorological advisory.
type MeteoWarning struct {
	ID          string   `json:"id,omitempty"`
	Event       string   `json:"event"`
	Level       int      `json:"level"`
	Probability int      `json:"probability"`
	ValidFrom   string   `json:"valid_from"`
	ValidTo     string   `json:"valid_to"`
	Published   string   `json:"published,omitempty"`
	Content     string   `json:"content,omitempty"`
	Comment     string   `json:"comment,omitempty"`
	Office      string   `json:"office,omitempty"`
	Teryt       []string `json:"teryt,omitempty"`
}

// HydroWarning is one active hydrological advisory. Areas holds free-text
// affected-area descriptions; this source has no structured codes.
type HydroWarning struct {
	Number      string   `json:"number,omitempty"`
	Event       string   `json:"event"`
	Level       int      `json:"level"`
	Probability int      `json:"probability"`
	ValidFrom   string   `json:"valid_from"`
	ValidTo     string   `json:"valid_to"`
	Published   string   `json:"published,omitempty"`
	Description string   `json:"description,omitempty"`
	Comment     string   `json:"comment,omitempty"`
	Office      string   `json:"office,omitempty"`
	Areas       []string `json:"areas,omitempty"`
}

// MeteoWarningReport summarizes the filtered meteorological warnings, sorted
// by level descending then validity start.
type MeteoWarningReport struct {
	ActiveCount int            `json:"active_warnings_count"`
	MaxLevel    int            `json:"max_level"`
	Warnings    []MeteoWarning `json:"warnings"`
	Latest      *MeteoWarning  `json:"latest_warning,omitempty"`
}

// HydroWarningReport summarizes the filtered hydrological warnings, sorted
// by level descending then publication time.
type HydroWarningReport struct {
	ActiveCount int            `json:"active_warnings_count"`
	MaxLevel    int            `json:"max_level"`
	Warnings    []HydroWarning `json:"warnings"`
	Latest      *HydroWarning  `json:"latest_warning,omitempty"`
}

// Snapshot is one fully processed, immutable result set for a consumer.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`

	// Freshness holds the shared-cache fetch time per included endpoint, so
	// consumers can see staleness passively.
	Freshness map[imgw.Endpoint]time.Time `json:"freshness"`

	Synop         []SynopObservation  `json:"synop,omitempty"`
	Hydro         []HydroObservation  `json:"hydro,omitempty"`
	Meteo         []MeteoObservation  `json:"meteo,omitempty"`
	WarningsMeteo *MeteoWarningReport `json:"warnings_meteo,omitempty"`
	WarningsHydro *HydroWarningReport `json:"warnings_hydro,omitempty"`
}

// Condition is a normalized weather condition derived from IMGW icon codes.
type Condition string

const (
	ConditionUnknown        Condition = ""
	ConditionSunny          Condition = "sunny"
	ConditionClearNight     Condition = "clear-night"
	ConditionPartlyCloudy   Condition = "partlycloudy"
	ConditionCloudy         Condition = "cloudy"
	ConditionRainy          Condition = "rainy"
	ConditionPouring        Condition = "pouring"
	ConditionSnowy          Condition = "snowy"
	ConditionLightningRainy Condition = "lightning-rainy"
)

// CurrentConditions is the parsed "current" block of a forecast payload.
type CurrentConditions struct {
	Temperature *float64  `json:"temperature"`
	FeelsLike   *float64  `json:"feels_like"`
	Humidity    *float64  `json:"humidity"`
	Pressure    *float64  `json:"pressure"`
	WindSpeed   *float64  `json:"wind_speed"`
	CloudCover  *float64  `json:"cloud_cover"`
	Precip      *float64  `json:"precipitation"`
	Snow        *float64  `json:"snow"`
	Icon        string    `json:"icon,omitempty"`
	Condition   Condition `json:"condition,omitempty"`
}

// HourlyForecast is one hourly forecast entry.
type HourlyForecast struct {
	Date        string    `json:"date"`
	Temperature *float64  `json:"temperature"`
	Precip      *float64  `json:"precipitation"`
	WindSpeed   *float64  `json:"wind_speed"`
	Icon        string    `json:"icon,omitempty"`
	Condition   Condition `json:"condition,omitempty"`
}

// DailyForecast is one daily forecast entry.
type DailyForecast struct {
	Date      string    `json:"date"`
	TempMax   *float64  `json:"temp_max"`
	TempMin   *float64  `json:"temp_min"`
	Precip    *float64  `json:"precipitation"`
	WindSpeed *float64  `json:"wind_speed"`
	Icon      string    `json:"icon,omitempty"`
	Condition Condition `json:"condition,omitempty"`
}

// SunTimes carries sunrise/sunset timestamps.
type SunTimes struct {
	Sunrise string `json:"sunrise,omitempty"`
	Sunset  string `json:"sunset,omitempty"`
}

// ForecastSnapshot is one processed forecast cycle for a consumer.
type ForecastSnapshot struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Current   CurrentConditions `json:"current"`
	Hourly    []HourlyForecast  `json:"hourly,omitempty"`
	Daily     []DailyForecast   `json:"daily,omitempty"`
	Sun       SunTimes          `json:"sun"`
}
