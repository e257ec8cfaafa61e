package imgw

import "time"

// Endpoint identifies one logical IMGW data source.
type Endpoint string

const (
	EndpointSynop         Endpoint = "synop"
	EndpointHydro         Endpoint = "hydro"
	EndpointMeteo         Endpoint = "meteo"
	EndpointWarningsMeteo Endpoint = "warningsmeteo"
	EndpointWarningsHydro Endpoint = "warningshydro"
)

// Endpoints lists all primary data endpoints in a stable order.
var Endpoints = []Endpoint{
	EndpointSynop,
	EndpointHydro,
	EndpointMeteo,
	EndpointWarningsMeteo,
	EndpointWarningsHydro,
}

const (
	// DefaultBaseURL is the public IMGW-PIB data API.
	DefaultBaseURL = "https://danepubliczne.imgw.pl/api/data"

	// DefaultProxyURL serves location search and weather forecasts.
	DefaultProxyURL = "https://imgw-api-proxy.evtlab.pl"

	// DefaultNominatimURL is used for reverse geocoding.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
)

const (
	fetchTimeout    = 30 * time.Second
	searchTimeout   = 10 * time.Second
	forecastTimeout = 15 * time.Second
)

// userAgent identifies this service to the proxy and Nominatim.
const userAgent = "imgw-pib-monitor/1.0"
