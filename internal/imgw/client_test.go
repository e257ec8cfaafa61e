package imgw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler, opt func(string) ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), opt(srv.URL))
}

func TestFetchRecords(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synop" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id_stacji":"12375","stacja":"Warszawa","temperatura":"4.2"}]`))
	})
	c := testClient(t, handler, WithBaseURL)

	records, err := c.FetchRecords(context.Background(), EndpointSynop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Str("id_stacji") != "12375" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestFetchRecordsObjectPayloadIsAPIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	})
	c := testClient(t, handler, WithBaseURL)

	if _, err := c.FetchRecords(context.Background(), EndpointSynop); !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI for non-list payload, got %v", err)
	}
}

func TestFetchRecordsBadStatusIsAPIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	c := testClient(t, handler, WithBaseURL)

	if _, err := c.FetchRecords(context.Background(), EndpointSynop); !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI for 500, got %v", err)
	}
}

func TestFetchRecordsUnreachableHostIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(&http.Client{Timeout: time.Second}, WithBaseURL(srv.URL))

	if _, err := c.FetchRecords(context.Background(), EndpointSynop); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection for closed server, got %v", err)
	}
}

func TestFetchRecordsUnknownEndpoint(t *testing.T) {
	c := NewClient(http.DefaultClient)
	if _, err := c.FetchRecords(context.Background(), Endpoint("bogus")); !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI for unknown endpoint, got %v", err)
	}
}

func TestSearchLocations(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Kraków" {
			t.Errorf("unexpected name query: %q", got)
		}
		_, _ = w.Write([]byte(`[
			{"name":"Kraków","lat":"50.06","lon":"19.94","rank":"8","teryt":"1261"},
			{"name":"Krakówek","lat":0,"lon":0,"rank":"9"},
			{"name":"Kraków-Balice","lat":50.077,"lon":19.788,"rank":9.5}
		]`))
	})
	c := testClient(t, handler, WithProxyURL)

	results, err := c.SearchLocations(context.Background(), "Kraków", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected zero-coordinate entry to be skipped, got %d results", len(results))
	}
	if results[0].Name != "Kraków-Balice" || results[1].Name != "Kraków" {
		t.Fatalf("expected rank-descending order, got %+v", results)
	}
}

func TestSearchLocationsLimit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"a","lat":"50","lon":"19","rank":"1"},
			{"name":"b","lat":"51","lon":"20","rank":"2"},
			{"name":"c","lat":"52","lon":"21","rank":"3"}
		]`))
	})
	c := testClient(t, handler, WithProxyURL)

	results, err := c.SearchLocations(context.Background(), "x", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0].Name != "c" {
		t.Fatalf("expected top 2 by rank, got %+v", results)
	}
}

func TestReverseGeocodePicksNearestWithinRadius(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"near","lat":"50.10","lon":"19.95","rank":"1","teryt":"1261"},
			{"name":"far","lat":"54.35","lon":"18.65","rank":"9","teryt":"2261"}
		]`))
	})
	c := testClient(t, handler, WithProxyURL)

	fakeDist := func(lat1, lon1, lat2, lon2 float64) float64 {
		if lat2 > 52 {
			return 300
		}
		return 4
	}

	result, err := c.ReverseGeocode(context.Background(), 50.06, 19.94, []string{"Kraków"}, 50, fakeDist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.Name != "near" {
		t.Fatalf("expected the nearby candidate, got %+v", result)
	}
}

func TestReverseGeocodeIsBestEffort(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	c := testClient(t, handler, WithProxyURL)

	result, err := c.ReverseGeocode(context.Background(), 50, 19, []string{"x"}, 50,
		func(a, b, d, e float64) float64 { return 0 })
	if err != nil {
		t.Fatalf("reverse geocoding must never return an error, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result on lookup failure, got %+v", result)
	}
}

func TestNominatimReverse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("zoom") != "10" || q.Get("accept-language") != "pl" {
			t.Errorf("unexpected query: %v", q)
		}
		_, _ = w.Write([]byte(`{"address":{"town":"Wieliczka"}}`))
	})
	c := testClient(t, handler, WithNominatimURL)

	name, err := c.NominatimReverse(context.Background(), 49.98, 20.06)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Wieliczka" {
		t.Fatalf("expected town name, got %q", name)
	}
}

func TestNominatimReverseNoSettlement(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	})
	c := testClient(t, handler, WithNominatimURL)

	name, err := c.NominatimReverse(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "" {
		t.Fatalf("expected empty name for unresolvable point, got %q", name)
	}
}

func TestFetchForecastUnwrapsEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"current":{"temp":"11.5"},"hourly":[]}}`))
	})
	c := testClient(t, handler, WithProxyURL)

	payload, err := c.FetchForecast(context.Background(), 50.06, 19.94)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	current, ok := payload["current"].(map[string]any)
	if !ok || Record(current).Str("temp") != "11.5" {
		t.Fatalf("expected unwrapped current block, got %+v", payload)
	}
}

func TestFetchForecastBareBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"temp":"7"}}`))
	})
	c := testClient(t, handler, WithProxyURL)

	if _, err := c.FetchForecast(context.Background(), 50, 19); err != nil {
		t.Fatalf("unexpected error for bare payload: %v", err)
	}
}

func TestFetchForecastMissingCurrentIsAPIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly":[]}`))
	})
	c := testClient(t, handler, WithProxyURL)

	if _, err := c.FetchForecast(context.Background(), 50, 19); !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI when current conditions are missing, got %v", err)
	}
}

func TestSearchResultDisplayName(t *testing.T) {
	r := SearchResult{Name: "Wola", Commune: "Wieliczka", Province: "małopolskie"}
	if got := r.DisplayName(); got != "Wola, gm. Wieliczka, małopolskie" {
		t.Fatalf("unexpected display name: %q", got)
	}

	r = SearchResult{Name: "Kraków", Commune: "Kraków", Identifier: "Kraków (1261)"}
	if got := r.DisplayName(); got != "Kraków (1261)" {
		t.Fatalf("identifier must win: %q", got)
	}
}
