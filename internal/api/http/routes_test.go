package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/monitor"
)

func upstreamHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/synop", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id_stacji":"12375","stacja":"Warszawa","temperatura":"4.2"}]`))
	})
	mux.HandleFunc("/hydro", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/meteo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/warningsmeteo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/warningshydro", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Kraków","lat":"50.06","lon":"19.94","rank":"8","teryt":"1261"}]`))
	})
	return mux
}

func testApp(t *testing.T) (*fiber.App, *monitor.Hub) {
	t.Helper()

	srv := httptest.NewServer(upstreamHandler())
	t.Cleanup(srv.Close)

	client := imgw.NewClient(srv.Client(), imgw.WithBaseURL(srv.URL), imgw.WithProxyURL(srv.URL))
	location := &monitor.PointSource{}

	hub := monitor.NewHub(monitor.Deps{
		Fetcher:   client,
		Forecast:  client,
		Geocoder:  client,
		Locations: location,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub.Start(ctx)
	t.Cleanup(hub.Stop)

	app := fiber.New()
	RegisterRoutes(app, hub, client, location)
	return app, hub
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPutLocation(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(jsonRequest(fiber.MethodPut, "/api/v1/location", `{"lat":52.2297,"lon":21.0122}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, err = app.Test(jsonRequest(fiber.MethodPut, "/api/v1/location", `{"lat":123.4,"lon":21.0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range latitude, got %d", resp.StatusCode)
	}
}

func TestRegisterSubscription(t *testing.T) {
	app, _ := testApp(t)

	body := `{"name":"home","mode":"stations","endpoints":["synop"],"station_ids":["12375"],"update_interval":30}`
	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/api/v1/subscriptions", body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.Handle == "" {
		t.Fatal("expected a non-empty handle")
	}
}

func TestRegisterSubscriptionValidation(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/api/v1/subscriptions", `{"name":"x","mode":"bogus"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for invalid mode, got %d", resp.StatusCode)
	}

	resp, err = app.Test(jsonRequest(fiber.MethodPost, "/api/v1/subscriptions", `not json`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/subscriptions/nope/snapshot", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown handle, got %d", resp.StatusCode)
	}

	body := `{"name":"home","mode":"stations","endpoints":["synop"],"station_ids":["12375"],"update_interval":30}`
	resp, err = app.Test(jsonRequest(fiber.MethodPost, "/api/v1/subscriptions", body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var created struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	// The first refresh runs in the background; poll until the snapshot lands.
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/subscriptions/"+created.Handle+"/snapshot", nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode == fiber.StatusOK {
			break
		}
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("expected 503 while warming up, got %d", resp.StatusCode)
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot endpoint never returned data")
		}
		time.Sleep(20 * time.Millisecond)
	}

	var snapshot monitor.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(snapshot.Synop) != 1 || snapshot.Synop[0].StationID != "12375" {
		t.Fatalf("unexpected snapshot contents: %+v", snapshot.Synop)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodDelete, "/api/v1/subscriptions/"+created.Handle, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodDelete, "/api/v1/subscriptions/"+created.Handle, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 on double delete, got %d", resp.StatusCode)
	}
}

func TestSearchLocationsEndpoint(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/locations/search", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without a name, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/locations/search?name=Krak%C3%B3w", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var results []imgw.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decoding results: %v", err)
	}
	if len(results) != 1 || results[0].Teryt != "1261" {
		t.Fatalf("unexpected search results: %+v", results)
	}
}
