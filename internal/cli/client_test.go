package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"order-analysis/internal/database"
	"order-analysis/internal/handlers"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://example.com/", 0)

	if client.baseURL != "http://example.com" {
		t.Errorf("Expected trailing slash to be removed, got '%s'", client.baseURL)
	}
	if client.httpClient.Timeout != DefaultConfig().RequestTimeout {
		t.Errorf("Expected default timeout, got %v", client.httpClient.Timeout)
	}

	client = NewClient("http://example.com", 5*time.Second, WithAPIKey("k"), WithRetries(2, time.Millisecond))
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Expected timeout to be 5s, got %v", client.httpClient.Timeout)
	}
	if client.apiKey != "k" || client.retries != 2 {
		t.Errorf("Expected options to be applied, got key=%q retries=%d", client.apiKey, client.retries)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.URL.Path != "/api/health" {
			t.Errorf("Expected path '/api/health', got '%s'", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy","database":"ok","source":"sample:seed-1"}`))
	}))
	defer server.Close()

	health, err := NewClient(server.URL, time.Second).Health(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if health.Status != "healthy" || health.Source != "sample:seed-1" {
		t.Errorf("Unexpected health response: %+v", health)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json error", http.StatusBadRequest, `{"error":"invalid date \"x\""}`, `invalid date "x"`},
		{"plain text", http.StatusNotFound, "404 page not found\n", "404 page not found"},
		{"empty body", http.StatusConflict, "", "409 Conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).Config(context.Background())

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, apiErr.Message)
			}
		})
	}
}

func TestDriversSection(t *testing.T) {
	date, _ := orders.ParseDate("2025-03-01")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/drivers" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("date") != "2025-03-01" || q.Get("hub") != "Hebbal" || q.Get("refresh") != "true" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(handlers.SectionResponse{
			RunID: "run-1",
			Data: &report.DriverSummary{
				Date:       date,
				Hub:        "Hebbal",
				Rows:       []report.DriverSummaryRow{{Driver: "KA01", VehicleModel: "Bike", Delivered: 3, Total: 3, DeliveredPercent: "100%"}},
				GrandTotal: report.DriverSummaryRow{Driver: report.GrandTotalLabel, Delivered: 3, Total: 3, DeliveredPercent: "100%"},
			},
		})
	}))
	defer server.Close()

	summary, err := NewClient(server.URL, time.Second).Drivers(context.Background(),
		ReportQuery{Date: "2025-03-01", Hub: "Hebbal", Refresh: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Date != date || len(summary.Rows) != 1 || summary.Rows[0].Driver != "KA01" {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if summary.GrandTotal.Total != 3 {
		t.Errorf("Expected grand total 3, got %d", summary.GrandTotal.Total)
	}
}

func TestExport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/hubs/export" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "csv" {
			t.Errorf("Expected csv format, got %s", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Disposition", `attachment; filename="2025-03-01_hebbal_hubs.csv"`)
		w.Write([]byte("Hub Name,Total\n"))
	}))
	defer server.Close()

	body, filename, err := NewClient(server.URL, time.Second).Export(context.Background(), "hubs", "csv", ReportQuery{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer body.Close()

	if filename != "2025-03-01_hebbal_hubs.csv" {
		t.Errorf("Unexpected filename %q", filename)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "Hub Name,Total\n" {
		t.Errorf("Unexpected body %q", data)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"metabase unavailable"}`))
			return
		}
		json.NewEncoder(w).Encode([]database.Run{{ID: "r1"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithRetries(3, time.Millisecond))
	runs, err := client.Runs(context.Background(), 10)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r1" {
		t.Errorf("Unexpected runs %+v", runs)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestNoRetryForPostOrClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"report run not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithRetries(3, time.Millisecond))

	if _, err := client.RunSnapshot(context.Background()); err == nil {
		t.Error("Expected error from snapshot")
	}
	if _, err := client.Run(context.Background(), "missing"); err == nil {
		t.Error("Expected error from run lookup")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 calls without retries, got %d", calls)
	}
}

func TestAdminCallsSendAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		switch r.URL.Path {
		case "/api/cache/invalidate":
			w.Write([]byte(`{"source":"sample:seed-1","invalidated":true,"age":"3s"}`))
		case "/api/snapshots/pause", "/api/snapshots/resume":
			w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithAPIKey("s3cret"))
	resp, err := client.InvalidateCache(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !resp.Invalidated || resp.Age != "3s" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if err := client.PauseSnapshots(context.Background()); err != nil {
		t.Errorf("Pause failed: %v", err)
	}
	if err := client.ResumeSnapshots(context.Background()); err != nil {
		t.Errorf("Resume failed: %v", err)
	}

	_, err = NewClient(server.URL, time.Second).InvalidateCache(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %v", err)
	}
}
