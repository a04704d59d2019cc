package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/source"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, APIKey: "k-123", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func janQuery() source.Query {
	r := calendar.DateRange{From: calendar.MustParseDate("2024-01-01"), To: calendar.MustParseDate("2024-01-31")}
	return source.Query{Span: r.Exclusive(), Region: "eu-west-1"}
}

func TestFetch_SendsExclusiveRangeAndAuth(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"currency":"EUR","entries":[
			{"resource_type":"compute","from_date":"2024-01-01","to_date":"2024-01-02","quantity":4,"unit_price":"0.25"},
			{"resource_type":"storage","from_date":"2024-01-05","quantity":"2","unit_price":3}
		]}`))
	})

	res, err := c.Fetch(context.Background(), janQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotPath != "/v1/consumption" {
		t.Errorf("path = %q, want /v1/consumption", gotPath)
	}
	if !strings.Contains(gotQuery, "to=2024-02-01") || !strings.Contains(gotQuery, "from=2024-01-01") {
		t.Errorf("query = %q, want from=2024-01-01 and exclusive to=2024-02-01", gotQuery)
	}
	if !strings.Contains(gotQuery, "region=eu-west-1") {
		t.Errorf("query = %q, want region filter", gotQuery)
	}
	if gotAuth != "Bearer k-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if res.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", res.Currency)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(res.Entries))
	}
	if got := res.Entries[0].Price(); got != 1 {
		t.Errorf("Price = %v, want 1", got)
	}
	if got := res.Entries[1].To.String(); got != "2024-01-06" {
		t.Errorf("defaulted To = %s, want 2024-01-06", got)
	}
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.Fetch(context.Background(), janQuery())
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestFetch_ServerErrorMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream","message":"billing export not ready"}`))
	})
	_, err := c.Fetch(context.Background(), janQuery())
	if err == nil || !strings.Contains(err.Error(), "billing export not ready") {
		t.Fatalf("err = %v, want upstream message", err)
	}
}

func TestFetch_BadEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entries":[{"resource_type":"x","from_date":"2024-01-01","quantity":"lots","unit_price":1}]}`))
	})
	if _, err := c.Fetch(context.Background(), janQuery()); err == nil {
		t.Fatal("expected error for unparseable quantity")
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Options{BaseURL: "https://billing.example.com"}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("missing key: err = %v, want ErrNoAPIKey", err)
	}
	if _, err := NewClient(Options{BaseURL: "not a url", APIKey: "k"}); err == nil {
		t.Error("expected error for invalid base url")
	}
}

func TestFetch_RateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entries":[]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, APIKey: "k", RequestsPerSecond: 0.001, Burst: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Fetch(context.Background(), janQuery()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Fetch(ctx, janQuery()); err == nil {
		t.Fatal("second fetch should fail waiting for the limiter")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`3`, 3, true},
		{`0.125`, 0.125, true},
		{`" 1.5 "`, 1.5, true},
		{`"abc"`, 0, false},
		{`null`, 0, true},
		{``, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAmount([]byte(tt.raw))
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseAmount(%s) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
