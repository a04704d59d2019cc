package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cloudburn.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(rt, from string, qty, price float64) model.ConsumptionEntry {
	d := calendar.MustParseDate(from)
	return model.ConsumptionEntry{ResourceType: rt, From: d, To: d.AddDays(1), Quantity: qty, UnitPrice: price, Region: "eu"}
}

func TestFetch_ExclusiveEnd(t *testing.T) {
	s := openTest(t)
	err := s.ReplaceFile("jan.jsonl", []model.ConsumptionEntry{
		entry("compute", "2024-01-01", 1, 10),
		entry("compute", "2024-01-31", 1, 20),
		entry("compute", "2024-02-01", 1, 40),
	}, 1, 100)
	if err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	jan := calendar.DateRange{From: calendar.MustParseDate("2024-01-01"), To: calendar.MustParseDate("2024-01-31")}
	res, err := s.Fetch(context.Background(), source.Query{Span: jan.Exclusive()})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(res.Entries))
	}
	if cost, _ := model.SumPrice(res.Entries); cost != 30 {
		t.Errorf("cost = %v, want 30", cost)
	}
	if res.Currency != DefaultCurrency {
		t.Errorf("Currency = %q, want %q", res.Currency, DefaultCurrency)
	}
	if got := res.Entries[1].To.String(); got != "2024-02-01" {
		t.Errorf("To = %s, want 2024-02-01", got)
	}
}

func TestFetch_Filters(t *testing.T) {
	s := openTest(t)
	us := entry("compute", "2024-01-05", 1, 7)
	us.Region = "us"
	us.Account = "acme"
	if err := s.ReplaceFile("a.csv", []model.ConsumptionEntry{entry("compute", "2024-01-05", 1, 3), us}, 1, 1); err != nil {
		t.Fatal(err)
	}

	span := calendar.Span{From: calendar.MustParseDate("2024-01-01"), To: calendar.MustParseDate("2024-02-01")}
	res, err := s.Fetch(context.Background(), source.Query{Span: span, Region: "us", Account: "acme"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 || res.Entries[0].UnitPrice != 7 {
		t.Errorf("filtered entries = %+v, want only the us entry", res.Entries)
	}
}

func TestReplaceFile_ReplacesPreviousImport(t *testing.T) {
	s := openTest(t)
	if err := s.ReplaceFile("a.jsonl", []model.ConsumptionEntry{entry("x", "2024-01-01", 1, 1), entry("x", "2024-01-02", 1, 1)}, 1, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceFile("b.jsonl", []model.ConsumptionEntry{entry("y", "2024-03-01", 1, 1)}, 1, 5); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceFile("a.jsonl", []model.ConsumptionEntry{entry("x", "2024-01-09", 1, 1)}, 2, 11); err != nil {
		t.Fatal(err)
	}

	n, err := s.EntryCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("EntryCount = %d, want 2", n)
	}

	tracked, err := s.GetTrackedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if fi := tracked["a.jsonl"]; fi.MtimeNs != 2 || fi.SizeBytes != 11 || fi.EntryCount != 1 {
		t.Errorf("tracked a.jsonl = %+v", fi)
	}

	r, ok, err := s.DataRange()
	if err != nil || !ok {
		t.Fatalf("DataRange = %v, %v", ok, err)
	}
	if r.String() != "2024-01-09..2024-03-01" {
		t.Errorf("DataRange = %s", r)
	}

	if err := s.DeleteFile("b.jsonl"); err != nil {
		t.Fatal(err)
	}
	tracked, _ = s.GetTrackedFiles()
	if _, ok := tracked["b.jsonl"]; ok {
		t.Error("b.jsonl still tracked after DeleteFile")
	}
}

func TestDataRange_Empty(t *testing.T) {
	s := openTest(t)
	if _, ok, err := s.DataRange(); ok || err != nil {
		t.Errorf("DataRange on empty store = %v, %v; want false, nil", ok, err)
	}
}
