package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/store"
)

func yearOfSpend() *memSource {
	src := &memSource{}
	start := calendar.MustParseDate("2024-01-01")
	for i := 0; i < 366; i++ {
		for _, rt := range []string{"compute", "storage", "network"} {
			e := spend(start.AddDays(i).String(), float64(i%17))
			e.ResourceType = rt
			src.entries = append(src.entries, e)
		}
	}
	return src
}

func BenchmarkComputeStatus(b *testing.B) {
	src := yearOfSpend()
	bud := model.Budget{Name: "bench", PeriodType: model.Monthly, Amount: 500, StartDate: calendar.MustParseDate("2024-01-01")}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.queries = src.queries[:0]
		_, err := ComputeStatus(context.Background(), bud, src,
			calendar.MustParseDate("2024-01-01"), calendar.MustParseDate("2024-12-31"), WithLogger(quietLogger))
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComputeTrend(b *testing.B) {
	src := yearOfSpend()
	req := TrendRequest{
		From:        calendar.MustParseDate("2024-01-01"),
		To:          calendar.MustParseDate("2025-06-30"),
		Granularity: calendar.Day,
		Today:       calendar.MustParseDate("2025-01-01"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.queries = src.queries[:0]
		if _, err := ComputeTrend(context.Background(), req, src, WithLogger(quietLogger)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIngest(b *testing.B) {
	dir := b.TempDir()
	for f := 0; f < 12; f++ {
		var sb strings.Builder
		for i := 0; i < 2000; i++ {
			fmt.Fprintf(&sb, `{"resource_type":"compute","from_date":"2024-%02d-%02d","quantity":%d,"unit_price":0.25}`+"\n",
				f+1, i%28+1, i)
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("m%02d.jsonl", f)), []byte(sb.String()), 0o600); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		st, err := store.Open(filepath.Join(b.TempDir(), "bench.db"))
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()

		if _, err := Ingest(dir, st, nil); err != nil {
			b.Fatal(err)
		}

		b.StopTimer()
		_ = st.Close()
		b.StartTimer()
	}
}
