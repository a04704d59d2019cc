package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// ParseResult holds the output of parsing a single export file.
type ParseResult struct {
	Path        string
	Entries     []model.ConsumptionEntry
	ParseErrors int
	Err         error
}

var errMissingField = errors.New("missing field")

// csvColumns are the recognised CSV header names. The first five are required.
var csvColumns = []string{"resource_type", "from_date", "to_date", "quantity", "unit_price", "region", "account"}

// ParseFile reads a billing export. Malformed lines are counted in
// ParseErrors and skipped; only I/O failures and an unusable CSV header set Err.
//
// JSONL files hold one entry object per line:
//
//	{"resource_type":"compute","from_date":"2024-01-01","to_date":"2024-01-02","quantity":3,"unit_price":0.5}
//
// CSV files start with a header naming at least the five required columns.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Path: df.Path, Err: err}
	}
	defer func() { _ = f.Close() }()

	var pr ParseResult
	if df.Format == FormatCSV {
		pr = parseCSV(f)
	} else {
		pr = parseJSONL(f)
	}
	pr.Path = df.Path
	return pr
}

func parseJSONL(r io.Reader) ParseResult {
	var pr ParseResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var e model.ConsumptionEntry
		if err := json.Unmarshal(line, &e); err != nil {
			pr.ParseErrors++
			continue
		}
		if err := normalize(&e); err != nil {
			pr.ParseErrors++
			continue
		}
		pr.Entries = append(pr.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		pr.Err = err
	}
	return pr
}

func parseCSV(r io.Reader) ParseResult {
	var pr ParseResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return pr
		}
		pr.Err = fmt.Errorf("reading csv header: %w", err)
		return pr
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns[:5] {
		if _, ok := idx[col]; !ok {
			pr.Err = fmt.Errorf("csv header: %s: %w", col, errMissingField)
			return pr
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				pr.ParseErrors++
				continue
			}
			pr.Err = err
			return pr
		}
		e, err := entryFromRecord(rec, idx)
		if err != nil {
			pr.ParseErrors++
			continue
		}
		pr.Entries = append(pr.Entries, e)
	}
	return pr
}

func entryFromRecord(rec []string, idx map[string]int) (model.ConsumptionEntry, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var e model.ConsumptionEntry
	var err error
	e.ResourceType = field("resource_type")
	e.Region = field("region")
	e.Account = field("account")
	if e.From, err = calendar.ParseDate(field("from_date")); err != nil {
		return e, err
	}
	if s := field("to_date"); s != "" {
		if e.To, err = calendar.ParseDate(s); err != nil {
			return e, err
		}
	}
	if e.Quantity, err = strconv.ParseFloat(field("quantity"), 64); err != nil {
		return e, fmt.Errorf("quantity: %w", err)
	}
	// An empty unit_price leaves the row unpriced for the rate card.
	if s := field("unit_price"); s != "" {
		if e.UnitPrice, err = strconv.ParseFloat(s, 64); err != nil {
			return e, fmt.Errorf("unit_price: %w", err)
		}
	}
	return e, normalize(&e)
}

// normalize checks the required fields and defaults a missing to_date to the
// day after from_date.
func normalize(e *model.ConsumptionEntry) error {
	if e.ResourceType == "" {
		return fmt.Errorf("resource_type: %w", errMissingField)
	}
	if e.From.IsZero() {
		return fmt.Errorf("from_date: %w", errMissingField)
	}
	if e.To.IsZero() {
		e.To = e.From.AddDays(1)
	}
	return nil
}
