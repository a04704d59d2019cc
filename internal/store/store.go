// Package store provides a SQLite-backed consumption store fed by ingested
// billing exports. It serves as a ConsumptionSource.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DefaultCurrency is reported for results when none was configured.
const DefaultCurrency = "USD"

// Store provides SQLite-backed consumption storage.
type Store struct {
	db       *sql.DB
	currency string
}

// Open opens or creates the store database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, currency: DefaultCurrency}, nil
}

// Close closes the store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetCurrency sets the currency code reported by Fetch.
func (s *Store) SetCurrency(code string) {
	if code != "" {
		s.currency = code
	}
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs    int64
	SizeBytes  int64
	EntryCount int
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (s *Store) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := s.db.Query("SELECT file_path, mtime_ns, size_bytes, entry_count FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes, &fi.EntryCount); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// ReplaceFile swaps every entry previously imported from filePath for entries
// and records the file's mtime and size, all in one transaction.
func (s *Store) ReplaceFile(filePath string, entries []model.ConsumptionEntry, mtimeNs, sizeBytes int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM consumption_entries WHERE file_path = ?", filePath); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO consumption_entries
		(file_path, resource_type, from_date, to_date, quantity, unit_price, region, account)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		_, err = stmt.Exec(filePath, e.ResourceType, e.From.String(), e.To.String(),
			e.Quantity, e.UnitPrice, e.Region, e.Account)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes, entry_count, parsed_at)
		VALUES (?, ?, ?, ?, ?)`, filePath, mtimeNs, sizeBytes, len(entries), now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFile removes a file's entries and its tracking row.
func (s *Store) DeleteFile(filePath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM consumption_entries WHERE file_path = ?", filePath); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM file_tracker WHERE file_path = ?", filePath); err != nil {
		return err
	}
	return tx.Commit()
}

// Fetch implements source.ConsumptionSource. Entries are selected by from_date
// in [q.Span.From, q.Span.To).
func (s *Store) Fetch(ctx context.Context, q source.Query) (*source.Result, error) {
	var (
		where = []string{"from_date >= ?", "from_date < ?"}
		args  = []any{q.Span.From.String(), q.Span.To.String()}
	)
	if q.Region != "" {
		where = append(where, "region = ?")
		args = append(args, q.Region)
	}
	if q.Account != "" {
		where = append(where, "account = ?")
		args = append(args, q.Account)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		resource_type, from_date, to_date, quantity, unit_price, region, account
		FROM consumption_entries WHERE `+strings.Join(where, " AND ")+` ORDER BY from_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying consumption %s: %w", q.Span, err)
	}
	defer func() { _ = rows.Close() }()

	res := &source.Result{Currency: s.currency}
	for rows.Next() {
		var e model.ConsumptionEntry
		var fromStr, toStr string
		if err := rows.Scan(&e.ResourceType, &fromStr, &toStr, &e.Quantity, &e.UnitPrice, &e.Region, &e.Account); err != nil {
			return nil, err
		}
		if e.From, err = calendar.ParseDate(fromStr); err != nil {
			return nil, err
		}
		if e.To, err = calendar.ParseDate(toStr); err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, e)
	}
	return res, rows.Err()
}

// EntryCount returns the number of stored consumption entries.
func (s *Store) EntryCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM consumption_entries").Scan(&count)
	return count, err
}

// DataRange returns the earliest and latest from_date stored. ok is false
// for an empty store.
func (s *Store) DataRange() (r calendar.DateRange, ok bool, err error) {
	var minStr, maxStr sql.NullString
	err = s.db.QueryRow("SELECT MIN(from_date), MAX(from_date) FROM consumption_entries").Scan(&minStr, &maxStr)
	if err != nil || !minStr.Valid {
		return r, false, err
	}
	if r.From, err = calendar.ParseDate(minStr.String); err != nil {
		return r, false, err
	}
	if r.To, err = calendar.ParseDate(maxStr.String); err != nil {
		return r, false, err
	}
	return r, true, nil
}
