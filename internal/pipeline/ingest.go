package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
	"github.com/theirongolddev/cloudburn/internal/store"
)

// FileStore is the part of the store that ingestion writes to.
type FileStore interface {
	GetTrackedFiles() (map[string]store.FileInfo, error)
	ReplaceFile(filePath string, entries []model.ConsumptionEntry, mtimeNs, sizeBytes int64) error
	DeleteFile(filePath string) error
}

// Pricer fills in unit prices for entries exported without one.
type Pricer interface {
	Apply(entries []model.ConsumptionEntry) int
}

// IngestOption tunes Ingest.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	pricer Pricer
}

// WithPricer prices unpriced rows before they are stored.
func WithPricer(p Pricer) IngestOption { return func(o *ingestOptions) { o.pricer = p } }

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	TotalFiles  int
	Unchanged   int
	Reparsed    int
	Removed     int
	Entries     int
	Priced      int
	ParseErrors int
	FileErrors  int
}

// Ingest discovers billing exports under dir, diffs them against the store's
// file tracker, and reparses only new or changed files with a bounded worker
// pool. Each changed file's rows are replaced in one transaction. Tracked
// files under dir that no longer exist are removed.
func Ingest(dir string, st FileStore, progressFn ProgressFunc, opts ...IngestOption) (*IngestResult, error) {
	var iopts ingestOptions
	for _, fn := range opts {
		fn(&iopts)
	}

	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	tracked, err := st.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading file tracker: %w", err)
	}

	result := &IngestResult{TotalFiles: len(files)}

	// Diff: partition into changed and unchanged
	type stamped struct {
		file  source.DiscoveredFile
		mtime int64
		size  int64
	}
	var toReparse []stamped
	present := make(map[string]struct{}, len(files))

	for _, f := range files {
		present[f.Path] = struct{}{}
		info, err := os.Stat(f.Path)
		if err != nil {
			result.FileErrors++
			continue
		}
		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == info.ModTime().UnixNano() && cached.SizeBytes == info.Size() {
			result.Unchanged++
			continue
		}
		toReparse = append(toReparse, stamped{file: f, mtime: info.ModTime().UnixNano(), size: info.Size()})
	}

	prefix := filepath.Clean(dir) + string(filepath.Separator)
	for path := range tracked {
		if _, ok := present[path]; ok || !strings.HasPrefix(path, prefix) {
			continue
		}
		if err := st.DeleteFile(path); err != nil {
			return result, fmt.Errorf("removing %s: %w", path, err)
		}
		result.Removed++
	}

	if progressFn != nil && result.Unchanged > 0 {
		progressFn(result.Unchanged, result.TotalFiles)
	}
	if len(toReparse) == 0 {
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(toReparse) {
		numWorkers = len(toReparse)
	}

	work := make(chan int, len(toReparse))
	results := make([]source.ParseResult, len(toReparse))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range toReparse {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(toReparse[idx].file)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n)+result.Unchanged, result.TotalFiles)
				}
			}
		}()
	}

	wg.Wait()

	// SQLite has a single writer, so rows are stored after parsing finishes.
	for i, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		f := toReparse[i]
		if iopts.pricer != nil {
			result.Priced += iopts.pricer.Apply(pr.Entries)
		}
		if err := st.ReplaceFile(f.file.Path, pr.Entries, f.mtime, f.size); err != nil {
			return result, fmt.Errorf("storing %s: %w", f.file.Path, err)
		}
		result.Reparsed++
		result.Entries += len(pr.Entries)
		result.ParseErrors += pr.ParseErrors
	}

	return result, nil
}

// DataDir returns the platform-appropriate data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "cloudburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "cloudburn")
}

// StorePath returns the full path to the consumption database.
func StorePath() string {
	return filepath.Join(DataDir(), "consumption.db")
}
