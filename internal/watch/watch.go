// Package watch feeds PDFs dropped into an inbox directory through the
// ingestion pipeline.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/askpdf/askpdf/internal/rag"
)

// DefaultDebounce is how long a file must sit unchanged before it is
// considered fully written.
const DefaultDebounce = 2 * time.Second

// Watcher ingests PDF files that appear in a directory. Each path is
// ingested once: the document registry records the source path, so a
// watcher restart does not create duplicates.
type Watcher struct {
	dir      string
	service  *rag.Service
	debounce time.Duration
}

// New creates a watcher over dir. A non-positive debounce uses the default.
func New(dir string, service *rag.Service, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		service:  service,
		debounce: debounce,
	}
}

// Run watches the directory until ctx is done. PDFs already present are
// ingested on start; new ones are held back until their size stops
// changing, so half-copied files are not picked up.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating watch dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	// Sweep whatever is already sitting in the inbox.
	pending := make(map[string]int64)
	existing, err := filepath.Glob(filepath.Join(w.dir, "*.pdf"))
	if err == nil {
		for _, path := range existing {
			pending[path] = -1
		}
	}

	log.Printf("watch: watching %s for new PDFs", w.dir)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	if len(pending) > 0 {
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			// -1 forces at least one stability round before ingestion.
			pending[event.Name] = -1
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		case <-timer.C:
			ready := collectStable(pending)
			if len(pending) > 0 {
				timer.Reset(w.debounce)
			}
			if len(ready) == 0 {
				continue
			}
			w.ingest(ctx, ready)
		}
	}
}

// collectStable returns the pending paths whose size has not changed since
// the last round and removes them from pending. Paths still growing stay
// pending with their new size.
func collectStable(pending map[string]int64) []string {
	var ready []string
	for path, lastSize := range pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(pending, path)
			continue
		}
		if info.Size() == 0 || info.Size() != lastSize {
			pending[path] = info.Size()
			continue
		}
		delete(pending, path)
		ready = append(ready, path)
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) ingest(ctx context.Context, paths []string) {
	// The registry keeps the watched path of every ingested document;
	// anything already registered is skipped rather than duplicated.
	if docs, err := w.service.Documents(ctx); err == nil {
		registered := make(map[string]bool, len(docs))
		for _, doc := range docs {
			registered[doc.StoredPath] = true
		}
		fresh := paths[:0]
		for _, path := range paths {
			if !registered[path] {
				fresh = append(fresh, path)
			}
		}
		paths = fresh
	}
	if len(paths) == 0 {
		return
	}

	res, err := w.service.IngestPaths(ctx, paths)
	if err != nil {
		log.Printf("watch: ingesting %d file(s): %v", len(paths), err)
		return
	}
	log.Printf("watch: ingested %d file(s), %d chunk(s), %d skipped",
		res.FilesProcessed, res.ChunksCreated, len(res.Skipped))
}
