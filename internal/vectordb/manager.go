package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotReady is returned for searches against an index that holds no
// chunks yet.
var ErrNotReady = errors.New("index not ready")

// State of the index lifecycle.
type State string

const (
	// StateUninitialized means Open has not run yet.
	StateUninitialized State = "uninitialized"
	// StateEmpty means the index is usable but holds no chunks.
	StateEmpty State = "empty"
	// StateReady means chunks are indexed and searches may run.
	StateReady State = "ready"
)

const (
	// IndexFile is the snapshot the index persists to. Its presence is the
	// only signal that a previous run left state worth loading.
	IndexFile = "index.gob.gz"
	// ManifestFile records the embedding model the snapshot was built with.
	ManifestFile = "manifest.json"
)

// Manifest pins the embedding space of a persisted snapshot. Vectors from
// different models must never mix, so any mismatch at load time discards
// the snapshot and starts fresh.
type Manifest struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// Manager owns the index directory and the lifecycle of the Store: loading
// a snapshot or starting empty at boot, persisting after every write, and
// the destructive reset. Writes serialize behind an exclusive lock while
// searches share a read lock.
type Manager struct {
	store    Store
	dir      string
	manifest Manifest

	mu    sync.RWMutex
	state State
}

// NewManager creates a manager over store, persisting into dir. Open must
// run before any other operation.
func NewManager(store Store, dir string, manifest Manifest) *Manager {
	return &Manager{
		store:    store,
		dir:      dir,
		manifest: manifest,
		state:    StateUninitialized,
	}
}

// Open leaves the uninitialized state. A readable snapshot written by the
// configured embedding model is loaded; no snapshot, a model mismatch or a
// corrupt file all start empty.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	path := filepath.Join(m.dir, IndexFile)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("checking index snapshot: %w", err)
		}
		m.state = StateEmpty
		return nil
	}

	stored, err := m.readManifest()
	if err != nil {
		log.Printf("index: unreadable manifest, discarding snapshot: %v", err)
		return m.discardLocked()
	}
	if stored != m.manifest {
		log.Printf("index: snapshot built with %s/%s (%d dims) but config wants %s/%s (%d dims), discarding",
			stored.Provider, stored.Model, stored.Dimensions,
			m.manifest.Provider, m.manifest.Model, m.manifest.Dimensions)
		return m.discardLocked()
	}

	if err := m.store.Import(path); err != nil {
		log.Printf("index: snapshot failed to load, discarding: %v", err)
		return m.discardLocked()
	}

	if m.store.Count() > 0 {
		m.state = StateReady
	} else {
		m.state = StateEmpty
	}
	return nil
}

// AddBatch indexes one ingestion batch and persists the result. The batch
// lands completely or not at all; on a persistence failure the batch is
// taken back out so memory and disk stay in agreement.
func (m *Manager) AddBatch(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateUninitialized {
		return fmt.Errorf("index not opened")
	}

	if err := m.store.AddChunks(ctx, chunks); err != nil {
		return err
	}

	if err := m.persistLocked(); err != nil {
		seen := make(map[string]bool)
		for _, c := range chunks {
			if !seen[c.Metadata.DocumentID] {
				seen[c.Metadata.DocumentID] = true
				_ = m.store.DeleteByDocument(ctx, c.Metadata.DocumentID)
			}
		}
		if m.store.Count() == 0 {
			m.state = StateEmpty
		}
		return fmt.Errorf("persisting index: %w", err)
	}

	m.state = StateReady
	return nil
}

// RemoveDocument deletes every chunk of one document and persists. Used to
// undo an ingest whose registry bookkeeping failed.
func (m *Manager) RemoveDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateUninitialized {
		return fmt.Errorf("index not opened")
	}

	if err := m.store.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	if m.store.Count() == 0 {
		m.state = StateEmpty
	}
	return m.persistLocked()
}

// SearchScored returns the k best chunks for the query vector with their
// similarity scores, MMR re-ranked over a fetchK-sized candidate pool.
func (m *Manager) SearchScored(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]Scored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateReady {
		return nil, ErrNotReady
	}
	if k <= 0 {
		return nil, nil
	}
	if fetchK < k {
		fetchK = k
	}

	pool, err := m.store.QueryEmbedding(ctx, query, fetchK)
	if err != nil {
		return nil, err
	}
	return MMR(pool, k, lambda), nil
}

// Search is SearchScored with the scores dropped; callers see rank order
// only.
func (m *Manager) Search(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]Chunk, error) {
	scored, err := m.SearchScored(ctx, query, k, fetchK, lambda)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}
	return chunks, nil
}

// Reset irreversibly clears the index. The persisted files are removed
// before the in-memory handle drops, so a crash mid-reset cannot resurrect
// stale state on the next boot.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discardLocked()
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready reports whether searches may run.
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// Count returns the number of indexed chunks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == StateUninitialized {
		return 0
	}
	return m.store.Count()
}

// Manifest returns the embedding model identity this manager enforces.
func (m *Manager) Manifest() Manifest {
	return m.manifest
}

// discardLocked removes the snapshot and manifest files, drops the
// in-memory store and leaves the manager empty. Files go first.
func (m *Manager) discardLocked() error {
	for _, name := range []string{IndexFile, ManifestFile} {
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	if err := m.store.Drop(); err != nil {
		return fmt.Errorf("dropping index: %w", err)
	}
	m.state = StateEmpty
	return nil
}

// persistLocked snapshots the store next to the final location and renames
// it into place, then refreshes the manifest.
func (m *Manager) persistLocked() error {
	tmp := filepath.Join(m.dir, IndexFile+".tmp")
	if err := m.store.Export(tmp); err != nil {
		return fmt.Errorf("exporting snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(m.dir, IndexFile)); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return m.writeManifest()
}

func (m *Manager) readManifest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, ManifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var stored Manifest
	if err := json.Unmarshal(data, &stored); err != nil {
		return Manifest{}, err
	}
	return stored, nil
}

func (m *Manager) writeManifest() error {
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, ManifestFile), data, 0o644)
}
