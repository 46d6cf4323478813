package watch

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/askpdf/askpdf/internal/chunk"
	"github.com/askpdf/askpdf/internal/config"
	"github.com/askpdf/askpdf/internal/db"
	"github.com/askpdf/askpdf/internal/docstore"
	"github.com/askpdf/askpdf/internal/extract"
	"github.com/askpdf/askpdf/internal/rag"
	"github.com/askpdf/askpdf/internal/testpdf"
	"github.com/askpdf/askpdf/internal/vectordb"
)

type testEmbedder struct {
	dims int
}

func (e *testEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dims)
		var norm float64
		for j := range vec {
			h := fnv.New32a()
			h.Write([]byte(text))
			h.Write([]byte{byte(j)})
			v := float32(h.Sum32()%1000)/500.0 - 1.0
			vec[j] = v
			norm += float64(v) * float64(v)
		}
		scale := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= scale
		}
		out[i] = vec
	}
	return out, nil
}

func (e *testEmbedder) Dimensions() int { return e.dims }
func (e *testEmbedder) Name() string    { return "mock/test" }

func newTestService(t *testing.T) *rag.Service {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir

	embedder := &testEmbedder{dims: 32}
	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore() error = %v", err)
	}
	manager := vectordb.NewManager(store, filepath.Join(dir, "index"), vectordb.Manifest{
		Provider:   "mock",
		Model:      "test",
		Dimensions: 32,
	})

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	svc := rag.New(cfg, extract.PDF{}, chunk.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap),
		embedder, manager, docstore.NewStore(database))
	if err := svc.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return svc
}

// waitForDocs polls the service until it reports the wanted document count.
func waitForDocs(t *testing.T, svc *rag.Service, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := svc.Status(context.Background())
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if status.DocCount == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	status, _ := svc.Status(context.Background())
	t.Fatalf("doc count = %d, want %d within %v", status.DocCount, want, timeout)
}

func TestWatcherIngestsDroppedPDF(t *testing.T) {
	svc := newTestService(t)
	inbox := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(inbox, svc, 50*time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before dropping the file.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(inbox, "billing.pdf")
	if err := os.WriteFile(path, testpdf.Build("Refunds are available within 30 days of purchase."), 0o644); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}

	waitForDocs(t, svc, 1, 5*time.Second)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestWatcherIngestsExistingFiles(t *testing.T) {
	svc := newTestService(t)
	inbox := t.TempDir()

	path := filepath.Join(inbox, "billing.pdf")
	if err := os.WriteFile(path, testpdf.Build("Refunds are available within 30 days of purchase."), 0o644); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(inbox, svc, 50*time.Millisecond)
	go w.Run(ctx)

	waitForDocs(t, svc, 1, 5*time.Second)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	svc := newTestService(t)
	inbox := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(inbox, svc, 50*time.Millisecond)
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.DocCount != 0 {
		t.Errorf("doc count = %d, want 0", status.DocCount)
	}
}

func TestWatcherSkipsAlreadyIngested(t *testing.T) {
	svc := newTestService(t)
	inbox := t.TempDir()

	path := filepath.Join(inbox, "billing.pdf")
	if err := os.WriteFile(path, testpdf.Build("Refunds are available within 30 days of purchase."), 0o644); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(inbox, svc, 50*time.Millisecond)
	go w.Run(ctx)

	waitForDocs(t, svc, 1, 5*time.Second)

	// Rewriting the same file must not create a second document; the
	// registry already lists its path.
	if err := os.WriteFile(path, testpdf.Build("Refunds are available within 30 days of purchase."), 0o644); err != nil {
		t.Fatalf("rewriting pdf: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.DocCount != 1 {
		t.Errorf("doc count = %d after touch, want 1", status.DocCount)
	}
}
