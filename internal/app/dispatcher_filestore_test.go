package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanschultz/todoterm/internal/adapters/storage/filestore"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/keyseq"
)

// TestDispatcherKeepsCorruptFileOnQuit verifies a store file that fails to decode survives quit.
func TestDispatcherKeepsCorruptFileOnQuit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	corrupt := []byte("{\"incomplete_tasks\": [\"a\", \"b\",], \"complete_tasks\": []}\n")
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	repo, err := filestore.New(path, filestore.FormatJSON)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	d := app.NewDispatcher(app.NewStore(repo), app.DispatcherConfig{})
	if err := d.Load(ctx); !errors.Is(err, app.ErrPersistence) {
		t.Fatalf("Load() error = %v, want persistence error", err)
	}
	for _, k := range []string{"o", "z", "esc", "q", "q"} {
		d.HandleKey(ctx, keyseq.Press(k))
	}
	if d.Running() {
		t.Fatal("expected second quit to exit")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(corrupt) {
		t.Fatalf("expected store file untouched, got %q", got)
	}
}
