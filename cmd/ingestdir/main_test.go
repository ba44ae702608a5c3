package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nats-io/nats.go"

	"photo-gallery/internal/database"
	"photo-gallery/internal/progress"
)

// =============================================================================
// Helpers
// =============================================================================

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func openDB(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(dataDir, "database", "gallery.db"))
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// =============================================================================
// Unit Tests
// =============================================================================

func TestCollectImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"))
	writePNG(t, filepath.Join(dir, "a.png"))
	writePNG(t, filepath.Join(dir, "nested", "c.png"))
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644)

	tests := []struct {
		name      string
		recursive bool
		want      []string
	}{
		{"top level only", false, []string{"a.png", "b.png"}},
		{"recursive", true, []string{"a.png", "b.png", filepath.Join("nested", "c.png")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := collectImages(dir, tt.recursive)
			if err != nil {
				t.Fatalf("collectImages() error = %v", err)
			}
			if len(files) != len(tt.want) {
				t.Fatalf("collectImages() = %v", files)
			}
			for i, f := range files {
				if rel, _ := filepath.Rel(dir, f); rel != tt.want[i] {
					t.Errorf("files[%d] = %s, want %s", i, rel, tt.want[i])
				}
			}
		})
	}
}

func TestCollectImagesMissingDir(t *testing.T) {
	if _, err := collectImages(filepath.Join(t.TempDir(), "missing"), false); err == nil {
		t.Error("expected error for missing directory")
	}
}

// =============================================================================
// Integration Tests
// =============================================================================

func TestRunIngestsDirectory(t *testing.T) {
	src := t.TempDir()
	dataDir := t.TempDir()
	writePNG(t, filepath.Join(src, "one.png"))
	writePNG(t, filepath.Join(src, "two.png"))
	writePNG(t, filepath.Join(src, "three.png"))
	os.WriteFile(filepath.Join(src, "empty.png"), nil, 0o644)

	var out bytes.Buffer
	err := run(context.Background(), options{
		dir: src, dataDir: dataDir, album: "Road Trip", create: true, batch: 2,
	}, &out)
	if err != nil {
		t.Fatalf("run() error = %v\n%s", err, out.String())
	}

	if !strings.Contains(out.String(), "Created 3 photo(s), 1 failed") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "failed empty.png: no_content") {
		t.Errorf("missing failure line:\n%s", out.String())
	}

	db := openDB(t, dataDir)
	ctx := context.Background()
	album, err := db.GetAlbumBySlug(ctx, "road-trip")
	if err != nil {
		t.Fatalf("album not created: %v", err)
	}
	photos, _ := db.ListPhotos(ctx, album.ID)
	if len(photos) != 3 {
		t.Errorf("album has %d photos, want 3", len(photos))
	}

	// Render tasks are left for the server.
	counts, _ := db.TaskCounts(ctx)
	if counts[string(database.TaskPending)] != 3 {
		t.Errorf("pending tasks = %d, want 3", counts[string(database.TaskPending)])
	}
}

func TestRunWaitRendersPhotos(t *testing.T) {
	src := t.TempDir()
	dataDir := t.TempDir()
	writePNG(t, filepath.Join(src, "one.png"))
	writePNG(t, filepath.Join(src, "two.png"))

	var out bytes.Buffer
	err := run(context.Background(), options{
		dir: src, dataDir: dataDir, album: "Rendered", create: true, batch: 50, wait: true,
	}, &out)
	if err != nil {
		t.Fatalf("run() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Renditions complete, 0 task(s) failed") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	counts, _ := openDB(t, dataDir).TaskCounts(context.Background())
	if counts[string(database.TaskDone)] != 2 || counts[string(database.TaskPending)] != 0 {
		t.Errorf("task counts = %v", counts)
	}
}

func TestRunRequiresExistingAlbum(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "one.png"))

	var out bytes.Buffer
	err := run(context.Background(), options{dir: src, dataDir: t.TempDir(), album: "Nowhere", batch: 10}, &out)
	if err == nil || !strings.Contains(err.Error(), "use --create") {
		t.Errorf("run() error = %v, want album not found", err)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), options{dir: t.TempDir(), dataDir: t.TempDir(), album: "Any", batch: 10}, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "No images found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRootCmdRequiresAlbum(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{t.TempDir()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when --album is missing")
	}
}

// =============================================================================
// Watch
// =============================================================================

type replayWatcher struct {
	subject string
	events  []progress.Event
}

func (w *replayWatcher) Watch(subject string, fn func(progress.Event)) (*nats.Subscription, error) {
	w.subject = subject
	for _, ev := range w.events {
		fn(ev)
	}
	return nil, nil
}

func TestFollowPrintsUntilBatchComplete(t *testing.T) {
	done := progress.BatchComplete(1, 1)
	done.AlbumID = 4
	w := &replayWatcher{events: []progress.Event{
		progress.PhotoReady(database.Photo{ID: 11, AlbumID: 4, Filename: "dune.jpg"}),
		done,
		progress.PhotoReady(database.Photo{ID: 12, AlbumID: 4, Filename: "late.jpg"}),
	}}

	var out bytes.Buffer
	if err := follow(context.Background(), w, "gallery.albums.4.progress", true, &out); err != nil {
		t.Fatalf("follow() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Watching gallery.albums.4.progress",
		"album 4: photo 11 ready (dune.jpg)",
		"album 4: batch complete, 1 created, 1 failed",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "late.jpg") {
		t.Errorf("--once should stop at batch_complete:\n%s", got)
	}
	if w.subject != "gallery.albums.4.progress" {
		t.Errorf("subscribed to %q", w.subject)
	}
}

func TestFollowStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := follow(ctx, &replayWatcher{}, "gallery.albums.*.progress", false, &out); err != nil {
		t.Errorf("follow() error = %v", err)
	}
}

func TestWatchRequiresNATS(t *testing.T) {
	t.Setenv("NATS_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"watch"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "NATS_URL") {
		t.Errorf("Execute() error = %v", err)
	}
}
