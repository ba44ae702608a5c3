package rendition

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/database"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	gen   *Generator
	blobs *blobstore.LocalStore
	dir   string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	root := t.TempDir()
	blobs, err := blobstore.NewLocalStore(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}
	opts.CacheDir = filepath.Join(root, "renditions")
	gen, err := NewGenerator(blobs, opts)
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}
	return &fixture{gen: gen, blobs: blobs, dir: opts.CacheDir}
}

func (f *fixture) storePhoto(t *testing.T, data []byte, contentType string) *database.Photo {
	t.Helper()
	blob, err := f.blobs.Store(context.Background(), data, "photo", contentType)
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	return &database.Photo{ID: 7, BlobKey: blob.Key, Filename: "photo", ContentType: contentType}
}

func renditionSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open rendition: %v", err)
	}
	defer f.Close()

	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("rendition %s is not a JPEG: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func TestProfilesOrderAndSizes(t *testing.T) {
	want := []Profile{
		{Name: "thumbnail", Width: 300, Height: 300, Quality: 80},
		{Name: "medium", Width: 1200, Height: 800, Quality: 85},
		{Name: "large", Width: 1920, Height: 1080, Quality: 90},
	}
	if len(Profiles) != len(want) {
		t.Fatalf("len(Profiles) = %d, want %d", len(Profiles), len(want))
	}
	for i := range want {
		if Profiles[i] != want[i] {
			t.Errorf("Profiles[%d] = %+v, want %+v", i, Profiles[i], want[i])
		}
	}

	if _, ok := ProfileByName("medium"); !ok {
		t.Error("ProfileByName(medium) not found")
	}
	if _, ok := ProfileByName(Original); ok {
		t.Error("original is not a generated profile")
	}
}

func TestGenerateAllProfiles(t *testing.T) {
	f := newFixture(t, Options{})
	photo := f.storePhoto(t, encodePNG(t, 2400, 1200), "image/png")

	report := f.gen.Generate(context.Background(), photo)
	if !report.OK() {
		t.Fatalf("Generate() failures: %v", report.Err())
	}
	if len(report.Generated) != 3 {
		t.Fatalf("Generated = %v, want 3 profiles", report.Generated)
	}

	tests := []struct {
		profile string
		w, h    int
	}{
		{"thumbnail", 300, 150},
		{"medium", 1200, 600},
		{"large", 1920, 960},
	}
	for _, tt := range tests {
		path, ok := f.gen.Lookup(photo.BlobKey, tt.profile)
		if !ok {
			t.Errorf("Lookup(%s) found nothing", tt.profile)
			continue
		}
		if w, h := renditionSize(t, path); w != tt.w || h != tt.h {
			t.Errorf("%s rendition = %dx%d, want %dx%d", tt.profile, w, h, tt.w, tt.h)
		}
	}
}

func TestGenerateNeverUpscales(t *testing.T) {
	f := newFixture(t, Options{})
	photo := f.storePhoto(t, encodePNG(t, 120, 80), "image/png")

	report := f.gen.Generate(context.Background(), photo)
	if !report.OK() {
		t.Fatalf("Generate() failures: %v", report.Err())
	}

	for _, p := range Profiles {
		path, _ := f.gen.Lookup(photo.BlobKey, p.Name)
		if w, h := renditionSize(t, path); w != 120 || h != 80 {
			t.Errorf("%s rendition = %dx%d, want original 120x80", p.Name, w, h)
		}
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	photo := f.storePhoto(t, encodePNG(t, 640, 480), "image/png")
	ctx := context.Background()

	f.gen.Generate(ctx, photo)
	first, err := os.ReadFile(f.gen.Path(photo.BlobKey, "thumbnail"))
	if err != nil {
		t.Fatal(err)
	}

	report := f.gen.Generate(ctx, photo)
	if !report.OK() {
		t.Fatalf("second Generate() failures: %v", report.Err())
	}
	second, err := os.ReadFile(f.gen.Path(photo.BlobKey, "thumbnail"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("re-running Generate produced a different thumbnail")
	}

	leftovers, _ := os.ReadDir(filepath.Join(f.dir, "tmp"))
	if len(leftovers) != 0 {
		t.Errorf("tmp/ has %d leftover files", len(leftovers))
	}
}

func TestGenerateCorruptBlob(t *testing.T) {
	f := newFixture(t, Options{})
	photo := f.storePhoto(t, []byte("definitely not an image"), "image/jpeg")

	report := f.gen.Generate(context.Background(), photo)

	if len(report.Generated) != 0 {
		t.Errorf("Generated = %v, want none", report.Generated)
	}
	if len(report.Failures) != len(Profiles) {
		t.Fatalf("Failures = %d, want %d", len(report.Failures), len(Profiles))
	}
	for i, failure := range report.Failures {
		if failure.Profile != Profiles[i].Name {
			t.Errorf("failure %d profile = %q, want %q", i, failure.Profile, Profiles[i].Name)
		}
		if !errors.Is(failure, ErrRendition) {
			t.Errorf("failure %d does not match ErrRendition", i)
		}
	}
	for _, p := range Profiles {
		if _, ok := f.gen.Lookup(photo.BlobKey, p.Name); ok {
			t.Errorf("%s rendition exists for a corrupt blob", p.Name)
		}
	}

	// The original is untouched and still retrievable.
	if _, err := f.blobs.Retrieve(context.Background(), photo.BlobKey); err != nil {
		t.Errorf("original blob unavailable after failed rendition: %v", err)
	}
}

func TestGenerateRejectsOversizedImages(t *testing.T) {
	f := newFixture(t, Options{MaxImagePixels: 100 * 100})
	photo := f.storePhoto(t, encodePNG(t, 200, 200), "image/png")

	report := f.gen.Generate(context.Background(), photo)
	if report.OK() || len(report.Generated) != 0 {
		t.Errorf("Generate() = %+v, want every profile rejected", report)
	}
}

func TestGenerateMissingBlob(t *testing.T) {
	f := newFixture(t, Options{})
	photo := &database.Photo{ID: 1, BlobKey: blobstore.KeyFromDigest(blobstore.Digest([]byte("gone")))}

	report := f.gen.Generate(context.Background(), photo)
	if len(report.Failures) != len(Profiles) {
		t.Fatalf("Failures = %d, want %d", len(report.Failures), len(Profiles))
	}
	if !errors.Is(report.Err(), blobstore.ErrNotFound) {
		t.Errorf("Err() = %v, want to wrap blobstore.ErrNotFound", report.Err())
	}
}

func TestLookupUnknownProfile(t *testing.T) {
	f := newFixture(t, Options{})
	if _, ok := f.gen.Lookup("b2/aa/bb/x", "huge"); ok {
		t.Error("Lookup() with unknown profile should miss")
	}
}

func TestNewGeneratorRequiresCacheDir(t *testing.T) {
	if _, err := NewGenerator(nil, Options{}); err == nil {
		t.Error("expected error without cache dir")
	}
}
