package rendition

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/metrics"
)

var log = logging.For("rendition")

// Options configures a Generator.
type Options struct {
	// CacheDir is where renditions are written (RENDITION_DIR).
	CacheDir string

	// MaxImagePixels rejects larger images before decoding. 0 means
	// DefaultMaxImagePixels.
	MaxImagePixels int

	// Concurrency bounds simultaneous decodes across all callers.
	Concurrency int
}

// Generator renders the fixed profile set for photos.
type Generator struct {
	blobs     blobstore.Store
	cacheDir  string
	maxPixels int
	slots     chan struct{}
}

// Report summarises one Generate call.
type Report struct {
	PhotoID   int64
	Generated []string
	Failures  []*ProfileError
}

// OK reports whether every profile was generated.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Err joins the profile failures, or returns nil.
func (r Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// NewGenerator creates the cache directory tree and returns a Generator.
func NewGenerator(blobs blobstore.Store, opts Options) (*Generator, error) {
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("rendition cache directory is required")
	}
	if opts.MaxImagePixels <= 0 {
		opts.MaxImagePixels = DefaultMaxImagePixels
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	for _, dir := range append(profileNames(), "tmp") {
		if err := os.MkdirAll(filepath.Join(opts.CacheDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create rendition directory: %w", err)
		}
	}

	return &Generator{
		blobs:     blobs,
		cacheDir:  opts.CacheDir,
		maxPixels: opts.MaxImagePixels,
		slots:     make(chan struct{}, opts.Concurrency),
	}, nil
}

func profileNames() []string {
	names := make([]string, len(Profiles))
	for i, p := range Profiles {
		names[i] = p.Name
	}
	return names
}

// Path returns where the rendition of blobKey for profile is cached.
func (g *Generator) Path(blobKey, profile string) string {
	sum := sha1.Sum([]byte(blobKey))
	return filepath.Join(g.cacheDir, profile, hex.EncodeToString(sum[:])+".jpg")
}

// Lookup returns the cached rendition path if it has been generated.
func (g *Generator) Lookup(blobKey, profile string) (string, bool) {
	if _, ok := ProfileByName(profile); !ok {
		return "", false
	}
	path := g.Path(blobKey, profile)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// source decodes the original at most once per Generate call.
type source struct {
	data    []byte
	img     image.Image
	err     error
	decoded bool
}

func (s *source) image() (image.Image, error) {
	if !s.decoded {
		s.img, s.err = decodeImage(s.data)
		s.decoded = true
	}
	return s.img, s.err
}

// Generate renders every profile for photo, in order. It never returns
// early on a profile failure and never modifies the photo record.
// Re-running it overwrites existing renditions.
func (g *Generator) Generate(ctx context.Context, photo *database.Photo) Report {
	report := Report{PhotoID: photo.ID}

	data, err := g.blobs.Retrieve(ctx, photo.BlobKey)
	if err != nil {
		g.failAll(&report, photo, fmt.Errorf("retrieve original: %w", err))
		return report
	}

	select {
	case g.slots <- struct{}{}:
		defer func() { <-g.slots }()
	case <-ctx.Done():
		g.failAll(&report, photo, ctx.Err())
		return report
	}

	useVips := IsVipsAvailable()
	if _, _, err := checkDimensions(data, g.maxPixels); err != nil {
		// Formats without a Go decoder (HEIC) can still go through libvips.
		if !useVips || !errors.Is(err, image.ErrFormat) {
			g.failAll(&report, photo, err)
			return report
		}
	}

	src := &source{data: data}
	for _, p := range Profiles {
		start := time.Now()
		err := g.renderProfile(src, p, photo.BlobKey, useVips)
		metrics.RenditionGenerationDuration.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			g.fail(&report, photo, p.Name, err)
			continue
		}
		metrics.RenditionGenerationsTotal.WithLabelValues(p.Name, "success").Inc()
		report.Generated = append(report.Generated, p.Name)
	}

	log.Debug("photo %d: generated %v, %d failed", photo.ID, report.Generated, len(report.Failures))
	return report
}

func (g *Generator) renderProfile(src *source, p Profile, blobKey string, useVips bool) error {
	if useVips {
		out, err := renderWithVips(src.data, p)
		if err == nil {
			return g.writeAtomic(g.Path(blobKey, p.Name), out)
		}
		log.Debug("libvips failed for %s (%s), falling back to imaging: %v", blobKey, p.Name, err)
	}

	img, err := src.image()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := resizeAndEncode(&buf, img, p); err != nil {
		return err
	}
	return g.writeAtomic(g.Path(blobKey, p.Name), buf.Bytes())
}

func (g *Generator) writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Join(g.cacheDir, "tmp"), "rendition-*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (g *Generator) failAll(report *Report, photo *database.Photo, err error) {
	for _, p := range Profiles {
		g.fail(report, photo, p.Name, err)
	}
}

func (g *Generator) fail(report *Report, photo *database.Photo, profile string, err error) {
	metrics.RenditionGenerationsTotal.WithLabelValues(profile, "error").Inc()
	log.Warn("photo %d (%s): %s rendition failed: %v", photo.ID, photo.Filename, profile, err)
	report.Failures = append(report.Failures, &ProfileError{Profile: profile, Err: err})
}
