package rendition

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"photo-gallery/internal/logging"
)

var (
	vipsInitMutex sync.Mutex
	vipsAvailable bool
)

// vipsLogLevel maps the application level to the most verbose libvips
// level that should reach our log.
func vipsLogLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	default:
		return vips.LogLevelCritical
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips with its log bridged to the application log.
// Call once at startup; later calls are no-ops.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsAvailable {
		return nil
	}

	vips.LoggingSettings(vipsLogHandler, vipsLogLevel(logging.GetLevel()))

	// Queue workers already parallelise across photos.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips. govips cannot be restarted afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsAvailable {
		vips.Shutdown()
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// renderWithVips shrinks on load, which for JPEG avoids ever holding the
// full-resolution bitmap.
func renderWithVips(data []byte, p Profile) ([]byte, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips autorotate: %w", err)
	}

	if ref.Width() > p.Width || ref.Height() > p.Height {
		if err := ref.Thumbnail(p.Width, p.Height, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips thumbnail: %w", err)
		}
	}

	params := vips.NewJpegExportParams()
	params.Quality = p.Quality
	params.StripMetadata = true
	out, _, err := ref.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("vips export: %w", err)
	}
	return out, nil
}
