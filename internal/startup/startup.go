package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/memory"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Blob backends accepted in BLOB_BACKEND.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config holds all application configuration
type Config struct {
	DataDir         string
	DatabaseDir     string
	BlobDir         string
	RenditionDir    string
	Port            string
	MetricsPort     string
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	BlobBackend string
	S3          blobstore.S3Config

	AsyncThreshold    int
	QueueWorkers      int
	QueuePollInterval time.Duration
	QueueRetention    time.Duration
	MaxUploadBytes    int64

	VipsEnabled bool
	NATSURL     string

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	dataDir := getEnv("DATA_DIR", "/data")
	databaseDir := getEnv("DATABASE_DIR", filepath.Join(dataDir, "database"))
	blobDir := getEnv("BLOB_DIR", filepath.Join(dataDir, "blobs"))
	renditionDir := getEnv("RENDITION_DIR", filepath.Join(dataDir, "renditions"))
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	blobBackend := strings.ToLower(getEnv("BLOB_BACKEND", BackendLocal))
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	vipsEnabled := getEnvBool("VIPS_ENABLED", false)
	natsURL := getEnv("NATS_URL", "")
	asyncThreshold := getEnvInt("ASYNC_THRESHOLD", 20)
	queueWorkers := getEnvInt("QUEUE_WORKERS", 0)
	pollInterval := getEnvDuration("QUEUE_POLL_INTERVAL", 2*time.Second)
	retention := getEnvDuration("QUEUE_RETENTION", 24*time.Hour)
	maxUploadMB := getEnvInt("MAX_UPLOAD_MB", 1024)

	logging.Info("  DATA_DIR:            %s", dataDir)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  BLOB_DIR:            %s", blobDir)
	logging.Info("  RENDITION_DIR:       %s", renditionDir)
	logging.Info("  BLOB_BACKEND:        %s", blobBackend)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  ASYNC_THRESHOLD:     %d", asyncThreshold)
	if queueWorkers > 0 {
		logging.Info("  QUEUE_WORKERS:       %d", queueWorkers)
	} else {
		logging.Info("  QUEUE_WORKERS:       auto")
	}
	logging.Info("  QUEUE_POLL_INTERVAL: %s", pollInterval)
	logging.Info("  QUEUE_RETENTION:     %s", retention)
	logging.Info("  MAX_UPLOAD_MB:       %d", maxUploadMB)
	logging.Info("  VIPS_ENABLED:        %v", vipsEnabled)
	if natsURL != "" {
		logging.Info("  NATS_URL:            %s", natsURL)
	} else {
		logging.Info("  NATS_URL:            (not set, relay disabled)")
	}
	logging.Info("  LOG_STATIC_FILES:    %v", logStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if asyncThreshold < 1 {
		logging.Warn("  Invalid ASYNC_THRESHOLD, using default: 20")
		asyncThreshold = 20
	}
	if maxUploadMB < 1 {
		logging.Warn("  Invalid MAX_UPLOAD_MB, using default: 1024")
		maxUploadMB = 1024
	}

	config := &Config{
		DataDir:           dataDir,
		DatabaseDir:       databaseDir,
		BlobDir:           blobDir,
		RenditionDir:      renditionDir,
		Port:              port,
		MetricsPort:       metricsPort,
		LogStaticFiles:    logStaticFiles,
		LogHealthChecks:   logHealthChecks,
		MetricsEnabled:    metricsEnabled,
		BlobBackend:       blobBackend,
		AsyncThreshold:    asyncThreshold,
		QueueWorkers:      queueWorkers,
		QueuePollInterval: pollInterval,
		QueueRetention:    retention,
		MaxUploadBytes:    int64(maxUploadMB) << 20,
		VipsEnabled:       vipsEnabled,
		NATSURL:           natsURL,
	}

	switch blobBackend {
	case BackendLocal:
	case BackendS3:
		config.S3 = blobstore.S3Config{
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		}
		logging.Info("  S3_BUCKET:           %s", config.S3.Bucket)
		logging.Info("  S3_REGION:           %s", config.S3.Region)
		if config.S3.Endpoint != "" {
			logging.Info("  S3_ENDPOINT:         %s", config.S3.Endpoint)
		}
		if config.S3.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q (want %q or %q)", blobBackend, BackendLocal, BackendS3)
	}

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, dir := range []struct {
		name string
		path *string
	}{
		{"database", &config.DatabaseDir},
		{"blob", &config.BlobDir},
		{"rendition", &config.RenditionDir},
	} {
		abs, err := filepath.Abs(*dir.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", dir.name, err)
		}
		*dir.path = abs
		logging.Info("  %s directory (absolute): %s", capitalize(dir.name), abs)
	}
	config.DatabasePath = filepath.Join(config.DatabaseDir, "gallery.db")

	required := []struct{ name, path string }{
		{"database", config.DatabaseDir},
		{"rendition", config.RenditionDir},
	}
	if blobBackend == BackendLocal {
		required = append(required, struct{ name, path string }{"blob", config.BlobDir})
	}
	for _, dir := range required {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		logging.Debug("  Testing %s directory write access...", dir.name)
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", capitalize(dir.name))
	}

	// Summary
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:      ENABLED (required)")
	logging.Info("    Blob backend:  %s", strings.ToUpper(blobBackend))
	logging.Info("    libvips:       %s", enabledString(config.VipsEnabled))
	logging.Info("    NATS relay:    %s", enabledString(config.NATSURL != ""))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogMemoryConfig logs how GOMEMLIMIT was configured
func LogMemoryConfig(mc memory.ConfigResult) {
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !mc.Configured {
		logging.Info("  GOMEMLIMIT:      not configured (set MEMORY_LIMIT or GOMEMLIMIT)")
		logging.Info("")
		return
	}

	switch mc.Source {
	case "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT:      %s (from environment)", memory.FormatBytes(mc.GoMemLimit))
	case "MEMORY_LIMIT":
		logging.Info("  Container limit: %s", memory.FormatBytes(mc.ContainerLimit))
		logging.Info("  GOMEMLIMIT:      %s (%.0f%% of container limit)", memory.FormatBytes(mc.GoMemLimit), mc.Ratio*100)
	}
	logging.Info("")
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogBlobStoreInit logs which blob backend is in use
func LogBlobStoreInit(backend, location string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BLOB STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Backend:  %s", backend)
	logging.Info("  Location: %s", location)
	logging.Info("  [OK] Blob store ready")
}

// LogRenditionInit logs rendition generator setup
func LogRenditionInit(vipsRequested, vipsAvailable bool, concurrency int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("RENDITION INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	switch {
	case vipsAvailable:
		logging.Info("  [OK] libvips is available, using it for decoding")
	case vipsRequested:
		logging.Warn("  libvips requested but failed to start")
		logging.Warn("  Falling back to pure Go decoding")
	default:
		logging.Info("  Using pure Go decoding (set VIPS_ENABLED=true for libvips)")
	}
	logging.Info("  Decode concurrency: %d", concurrency)
}

// LogQueueInit logs background queue setup
func LogQueueInit(workers int, redelivered int64) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TASK QUEUE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Workers: %d", workers)
	if redelivered > 0 {
		logging.Warn("  Redelivered %d task(s) interrupted by the previous shutdown", redelivered)
	}
	logging.Info("  [OK] Queue started")
}

// LogRelayInit logs the NATS progress relay state
func LogRelayInit(url string, err error) {
	if url == "" {
		return
	}
	if err != nil {
		logging.Warn("  NATS relay disabled: %v", err)
		return
	}
	logging.Info("  [OK] Progress relay connected to %s", url)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __          __           ______      ____
   / __ \/ /_  ____  / /_____     / ____/___ _/ / /__  _______  __
  / /_/ / __ \/ __ \/ __/ __ \   / / __/ __ '/ / / _ \/ ___/ / / /
 / ____/ / / / /_/ / /_/ /_/ /  / /_/ / /_/ / / /  __/ /  / /_/ /
/_/   /_/ /_/\____/\__/\____/   \____/\__,_/_/_/\___/_/   \__, /
                                                         /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
