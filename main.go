package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/bus"
	"photo-gallery/internal/database"
	"photo-gallery/internal/filesystem"
	"photo-gallery/internal/handlers"
	"photo-gallery/internal/ingest"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/memory"
	"photo-gallery/internal/metrics"
	"photo-gallery/internal/middleware"
	"photo-gallery/internal/progress"
	"photo-gallery/internal/queue"
	"photo-gallery/internal/rendition"
	"photo-gallery/internal/startup"
	"photo-gallery/internal/workers"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// decodeBudget is the approximate heap cost of decoding one image at the
// pixel ceiling (RGBA).
const decodeBudget = int64(rendition.DefaultMaxImagePixels) * 4

func main() {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to load .env: %v", err)
	}

	startup.LogMemoryConfig(memory.ConfigureFromEnv())

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"blobs":      config.BlobDir,
		"renditions": config.RenditionDir,
		"database":   config.DatabaseDir,
	}))

	bi := startup.GetBuildInfo()
	metrics.SetAppInfo(bi.Version, bi.Commit, bi.GoVersion)
	metrics.InitializeMetrics(config.BlobBackend)

	ctx := context.Background()

	// Database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Blob store
	blobs, location, err := openBlobStore(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to initialize blob store: %v", err)
	}
	startup.LogBlobStoreInit(config.BlobBackend, location)

	// Renditions
	vipsAvailable := false
	if config.VipsEnabled {
		if err := rendition.InitVips(); err != nil {
			logging.Warn("libvips unavailable: %v", err)
		} else {
			vipsAvailable = true
			defer rendition.ShutdownVips()
		}
	}
	concurrency := memory.DecodeSlots(decodeBudget, workers.ForRendition(0))
	renditions, err := rendition.NewGenerator(blobs, rendition.Options{
		CacheDir:    config.RenditionDir,
		Concurrency: concurrency,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize rendition generator: %v", err)
	}
	startup.LogRenditionInit(config.VipsEnabled, vipsAvailable, concurrency)

	// Progress hub and optional NATS relay
	hub := progress.NewHub()
	var natsClient *bus.Client
	if config.NATSURL != "" {
		natsClient, err = bus.Connect(config.NATSURL)
		if err == nil {
			hub.AddSink(bus.NewRelay(natsClient))
		}
		startup.LogRelayInit(config.NATSURL, err)
	}

	// Task queue
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	queueWorkers := config.QueueWorkers
	if queueWorkers <= 0 {
		queueWorkers = workers.ForQueue(0)
	}
	tasks := queue.New(db, queue.Options{
		Workers:      queueWorkers,
		PollInterval: config.QueuePollInterval,
		Retention:    config.QueueRetention,
		Monitor:      monitor,
	})

	processor := ingest.NewProcessor(blobs, db, tasks, renditions, hub, ingest.Options{
		AsyncThreshold: config.AsyncThreshold,
	})

	// Tasks left running by the previous process are redelivered on Start.
	var interrupted int64
	if counts, err := db.TaskCounts(ctx); err == nil {
		interrupted = int64(counts[string(database.TaskRunning)])
	}
	if err := tasks.Start(ctx); err != nil {
		startup.LogFatal("Failed to start task queue: %v", err)
	}
	startup.LogQueueInit(queueWorkers, interrupted)

	// HTTP
	h := handlers.New(handlers.Deps{
		DB:         db,
		Blobs:      blobs,
		Renditions: renditions,
		Processor:  processor,
		Tasks:      tasks,
		Hub:        hub,
	}, config)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	// mux middleware runs after route matching so the metrics label can use
	// the route template.
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	handler := middleware.RequestID(middleware.Logger(loggingConfig)(router))

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       0, // uploads may be large
		WriteTimeout:      0, // the progress feed is long-lived
		IdleTimeout:       60 * time.Second,
	}

	// Progress streams end when the server shuts down.
	baseCtx, cancelBase := context.WithCancel(ctx)
	srv.BaseContext = func(net.Listener) context.Context { return baseCtx }
	srv.RegisterOnShutdown(cancelBase)

	var metricsServer *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metricsServer = startMetricsServer(config.MetricsPort)
		collector = metrics.NewCollector(db, 30*time.Second)
		collector.Start()
	}

	h.SetReady(true)

	done := make(chan struct{})
	go handleShutdown(srv, done, shutdownDeps{
		handlers:      h,
		metricsServer: metricsServer,
		collector:     collector,
		tasks:         tasks,
		monitor:       monitor,
		nats:          natsClient,
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func openBlobStore(ctx context.Context, config *startup.Config) (blobstore.Store, string, error) {
	switch config.BlobBackend {
	case startup.BackendS3:
		store, err := blobstore.NewS3Store(ctx, config.S3)
		if err != nil {
			return nil, "", err
		}
		return blobstore.Instrument(store), "s3://" + config.S3.Bucket, nil
	default:
		store, err := blobstore.NewLocalStore(config.BlobDir)
		if err != nil {
			return nil, "", err
		}
		return blobstore.Instrument(store), config.BlobDir, nil
	}
}

func startMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

type shutdownDeps struct {
	handlers      *handlers.Handlers
	metricsServer *http.Server
	collector     *metrics.Collector
	tasks         *queue.Queue
	monitor       *memory.Monitor
	nats          *bus.Client
}

func handleShutdown(srv *http.Server, done chan<- struct{}, deps shutdownDeps) {
	defer close(done)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	deps.handlers.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	// Running tasks finish; anything still pending stays persisted for the
	// next start.
	startup.LogShutdownStep("Stopping task queue")
	deps.tasks.Stop()
	deps.monitor.Stop()
	startup.LogShutdownStepComplete("Task queue stopped")

	if deps.collector != nil {
		deps.collector.Stop()
	}
	if deps.metricsServer != nil {
		if err := deps.metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
	if deps.nats != nil {
		deps.nats.Close()
	}

	startup.LogShutdownComplete()
}
