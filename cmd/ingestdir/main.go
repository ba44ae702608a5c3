package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/bus"
	"photo-gallery/internal/database"
	"photo-gallery/internal/ingest"
	"photo-gallery/internal/mediatypes"
	"photo-gallery/internal/progress"
	"photo-gallery/internal/queue"
	"photo-gallery/internal/rendition"
	"photo-gallery/internal/workers"
)

const defaultDataDir = "/data"

type options struct {
	dir       string
	dataDir   string
	album     string
	create    bool
	batch     int
	recursive bool
	wait      bool
	natsURL   string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:          "ingestdir <directory>",
		Short:        "Import every image in a directory into an album",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dir = args[0]
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	cmd.PersistentFlags().StringVar(&opts.natsURL, "nats-url", os.Getenv("NATS_URL"), "NATS server for progress events")
	cmd.AddCommand(newWatchCmd(&opts.natsURL))

	flags := cmd.Flags()
	flags.StringVar(&opts.album, "album", "", "album name or slug")
	flags.BoolVar(&opts.create, "create", false, "create the album if it does not exist")
	flags.StringVar(&opts.dataDir, "data-dir", dataDir, "data directory shared with the server")
	flags.IntVar(&opts.batch, "batch", 50, "files per batch")
	flags.BoolVar(&opts.recursive, "recursive", false, "descend into subdirectories")
	flags.BoolVar(&opts.wait, "wait", false, "render all profiles before exiting")
	_ = cmd.MarkFlagRequired("album")

	return cmd
}

func run(ctx context.Context, opts options, w io.Writer) error {
	out := &syncWriter{w: w}
	if opts.batch <= 0 {
		return fmt.Errorf("--batch must be positive")
	}

	files, err := collectImages(opts.dir, opts.recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No images found in %s\n", opts.dir)
		return nil
	}

	db, err := database.New(ctx, filepath.Join(opts.dataDir, "database", "gallery.db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	blobs, err := blobstore.NewLocalStore(filepath.Join(opts.dataDir, "blobs"))
	if err != nil {
		return err
	}
	renditions, err := rendition.NewGenerator(blobs, rendition.Options{
		CacheDir:    filepath.Join(opts.dataDir, "renditions"),
		Concurrency: workers.ForRendition(0),
	})
	if err != nil {
		return err
	}

	album, err := findAlbum(ctx, db, opts.album, opts.create)
	if err != nil {
		return err
	}

	tasks := queue.New(db, queue.Options{Workers: workers.ForQueue(0)})
	hub := progress.NewHub()
	processor := ingest.NewProcessor(blobs, db, tasks, renditions, hub, ingest.Options{})

	if opts.natsURL != "" {
		client, err := bus.Connect(opts.natsURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer client.Close()
		hub.AddSink(bus.NewRelay(client))
	}

	sub := hub.Subscribe(album.ID, 2*len(files)+1)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printProgress(out, sub, len(files))
	}()

	fmt.Fprintf(out, "Ingesting %d image(s) into %q\n", len(files), album.Name)

	var created, failed int
	for start := 0; start < len(files); start += opts.batch {
		if ctx.Err() != nil {
			break
		}
		end := min(start+opts.batch, len(files))

		items, readFailures := readItems(files[start:end])
		failed += readFailures
		if len(items) == 0 {
			continue
		}
		result := processor.Ingest(ctx, album.ID, items)
		created += len(result.Created)
		failed += len(result.Failed)
		for _, f := range result.Failed {
			fmt.Fprintf(out, "  failed %s: %s %v\n", f.Filename, f.Kind, f.Reasons)
		}
	}
	sub.Close()
	<-printed

	fmt.Fprintf(out, "Created %d photo(s), %d failed\n", created, failed)

	if opts.wait && created > 0 {
		fmt.Fprintln(out, "Rendering...")
		if err := tasks.Start(ctx); err != nil {
			return err
		}
		drainErr := tasks.Drain(ctx)
		tasks.Stop()
		if drainErr != nil {
			return drainErr
		}
		counts, err := db.TaskCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Renditions complete, %d task(s) failed\n", counts[string(database.TaskFailed)])
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func findAlbum(ctx context.Context, db *database.Database, ref string, create bool) (*database.Album, error) {
	album, err := db.GetAlbumBySlug(ctx, database.Slugify(ref))
	if err == nil {
		return album, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if !create {
		return nil, fmt.Errorf("album %q not found (use --create)", ref)
	}
	return db.CreateAlbum(ctx, ref)
}

// collectImages returns image paths under dir in lexical order.
func collectImages(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && mediatypes.IsImageFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func readItems(paths []string) ([]ingest.UploadItem, int) {
	items := make([]ingest.UploadItem, 0, len(paths))
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skipped %s: %v\n", path, err)
			failed++
			continue
		}
		items = append(items, ingest.UploadItem{
			Filename:    filepath.Base(path),
			ContentType: mediatypes.ContentTypeForFilename(path),
			Data:        data,
		})
	}
	return items, failed
}

// syncWriter serialises progress lines and failure reports.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// printProgress redraws a single status line on a terminal and prints one
// line per photo otherwise.
func printProgress(out *syncWriter, sub *progress.Subscription, total int) {
	tty := false
	if f, ok := out.w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}

	done := 0
	for ev := range sub.Events() {
		if ev.Type != progress.EventPhotoReady || ev.Photo == nil {
			continue
		}
		done++
		if tty {
			fmt.Fprintf(out, "\r\033[K[%d/%d] %s", done, total, ev.Photo.Filename)
		} else {
			fmt.Fprintf(out, "[%d/%d] %s\n", done, total, ev.Photo.Filename)
		}
	}
	if tty && done > 0 {
		fmt.Fprintln(out)
	}
}

func newWatchCmd(natsURL *string) *cobra.Command {
	var albumID int64
	var once bool

	cmd := &cobra.Command{
		Use:          "watch",
		Short:        "Print progress events relayed over NATS by the server or other imports",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if *natsURL == "" {
				return fmt.Errorf("--nats-url or NATS_URL is required")
			}
			client, err := bus.Connect(*natsURL)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer client.Close()

			subject := bus.AllProgress
			if albumID > 0 {
				subject = bus.ProgressSubject(albumID)
			}
			return follow(cmd.Context(), bus.NewWatcher(client), subject, once, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64Var(&albumID, "album-id", 0, "only this album (default: every album)")
	cmd.Flags().BoolVar(&once, "once", false, "exit after the first batch_complete")
	return cmd
}

type progressWatcher interface {
	Watch(subject string, fn func(progress.Event)) (*nats.Subscription, error)
}

// follow prints events from subject until ctx is done, or after the first
// batch_complete when once is set.
func follow(ctx context.Context, w progressWatcher, subject string, once bool, out io.Writer) error {
	events := make(chan progress.Event, progress.DefaultBuffer)
	sub, err := w.Watch(subject, func(ev progress.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	if sub != nil {
		defer sub.Unsubscribe()
	}

	fmt.Fprintf(out, "Watching %s\n", subject)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch {
			case ev.Type == progress.EventPhotoReady && ev.Photo != nil:
				fmt.Fprintf(out, "album %d: photo %d ready (%s)\n", ev.AlbumID, ev.Photo.ID, ev.Photo.Filename)
			case ev.Type == progress.EventBatchComplete && ev.Batch != nil:
				fmt.Fprintf(out, "album %d: batch complete, %d created, %d failed\n",
					ev.AlbumID, ev.Batch.CreatedCount, ev.Batch.FailedCount)
				if once {
					return nil
				}
			}
		}
	}
}
