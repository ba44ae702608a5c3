package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/memory"
	"photo-gallery/internal/metrics"
)

var log = logging.For("queue")

// ErrNotFound is returned for unknown task ids and unregistered kinds.
var ErrNotFound = errors.New("task not found")

// HandlerFunc executes one task. A returned error marks the task failed.
type HandlerFunc func(ctx context.Context, task *database.Task) error

// Handle identifies an enqueued task.
type Handle struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Store is the persistence the queue needs. *database.Database implements it.
type Store interface {
	InsertTask(ctx context.Context, t *database.Task) error
	ClaimTask(ctx context.Context) (*database.Task, bool, error)
	FinishTask(ctx context.Context, id string, status database.TaskStatus, lastError string) error
	RequeueRunning(ctx context.Context) (int64, error)
	GetTask(ctx context.Context, id string) (*database.Task, error)
	PruneTasks(ctx context.Context, cutoff time.Time) (int64, error)
	TaskCounts(ctx context.Context) (map[string]int, error)
	SetLastTaskPrune(ctx context.Context, t time.Time) error
}

// Options configures a Queue.
type Options struct {
	Workers      int
	PollInterval time.Duration
	// Retention is how long done tasks are kept. 0 disables pruning.
	Retention time.Duration
	Monitor   *memory.Monitor
}

// Queue is a persistent task queue with a worker pool.
type Queue struct {
	store    Store
	opts     Options
	handlers map[string]HandlerFunc
	notify   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// New creates a Queue. Register handlers before calling Start.
func New(store Store, opts Options) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Queue{
		store:    store,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
		notify:   make(chan struct{}, opts.Workers),
		stopCh:   make(chan struct{}),
	}
}

// Register sets the handler for kind. It panics if called after Start.
func (q *Queue) Register(kind string, fn HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		panic("queue: Register called after Start")
	}
	q.handlers[kind] = fn
}

// Enqueue persists a pending task whose payload is the JSON encoding of
// payload. The task is durable when Enqueue returns.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) (Handle, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	task := &database.Task{ID: uuid.NewString(), Kind: kind, Payload: raw}
	if err := q.store.InsertTask(ctx, task); err != nil {
		return Handle{}, err
	}
	metrics.QueueTasksEnqueued.WithLabelValues(kind).Inc()
	log.Debug("enqueued %s task %s (%d bytes)", kind, task.ID, len(raw))

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return Handle{ID: task.ID, Kind: kind}, nil
}

// Status returns the persisted state of a task.
func (q *Queue) Status(ctx context.Context, id string) (*database.Task, error) {
	task, err := q.store.GetTask(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return task, err
}

// Start requeues interrupted tasks and launches the workers.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return nil
	}

	n, err := q.store.RequeueRunning(ctx)
	if err != nil {
		return fmt.Errorf("failed to requeue interrupted tasks: %w", err)
	}
	if n > 0 {
		log.Info("requeued %d interrupted task(s)", n)
		metrics.QueueRedeliveredTotal.Add(float64(n))
	}

	q.started = true
	metrics.QueueWorkers.Set(float64(q.opts.Workers))
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	if q.opts.Retention > 0 {
		q.wg.Add(1)
		go q.pruneLoop()
	}

	log.Info("started %d worker(s), poll interval %v", q.opts.Workers, q.opts.PollInterval)
	return nil
}

// Stop stops claiming new tasks and waits for in-flight tasks to finish.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
	q.wg.Wait()
	metrics.QueueWorkers.Set(0)
	log.Info("stopped")
}

// Drain blocks until no task is pending or running, or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		counts, err := q.store.TaskCounts(ctx)
		if err != nil {
			return err
		}
		if counts[string(database.TaskPending)]+counts[string(database.TaskRunning)] == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Queue) stopping() bool {
	select {
	case <-q.stopCh:
		return true
	default:
		return false
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	// Stop releases a worker waiting out memory pressure.
	waitCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-q.stopCh:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	for {
		if q.stopping() {
			return
		}
		if !q.opts.Monitor.WaitIfPaused(waitCtx) {
			return
		}

		task, ok, err := q.store.ClaimTask(context.Background())
		if err != nil {
			log.Error("worker %d: %v", id, err)
		}
		if ok {
			q.run(task)
			continue
		}

		select {
		case <-q.stopCh:
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

func (q *Queue) run(task *database.Task) {
	start := time.Now()
	metrics.QueueTasksInFlight.Inc()
	defer metrics.QueueTasksInFlight.Dec()

	err := q.execute(task)

	status := database.TaskDone
	lastError := ""
	if err != nil {
		status = database.TaskFailed
		lastError = err.Error()
		log.Warn("%s task %s failed (attempt %d): %v", task.Kind, task.ID, task.Attempts, err)
	} else {
		log.Debug("%s task %s done in %v", task.Kind, task.ID, time.Since(start))
	}

	metrics.QueueTasksCompleted.WithLabelValues(task.Kind, string(status)).Inc()
	metrics.QueueTaskDuration.WithLabelValues(task.Kind).Observe(time.Since(start).Seconds())

	if finishErr := q.store.FinishTask(context.Background(), task.ID, status, lastError); finishErr != nil {
		log.Error("failed to record %s for task %s: %v", status, task.ID, finishErr)
	}
}

func (q *Queue) execute(task *database.Task) (err error) {
	handler, ok := q.handlers[task.Kind]
	if !ok {
		return fmt.Errorf("%w: no handler for kind %q", ErrNotFound, task.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("%s task %s panicked: %v\n%s", task.Kind, task.ID, r, debug.Stack())
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return handler(context.Background(), task)
}

func (q *Queue) pruneLoop() {
	defer q.wg.Done()

	interval := q.opts.Retention
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.prune(time.Now())
		}
	}
}

func (q *Queue) prune(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := q.store.PruneTasks(ctx, now.Add(-q.opts.Retention))
	if err != nil {
		log.Warn("failed to prune tasks: %v", err)
		return
	}
	if n > 0 {
		log.Info("pruned %d completed task(s) older than %v", n, q.opts.Retention)
	}
	if err := q.store.SetLastTaskPrune(ctx, now); err != nil {
		log.Debug("failed to record prune time: %v", err)
	}
}
