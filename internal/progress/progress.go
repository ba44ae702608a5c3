package progress

import (
	"sync"
	"time"

	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/metrics"
)

var log = logging.For("progress")

// EventType identifies the kind of progress event.
type EventType string

const (
	EventPhotoReady    EventType = "photo_ready"
	EventBatchComplete EventType = "batch_complete"
)

// DefaultBuffer is the subscription buffer used when none is given.
const DefaultBuffer = 64

// BatchSummary carries the counts of a finished ingestion call.
type BatchSummary struct {
	CreatedCount int `json:"createdCount"`
	FailedCount  int `json:"failedCount"`
}

// Event is one progress notification for an album.
type Event struct {
	Type    EventType       `json:"type"`
	AlbumID int64           `json:"albumId"`
	Photo   *database.Photo `json:"photo,omitempty"`
	Batch   *BatchSummary   `json:"batch,omitempty"`
	At      time.Time       `json:"at"`
}

// PhotoReady builds the event published after a photo record is created.
func PhotoReady(photo database.Photo) Event {
	return Event{Type: EventPhotoReady, AlbumID: photo.AlbumID, Photo: &photo}
}

// BatchComplete builds the event published once per ingestion call.
func BatchComplete(created, failed int) Event {
	return Event{Type: EventBatchComplete, Batch: &BatchSummary{CreatedCount: created, FailedCount: failed}}
}

// Publisher is what producers of progress depend on.
type Publisher interface {
	Publish(albumID int64, ev Event)
}

// Sink receives every published event after local fan-out.
type Sink interface {
	Deliver(ev Event) error
}

// Hub is an in-process many-writer, many-reader fan-out keyed by album.
type Hub struct {
	mu    sync.RWMutex
	subs  map[int64]map[*Subscription]struct{}
	sinks []Sink
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[*Subscription]struct{})}
}

// AddSink attaches an extra destination for every event.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	h.sinks = append(h.sinks, s)
	h.mu.Unlock()
}

// Publish delivers ev to every current subscriber of albumID without
// blocking, then hands it to the sinks.
func (h *Hub) Publish(albumID int64, ev Event) {
	ev.AlbumID = albumID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	eventType := string(ev.Type)

	h.mu.RLock()
	for sub := range h.subs[albumID] {
		select {
		case sub.ch <- ev:
		default:
			metrics.ProgressEventsDropped.WithLabelValues(eventType).Inc()
			log.Debug("dropped %s for album %d: subscriber buffer full", ev.Type, albumID)
		}
	}
	sinks := h.sinks
	h.mu.RUnlock()

	metrics.ProgressEventsPublished.WithLabelValues(eventType).Inc()

	for _, s := range sinks {
		if err := s.Deliver(ev); err != nil {
			log.Warn("sink failed for %s on album %d: %v", ev.Type, albumID, err)
		}
	}
}

// Subscribe registers a new subscriber for albumID. A buffer below 1 uses
// DefaultBuffer. The caller must Close the subscription.
func (h *Hub) Subscribe(albumID int64, buffer int) *Subscription {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	sub := &Subscription{hub: h, albumID: albumID, ch: make(chan Event, buffer)}

	h.mu.Lock()
	if h.subs[albumID] == nil {
		h.subs[albumID] = make(map[*Subscription]struct{})
	}
	h.subs[albumID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.ProgressSubscribers.Inc()
	return sub
}

// Subscribers returns the number of open subscriptions for albumID.
func (h *Hub) Subscribers(albumID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[albumID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.albumID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.albumID)
	}
	// Publish sends under the read lock, so closing here cannot race a send.
	close(sub.ch)
}

// Subscription is one observer's view of an album's progress.
type Subscription struct {
	hub     *Hub
	albumID int64
	ch      chan Event
	once    sync.Once
}

// Events returns the channel events arrive on. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// AlbumID returns the album this subscription follows.
func (s *Subscription) AlbumID() int64 {
	return s.albumID
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		metrics.ProgressSubscribers.Dec()
	})
}
