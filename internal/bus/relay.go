package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"photo-gallery/internal/progress"
)

// SubjectPrefix is the root of every progress subject.
const SubjectPrefix = "gallery.albums"

// ProgressSubject returns the subject events for albumID are published on.
func ProgressSubject(albumID int64) string {
	return fmt.Sprintf("%s.%d.progress", SubjectPrefix, albumID)
}

// AllProgress matches the progress subjects of every album.
const AllProgress = SubjectPrefix + ".*.progress"

type jsonPublisher interface {
	PublishJSON(subject string, v any) error
}

// Relay is a progress.Sink that republishes events as JSON on NATS.
type Relay struct {
	pub jsonPublisher
}

// NewRelay returns a Relay publishing through c.
func NewRelay(c *Client) *Relay {
	return &Relay{pub: c}
}

// Deliver publishes ev on its album's progress subject.
func (r *Relay) Deliver(ev progress.Event) error {
	if err := r.pub.PublishJSON(ProgressSubject(ev.AlbumID), ev); err != nil {
		return fmt.Errorf("relay %s: %w", ev.Type, err)
	}
	return nil
}

type jsonSubscriber interface {
	SubscribeJSON(subject string, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error)
}

// Watcher decodes progress events relayed by other processes.
type Watcher struct {
	sub jsonSubscriber
}

// NewWatcher returns a Watcher subscribing through c.
func NewWatcher(c *Client) *Watcher {
	return &Watcher{sub: c}
}

// Watch calls fn for every event published on subject, which may be
// ProgressSubject(id) or AllProgress. Malformed payloads are logged and
// skipped. fn runs on the NATS delivery goroutine.
func (w *Watcher) Watch(subject string, fn func(progress.Event)) (*nats.Subscription, error) {
	return w.sub.SubscribeJSON(subject, func(_ context.Context, data []byte) {
		var ev progress.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn("skipping malformed progress event on %s: %v", subject, err)
			return
		}
		fn(ev)
	})
}
