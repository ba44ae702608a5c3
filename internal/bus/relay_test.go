package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"photo-gallery/internal/database"
	"photo-gallery/internal/progress"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) PublishJSON(subject string, v any) error {
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, b)
	return nil
}

func TestProgressSubject(t *testing.T) {
	if got := ProgressSubject(42); got != "gallery.albums.42.progress" {
		t.Errorf("ProgressSubject(42) = %q", got)
	}
}

func TestRelayPublishesHubEvents(t *testing.T) {
	pub := &fakePublisher{}
	hub := progress.NewHub()
	hub.AddSink(&Relay{pub: pub})

	hub.Publish(3, progress.PhotoReady(database.Photo{ID: 9, AlbumID: 3, Filename: "a.jpg"}))
	hub.Publish(3, progress.BatchComplete(1, 0))

	if len(pub.subjects) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.subjects))
	}
	for _, s := range pub.subjects {
		if s != "gallery.albums.3.progress" {
			t.Errorf("subject = %q", s)
		}
	}

	var ev progress.Event
	if err := json.Unmarshal(pub.payloads[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != progress.EventPhotoReady || ev.Photo == nil || ev.Photo.Filename != "a.jpg" {
		t.Errorf("decoded %+v", ev)
	}

	if err := json.Unmarshal(pub.payloads[1], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Batch == nil || ev.Batch.CreatedCount != 1 {
		t.Errorf("decoded batch %+v", ev.Batch)
	}
}

func TestRelayWrapsPublishError(t *testing.T) {
	boom := errors.New("connection closed")
	r := &Relay{pub: &fakePublisher{err: boom}}

	err := r.Deliver(progress.BatchComplete(0, 1))
	if !errors.Is(err, boom) {
		t.Errorf("Deliver() error = %v, want wrapping %v", err, boom)
	}
}

// loopback hands everything published to the handlers subscribed on the
// same subject pattern.
type loopback struct {
	fakePublisher
	patterns []string
	handlers []func(ctx context.Context, data []byte)
}

func (l *loopback) SubscribeJSON(subject string, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error) {
	l.patterns = append(l.patterns, subject)
	l.handlers = append(l.handlers, handler)
	return nil, nil
}

func (l *loopback) deliver(subject string, data []byte) {
	for i, pattern := range l.patterns {
		if pattern == subject || pattern == AllProgress {
			l.handlers[i](context.Background(), data)
		}
	}
}

func TestWatcherDecodesRelayedEvents(t *testing.T) {
	nc := &loopback{}
	watcher := &Watcher{sub: nc}

	var all, album7 []progress.Event
	if _, err := watcher.Watch(AllProgress, func(ev progress.Event) { all = append(all, ev) }); err != nil {
		t.Fatal(err)
	}
	if _, err := watcher.Watch(ProgressSubject(7), func(ev progress.Event) { album7 = append(album7, ev) }); err != nil {
		t.Fatal(err)
	}

	done := progress.BatchComplete(1, 0)
	done.AlbumID = 8

	relay := &Relay{pub: nc}
	relay.Deliver(progress.PhotoReady(database.Photo{ID: 1, AlbumID: 7, Filename: "a.jpg"}))
	relay.Deliver(done)
	for i, subject := range nc.subjects {
		nc.deliver(subject, nc.payloads[i])
	}
	nc.deliver(ProgressSubject(7), []byte("{not json"))

	if len(all) != 2 {
		t.Fatalf("AllProgress watcher got %d events, want 2", len(all))
	}
	if all[0].Type != progress.EventPhotoReady || all[0].Photo == nil || all[0].Photo.ID != 1 {
		t.Errorf("first event = %+v", all[0])
	}
	if len(album7) != 1 || album7[0].Type != progress.EventPhotoReady {
		t.Errorf("album 7 watcher got %+v", album7)
	}
}
