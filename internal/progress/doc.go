/*
Package progress fans ingestion progress out to per-album subscribers.

Two events exist: photo_ready, published once per photo created, and
batch_complete, published once per ingestion call with the created and
failed counts. Delivery is best effort. [Hub.Publish] never blocks; a
subscriber whose buffer is full misses the event and the drop is counted in
photo_gallery_progress_events_dropped_total. Nothing is replayed, so a
subscriber that reconnects should re-list the album's photos.

Additional destinations (for example the NATS relay in package bus) attach
as a [Sink].
*/
package progress
