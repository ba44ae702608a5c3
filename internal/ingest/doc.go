/*
Package ingest turns batches of uploaded files into photos.

[Processor.Ingest] attempts every item exactly once, in input order:

 1. An item with neither bytes nor a blob key fails as no_content and the
    blob store is never called.
 2. The bytes are written to the blob store, or a pre-stored blob key is
    resolved. Store errors fail the item as storage_failure and the batch
    continues.
 3. A photo record is inserted. Validation errors (unknown album, blank
    blob key) fail the item as validation_failure; the stored blob is left
    for later collection.
 4. On success a render_photo task is queued and photo_ready is published.

One batch_complete event follows the last item. Nothing is retried within a
call and no failure aborts the batch.

[Processor.Submit] runs small batches inline and hands batches of
AsyncThreshold items or more to the background queue as an ingest_batch
task, returning immediately.
*/
package ingest
