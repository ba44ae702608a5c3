/*
Package blobstore persists raw photo bytes under permanent, opaque keys.

Keys are content addressed: the BLAKE2b-256 digest of the bytes, laid out
as "b2/<d[0:2]>/<d[2:4]>/<digest>". The same bytes always map to the same
key, so two uploads of one file share a blob, and concurrent writers need
no coordination.

Two backends implement [Store]:

  - [LocalStore] writes under a directory (BLOB_DIR), via temp file, fsync
    and atomic rename. Reads retry NFS stale file handles.
  - [S3Store] writes objects under "blobs/<key>" in an S3-compatible bucket.

Wrap either with [Instrument] to record photo_gallery_blob_* metrics.

Errors wrap [ErrNotFound] for unknown or malformed keys and [ErrStorage]
for I/O failures.
*/
package blobstore
