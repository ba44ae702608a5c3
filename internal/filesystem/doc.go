/*
Package filesystem wraps the reads the gallery makes against its data
volumes (blob store, rendition cache) with retry logic for NFS stale file
handle errors.

Only ESTALE (errno 116 on Linux) triggers a retry; every other error is
returned immediately. Defaults are 3 retries with exponential backoff
from 50ms capped at 500ms.

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

Retry metrics are reported through an Observer installed with SetObserver.
The metrics package supplies the Prometheus implementation; until one is
installed, observations are discarded.
*/
package filesystem
