// Package database persists albums, photos and background tasks in SQLite.
//
// The connection runs in WAL mode with a busy timeout, so request
// goroutines and queue workers can write concurrently without any locking
// in this package. Every query is timed into the photo_gallery_db_* metrics.
//
// Lookups of missing rows return ErrNotFound. Record validation failures
// return a *ValidationError, which matches ErrValidation under errors.Is
// and carries one human-readable reason per problem.
//
// Tasks are claimed with a single UPDATE ... RETURNING statement, which
// gives each pending task to exactly one worker.
package database
