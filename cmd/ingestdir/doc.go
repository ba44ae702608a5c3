// Command ingestdir imports every image in a local directory into an album.
//
// Files are ingested in batches through the same processor the HTTP API
// uses, so photos, blobs and queued render tasks look exactly as if they had
// been uploaded. Progress is printed as each photo is created.
//
// Usage:
//
//	ingestdir <directory> --album <name> [flags]
//
// Flags:
//
//	--album      Album name or slug (required)
//	--create     Create the album when it does not exist
//	--data-dir   Data directory shared with the server (default: $DATA_DIR or /data)
//	--batch      Files per batch (default: 50)
//	--recursive  Descend into subdirectories
//	--wait       Render all profiles before exiting instead of leaving the
//	             render tasks for the server
//	--nats-url   Also relay progress events to NATS (default: $NATS_URL)
//
// The watch subcommand prints progress events relayed over NATS, for
// example while the server works through a queued batch:
//
//	ingestdir watch [--album-id <id>] [--once] [--nats-url <url>]
//
// Without --wait the render tasks stay in the queue and are processed by the
// server the next time it runs.
package main
