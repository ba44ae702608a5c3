// Package handlers provides the HTTP handlers of the photo gallery API.
//
// It includes handlers for:
//   - Albums and their photo listings
//   - Batch uploads (multipart, or JSON with pre-stored blob keys)
//   - Direct blob pre-upload
//   - Renditions, falling back to the original while they are generated
//   - The per-album progress feed as server-sent events
//   - Background task status
//   - Health checks and version information
//
// Errors are returned as JSON objects of the form {"error": "..."}.
package handlers
