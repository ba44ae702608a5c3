// Package middleware provides HTTP middleware for the photo gallery server.
//
// It includes:
//   - Request IDs (X-Request-ID), generated when the client sends none
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//
// Every wrapper keeps http.Flusher working so the server-sent event feed
// streams through the full chain.
package middleware
