// Package bus connects to NATS and relays album progress events onto
// subjects of the form gallery.albums.<id>.progress.
package bus
