// Package mediatypes maps photo filenames and declared content types to the
// MIME types recorded on stored blobs, and reports which of them the
// pure-Go decoders can handle.
package mediatypes
