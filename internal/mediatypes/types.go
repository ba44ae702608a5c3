package mediatypes

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is recorded when neither the client nor the filename
// tells us what the bytes are.
const DefaultContentType = "application/octet-stream"

// ImageExtensions maps file extensions to whether they are accepted photo formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// nativeDecodable lists the content types the pure-Go decoders handle.
// Everything else needs libvips.
var nativeDecodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
	"image/tiff": true,
}

// IsImageFile reports whether filename has an accepted photo extension.
func IsImageFile(filename string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ContentTypeForFilename returns the MIME type for filename's extension,
// or DefaultContentType if it is not recognized.
func ContentTypeForFilename(filename string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mime
	}
	return DefaultContentType
}

// ResolveContentType prefers the declared type, ignoring parameters such as
// "; charset=binary", and falls back to the filename extension.
func ResolveContentType(declared, filename string) string {
	if declared != "" {
		mediaType, _, _ := strings.Cut(declared, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		if mediaType != "" && mediaType != DefaultContentType {
			return mediaType
		}
	}
	return ContentTypeForFilename(filename)
}

// IsImageContentType reports whether contentType is an image/* type.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// IsNativeDecodable reports whether contentType can be decoded without libvips.
func IsNativeDecodable(contentType string) bool {
	return nativeDecodable[strings.ToLower(contentType)]
}
