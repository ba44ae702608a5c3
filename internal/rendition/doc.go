/*
Package rendition derives resized JPEG renditions of stored photos.

Every photo gets the same fixed, ordered set of [Profiles]: thumbnail
(300x300, q80), medium (1200x800, q85) and large (1920x1080, q90). Each
rendition fits inside its box with the aspect ratio preserved and is never
upscaled.

Renditions are cache artifacts keyed by (blob key, profile) and live at

	<cache dir>/<profile>/<sha1(blob key)>.jpg

They can be deleted and regenerated at any time; [Generator.Generate]
overwrites whatever is there. Photos that share a blob share renditions.

Decoding uses imaging (with EXIF auto-orientation) unless libvips has been
started with [InitVips], in which case libvips shrinks on load and imaging
is only the fallback. Images whose header declares more than the configured
pixel budget are rejected before decoding.

A failed profile never stops the remaining ones and never touches the
photo record. Failures are reported in the [Report], logged, and counted
in photo_gallery_rendition_generations_total.
*/
package rendition
