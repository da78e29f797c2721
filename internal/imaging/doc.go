// Package imaging loads, crops, encodes and annotates specimen photographs.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward. Rectangles follow image.Rectangle: Min is inclusive and
// Max is exclusive, which matches the corner convention of the annotation
// files.
//
// # Formats
//
// Open decodes JPEG, PNG, GIF, TIFF, BMP and WebP. Save encodes JPEG, PNG and
// WebP. EXIF orientation is not applied, so crop coordinates always refer to
// the stored pixel grid.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Crop and Overlay do not modify their
// input and can be called concurrently on the same decoded image.
package imaging
