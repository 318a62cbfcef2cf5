// Package imaging loads source images for text extraction and prepares the
// derived images the rest of the program needs.
//
// Load decodes a file into a standard image.Image. PNG, JPEG, GIF and BMP are
// always registered; JPEG EXIF orientation is applied so that text reaches the
// recognition engine upright. Load never caches and holds no shared state, so
// it is safe to call from the background recognition goroutine.
//
// # Errors
//
// Load classifies failures with two sentinels:
//   - ErrNotFound: the path does not exist or cannot be read
//   - ErrUnsupported: the bytes are not an image in a registered format
//
// Callers test them with errors.Is; the wrapped error keeps the original cause.
//
// # Derived Images
//
//   - Thumbnail scales an image to fit a bounding box for preview display.
//   - Preprocess applies optional grayscale or threshold filtering and
//     upscales small inputs before OCR.
//   - EncodePNG serializes an image as base64 PNG for transport.
package imaging
