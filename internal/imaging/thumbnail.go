package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Default thumbnail bounding box, matching the preview pane of the desktop front-end.
const (
	DefaultThumbnailWidth  = 280
	DefaultThumbnailHeight = 520
)

// EncodedImage is an image serialized for transport to a front-end.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Thumbnail scales img down to fit within maxWidth x maxHeight.
//
// Parameters:
//   - img: Source image; it is never modified.
//   - maxWidth, maxHeight: Bounding box in pixels, normally
//     DefaultThumbnailWidth x DefaultThumbnailHeight.
//
// Returns a new image with the source aspect ratio preserved, resampled with
// Lanczos. Images already inside the box are copied unscaled, so the result
// never aliases img and may be handed to another goroutine.
func Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image {
	if maxWidth <= 0 || maxHeight <= 0 {
		maxWidth, maxHeight = DefaultThumbnailWidth, DefaultThumbnailHeight
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth && bounds.Dy() <= maxHeight {
		return imaging.Clone(img)
	}

	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}

// EncodePNG serializes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
