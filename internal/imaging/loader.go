package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // Register BMP format decoder
)

var (
	// ErrNotFound is returned when the image path does not exist or cannot be read.
	ErrNotFound = errors.New("image not found")

	// ErrUnsupported is returned when the file is not a decodable image.
	ErrUnsupported = errors.New("unsupported or corrupt image")
)

// Info describes a decoded image.
type Info struct {
	// Width is the image width in pixels after orientation is applied.
	Width int `json:"width"`

	// Height is the image height in pixels after orientation is applied.
	Height int `json:"height"`

	// Format is the codec name reported by the decoder: "png", "jpeg", "gif", "bmp".
	// Detection is based on file contents, not the extension.
	Format string `json:"format"`

	// FileSizeBytes is the size of the source file in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Load reads and decodes the image at path.
//
// Parameters:
//   - path: Absolute or relative file path to the image. Supported formats are
//     PNG, JPEG, GIF and BMP, detected from the file contents.
//
// Returns:
//   - image.Image: The decoded image, rotated upright when a JPEG carries an
//     EXIF orientation tag. The concrete type depends on the format and
//     color model (e.g., *image.NRGBA, *image.Paletted).
//   - error: Non-nil if the file cannot be read or decoded.
//
// Nothing is cached: overwriting a file and loading it again returns the new
// contents.
//
// # Errors
//
//   - Wraps ErrNotFound if the file does not exist or cannot be read
//   - Wraps ErrUnsupported if the contents are not a valid image in a
//     registered format, including truncated files
func Load(path string) (image.Image, error) {
	img, _, err := LoadWithInfo(path)
	return img, err
}

// LoadWithInfo is Load plus the decoded dimensions and detected format.
func LoadWithInfo(path string) (image.Image, *Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	img, format, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	bounds := img.Bounds()
	return img, &Info{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		FileSizeBytes: int64(len(data)),
	}, nil
}

// Decode decodes raw image bytes and returns the image with its format name.
//
// The header is sniffed first so that garbage input fails fast without a full
// decode attempt. JPEG EXIF orientation tags are honored.
func Decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, "", fmt.Errorf("%w: empty %s image", ErrUnsupported, format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	return img, format, nil
}
