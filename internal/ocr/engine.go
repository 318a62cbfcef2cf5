package ocr

import (
	"errors"
	"image"
	"strings"
)

// ErrUnavailable is returned by engines that were not compiled into this binary.
var ErrUnavailable = errors.New("OCR engine not available in this build")

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Fragment is one contiguous piece of recognized text.
type Fragment struct {
	// Text is the recognized content with surrounding whitespace trimmed.
	Text string `json:"text"`

	// Bounds locates the fragment in source image coordinates.
	Bounds Bounds `json:"bounds"`

	// Confidence is the engine's certainty (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// Engine is a text recognition backend.
//
// The pipeline owns one Engine for the life of the process and calls it from
// one background goroutine at a time, and calls Close only after that
// goroutine has finished.
type Engine interface {
	// Initialize loads models for the given language hints.
	//
	// Parameters:
	//   - languages: ISO 639-1 codes ("ja", "en") or Tesseract codes ("jpn").
	//     Unknown codes are passed through to the backend.
	//
	// Initialize may be slow (model loading) and is retried by the caller
	// after a failure, so a failed call must leave the engine reusable.
	Initialize(languages []string) error

	// Recognize extracts text from img.
	//
	// Returns:
	//   - []Fragment: recognized pieces in reading order, top to bottom. An
	//     image without text yields an empty slice and a nil error.
	//   - error: non-nil if the engine is not initialized or the backend
	//     fails. Implementations may also panic; callers recover.
	Recognize(img image.Image) ([]Fragment, error)

	// Close releases engine resources.
	Close() error
}

// JoinFragments joins fragment texts with newlines, preserving engine order.
func JoinFragments(fragments []Fragment) string {
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, "\n")
}

var isoToTesseract = map[string]string{
	"ja":      "jpn",
	"en":      "eng",
	"de":      "deu",
	"fr":      "fra",
	"es":      "spa",
	"it":      "ita",
	"pt":      "por",
	"ru":      "rus",
	"ko":      "kor",
	"zh":      "chi_sim",
	"zh_sim":  "chi_sim",
	"zh-cn":   "chi_sim",
	"ch_sim":  "chi_sim",
	"zh_tra":  "chi_tra",
	"zh-tw":   "chi_tra",
	"ch_tra":  "chi_tra",
	"ar":      "ara",
	"hi":      "hin",
	"th":      "tha",
	"vi":      "vie",
	"nl":      "nld",
	"pl":      "pol",
	"tr":      "tur",
	"uk":      "ukr",
	"id":      "ind",
	"sv":      "swe",
	"ja_vert": "jpn_vert",
}

// TesseractLanguages maps language hints to Tesseract codes.
// Duplicates are removed and order is kept; no hints yields ["eng"].
func TesseractLanguages(hints []string) []string {
	seen := make(map[string]bool, len(hints))
	langs := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if mapped, ok := isoToTesseract[h]; ok {
			h = mapped
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		langs = append(langs, h)
	}
	if len(langs) == 0 {
		return []string{"eng"}
	}
	return langs
}
