package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// PreprocessMode selects the filter applied before recognition.
type PreprocessMode string

const (
	// PreprocessNone passes the decoded image through untouched.
	PreprocessNone PreprocessMode = "none"

	// PreprocessGrayscale converts to grayscale and stretches contrast.
	PreprocessGrayscale PreprocessMode = "grayscale"

	// PreprocessBinarize converts to pure black and white at a fixed threshold.
	PreprocessBinarize PreprocessMode = "binarize"
)

// MinRecognitionHeight is the height below which images are upscaled before OCR.
// Tesseract loses accuracy when glyphs are only a few pixels tall.
const MinRecognitionHeight = 300

// DefaultThreshold is the binarization cutoff used when none is configured.
const DefaultThreshold uint8 = 128

// ParsePreprocessMode validates a mode name from configuration.
// The empty string maps to PreprocessNone.
func ParsePreprocessMode(s string) (PreprocessMode, error) {
	switch PreprocessMode(s) {
	case "", PreprocessNone:
		return PreprocessNone, nil
	case PreprocessGrayscale, PreprocessBinarize:
		return PreprocessMode(s), nil
	default:
		return "", fmt.Errorf("unknown preprocess mode: %q", s)
	}
}

// Preprocess prepares img for recognition.
//
// Images shorter than MinRecognitionHeight are upscaled with Lanczos
// resampling first, then the filter for mode is applied. threshold is only
// used by PreprocessBinarize; zero selects DefaultThreshold.
func Preprocess(img image.Image, mode PreprocessMode, threshold uint8) image.Image {
	if h := img.Bounds().Dy(); h > 0 && h < MinRecognitionHeight {
		img = imaging.Resize(img, 0, MinRecognitionHeight, imaging.Lanczos)
	}

	switch mode {
	case PreprocessGrayscale:
		return adjust.Contrast(effect.Grayscale(img), 0.2)
	case PreprocessBinarize:
		if threshold == 0 {
			threshold = DefaultThreshold
		}
		return segment.Threshold(effect.Grayscale(img), threshold)
	default:
		return img
	}
}
