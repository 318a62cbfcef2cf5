//go:build !cgo

package ocr

import "image"

// Tesseract is the non-cgo placeholder. Initialize always fails with
// ErrUnavailable, which keeps the pipeline in its not-ready state.
type Tesseract struct {
	opts Options
}

// NewTesseract creates a placeholder engine.
func NewTesseract(opts Options) *Tesseract {
	return &Tesseract{opts: opts}
}

// Initialize returns ErrUnavailable.
func (t *Tesseract) Initialize(languages []string) error {
	return ErrUnavailable
}

// Recognize returns ErrUnavailable.
func (t *Tesseract) Recognize(img image.Image) ([]Fragment, error) {
	return nil, ErrUnavailable
}

// Version returns an empty string.
func (t *Tesseract) Version() string {
	return ""
}

// Close is a no-op.
func (t *Tesseract) Close() error {
	return nil
}
