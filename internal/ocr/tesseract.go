//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/image-text-extractor/internal/imaging"
)

// Tesseract is an Engine backed by a single long-lived gosseract client.
//
// The client is created in Initialize and reused for every Recognize call,
// so the language model is loaded only once.
type Tesseract struct {
	opts Options

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates an uninitialized Tesseract engine.
func NewTesseract(opts Options) *Tesseract {
	return &Tesseract{opts: opts}
}

// Initialize creates the gosseract client and forces the model load by
// recognizing a blank page, so that missing language data is reported here
// rather than on the first real image.
func (t *Tesseract) Initialize(languages []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return nil
	}

	client := gosseract.NewClient()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			client.Close()
			return fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	if err := client.SetLanguage(TesseractLanguages(languages)...); err != nil {
		client.Close()
		return fmt.Errorf("failed to set language: %w", err)
	}

	if t.opts.PageSegMode != 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(t.opts.PageSegMode)); err != nil {
			client.Close()
			return fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}

	blank, err := encodePNG(image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		client.Close()
		return err
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		client.Close()
		return fmt.Errorf("failed to set warm-up image: %w", err)
	}
	if _, err := client.Text(); err != nil {
		client.Close()
		return fmt.Errorf("failed to load language model: %w", err)
	}

	t.client = client
	return nil
}

// Recognize runs line-level OCR over img.
//
// Each Tesseract text line becomes one Fragment. Bounds are mapped back to
// the coordinates of img when preprocessing resized it. Lines with no text
// after trimming are dropped.
func (t *Tesseract) Recognize(img image.Image) ([]Fragment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil, fmt.Errorf("tesseract engine not initialized")
	}

	prepared := imaging.Preprocess(img, t.opts.Preprocess, t.opts.Threshold)

	data, err := encodePNG(prepared)
	if err != nil {
		return nil, err
	}

	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	scale := 1.0
	if h := prepared.Bounds().Dy(); h > 0 {
		scale = float64(img.Bounds().Dy()) / float64(h)
	}

	fragments := make([]Fragment, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			Text:       text,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: int(float64(box.Box.Min.X) * scale),
				Y1: int(float64(box.Box.Min.Y) * scale),
				X2: int(float64(box.Box.Max.X) * scale),
				Y2: int(float64(box.Box.Max.Y) * scale),
			},
		})
	}

	return fragments, nil
}

// Version returns the linked Tesseract version.
func (t *Tesseract) Version() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return t.client.Version()
	}
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// Close releases the gosseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}
	return buf.Bytes(), nil
}
