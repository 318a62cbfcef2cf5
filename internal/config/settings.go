package config

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-text-extractor/internal/imaging"
)

// Font size range offered by the text pane.
const (
	MinFontSize     = 9
	MaxFontSize     = 98
	DefaultFontSize = 11
)

// Palette holds the hex colors used to render status severities.
type Palette struct {
	Info    string `json:"info"`
	Success string `json:"success"`
	Warning string `json:"warning"`
	Error   string `json:"error"`
}

// Settings is the persisted application configuration.
type Settings struct {
	// Languages are recognition language hints, ISO 639-1 or Tesseract codes.
	Languages []string `json:"languages"`

	// TessdataPrefix overrides the Tesseract language data directory.
	TessdataPrefix string `json:"tessdataPrefix,omitempty"`

	// PageSegMode is the Tesseract page segmentation mode (0 = engine default).
	PageSegMode int `json:"pageSegMode,omitempty"`

	// Preprocess is one of "none", "grayscale", "binarize".
	Preprocess string `json:"preprocess"`

	// Threshold is the binarization cutoff (1-255).
	Threshold uint8 `json:"threshold"`

	// ThumbnailWidth and ThumbnailHeight bound the preview image.
	ThumbnailWidth  int `json:"thumbnailWidth"`
	ThumbnailHeight int `json:"thumbnailHeight"`

	// FontSize is the initial text pane font size.
	FontSize int `json:"fontSize"`

	// LogLevel is a logrus level name.
	LogLevel string `json:"logLevel"`

	Palette Palette `json:"palette"`
}

// Normalize trims user inputs and replaces invalid values with defaults.
func Normalize(s Settings) Settings {
	def := DefaultSettings()

	langs := make([]string, 0, len(s.Languages))
	for _, l := range s.Languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = def.Languages
	}
	s.Languages = langs

	s.TessdataPrefix = strings.TrimSpace(s.TessdataPrefix)
	if s.PageSegMode < 0 || s.PageSegMode > 13 {
		s.PageSegMode = 0
	}

	if _, err := imaging.ParsePreprocessMode(s.Preprocess); err != nil || s.Preprocess == "" {
		s.Preprocess = def.Preprocess
	}
	if s.Threshold == 0 {
		s.Threshold = def.Threshold
	}

	if s.ThumbnailWidth <= 0 || s.ThumbnailHeight <= 0 {
		s.ThumbnailWidth, s.ThumbnailHeight = def.ThumbnailWidth, def.ThumbnailHeight
	}

	s.FontSize = ClampFontSize(s.FontSize)

	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		s.LogLevel = def.LogLevel
	}

	if s.Palette.Info == "" {
		s.Palette.Info = def.Palette.Info
	}
	if s.Palette.Success == "" {
		s.Palette.Success = def.Palette.Success
	}
	if s.Palette.Warning == "" {
		s.Palette.Warning = def.Palette.Warning
	}
	if s.Palette.Error == "" {
		s.Palette.Error = def.Palette.Error
	}

	return s
}

// ClampFontSize limits size to the supported range. Zero selects the default.
func ClampFontSize(size int) int {
	switch {
	case size == 0:
		return DefaultFontSize
	case size < MinFontSize:
		return MinFontSize
	case size > MaxFontSize:
		return MaxFontSize
	default:
		return size
	}
}
