package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-text-extractor/internal/imaging"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "IMAGE_OCR_LOG_LEVEL"

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() Settings {
	return Settings{
		Languages:       []string{"ja", "en"},
		Preprocess:      string(imaging.PreprocessNone),
		Threshold:       imaging.DefaultThreshold,
		ThumbnailWidth:  imaging.DefaultThumbnailWidth,
		ThumbnailHeight: imaging.DefaultThumbnailHeight,
		FontSize:        DefaultFontSize,
		LogLevel:        "info",
		Palette: Palette{
			Info:    "#0071e3",
			Success: "#34c759",
			Warning: "#ff9500",
			Error:   "#ff3b30",
		},
	}
}

// DefaultPath returns the settings file location under the user's home.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".image-text-extractor", "settings.json")
}

// ApplyEnv overlays environment overrides onto s.
func ApplyEnv(s Settings) Settings {
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		s.LogLevel = level
	}
	return Normalize(s)
}
