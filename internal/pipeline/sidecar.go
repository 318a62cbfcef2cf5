package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SidecarSuffix is appended to the image stem to name the text file.
const SidecarSuffix = "_txt.txt"

// SidecarPath returns "<dir>/<stem>_txt.txt" for imagePath, where stem is the
// file name without its last extension.
func SidecarPath(imagePath string) string {
	return filepath.Join(filepath.Dir(imagePath), stem(imagePath)+SidecarSuffix)
}

// WriteText writes text to path as UTF-8, replacing any existing file.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func WriteText(path, text string) error {
	if err := os.WriteFile(path, []byte(strings.ToValidUTF8(text, "�")), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// stem returns the base name of path without its last extension.
// Dotfiles such as ".scan" keep their full name.
func stem(path string) string {
	base := filepath.Base(path)
	if s := strings.TrimSuffix(base, filepath.Ext(base)); s != "" {
		return s
	}
	return base
}
