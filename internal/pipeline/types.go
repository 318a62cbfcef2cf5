package pipeline

import (
	"image"
	"time"

	"github.com/ironsheep/image-text-extractor/internal/ocr"
)

// Severity classifies status messages for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Status is a user-facing status line.
type Status struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Request is one accepted recognition request.
type Request struct {
	ID          string    `json:"id"`
	SourcePath  string    `json:"sourcePath"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Result is the immutable outcome of a successful recognition.
// Fragments and Thumbnail must not be modified after publication.
type Result struct {
	RequestID     string         `json:"requestId"`
	SourcePath    string         `json:"sourcePath"`
	Text          string         `json:"text"`
	FragmentCount int            `json:"fragmentCount"`
	DurationMs    int64          `json:"durationMs"`
	Fragments     []ocr.Fragment `json:"fragments"`

	// SidecarPath is the written text file, or empty when persistence failed.
	SidecarPath string `json:"sidecarPath,omitempty"`

	// Thumbnail is a preview scaled to the configured box.
	Thumbnail image.Image `json:"-"`
}

// Notifier receives pipeline outcomes. Implementations must be safe to call
// from the background goroutine and must not block for long.
type Notifier interface {
	StatusChanged(message string, severity Severity)
	ResultReady(result Result)
	Failed(failure Failure)
}
