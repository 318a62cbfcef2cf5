// Package session holds the presentation state of the extractor window: the
// current image, its recognized text, the status line and the text pane font
// size.
//
// A Session is owned by the interactive goroutine. It is updated only by
// Apply, with events drained from a pipeline.Dispatcher, and by the user
// operations Clear, Copy, SaveAs and SetFontSize. It is not safe for
// concurrent use.
package session

import (
	"errors"
	"image"

	"github.com/ironsheep/image-text-extractor/internal/config"
	"github.com/ironsheep/image-text-extractor/internal/pipeline"
)

// ErrNoText is returned by Copy and SaveAs when there is nothing to export.
var ErrNoText = errors.New("no text to export")

// Session is the interactive-side view of the latest outcome.
type Session struct {
	imagePath string
	text      string
	fragments int
	sidecar   string
	thumbnail image.Image
	status    pipeline.Status
	lastError *pipeline.Failure
	fontSize  int
	lastSeq   int64
}

// New creates an empty session with the given initial font size.
func New(fontSize int) *Session {
	return &Session{
		fontSize: config.ClampFontSize(fontSize),
		status:   pipeline.Status{Message: "Select an image", Severity: pipeline.SeverityInfo},
	}
}

// Apply folds events into the session in sequence order. Events with a
// sequence at or below the last applied one are ignored.
func (s *Session) Apply(events ...pipeline.Event) {
	for _, ev := range events {
		if ev.Seq != 0 && ev.Seq <= s.lastSeq {
			continue
		}
		s.lastSeq = ev.Seq

		switch ev.Type {
		case pipeline.EventTypeStatus:
			if ev.Status != nil {
				s.status = *ev.Status
			}
		case pipeline.EventTypeResult:
			if r := ev.Result; r != nil {
				s.imagePath = r.SourcePath
				s.text = r.Text
				s.fragments = r.FragmentCount
				s.sidecar = r.SidecarPath
				s.thumbnail = r.Thumbnail
				s.lastError = nil
			}
		case pipeline.EventTypeFailure:
			if f := ev.Failure; f != nil {
				failure := *f
				s.lastError = &failure
			}
		}
	}
}

// Clear resets text, image and status to the initial state.
func (s *Session) Clear() {
	s.imagePath = ""
	s.text = ""
	s.fragments = 0
	s.sidecar = ""
	s.thumbnail = nil
	s.lastError = nil
	s.status = pipeline.Status{Message: "Ready", Severity: pipeline.SeveritySuccess}
}

// Copy returns the current text for the clipboard.
func (s *Session) Copy() (string, error) {
	if s.text == "" {
		return "", ErrNoText
	}
	return s.text, nil
}

// SaveAs writes the current text to path as UTF-8.
func (s *Session) SaveAs(path string) error {
	if s.text == "" {
		return ErrNoText
	}
	return pipeline.WriteText(path, s.text)
}

// SetFontSize changes the text pane font size, clamped to the supported
// range, and returns the applied size.
func (s *Session) SetFontSize(size int) int {
	s.fontSize = config.ClampFontSize(size)
	return s.fontSize
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	ImagePath     string            `json:"imagePath"`
	Text          string            `json:"text"`
	FragmentCount int               `json:"fragmentCount"`
	SidecarPath   string            `json:"sidecarPath,omitempty"`
	Status        pipeline.Status   `json:"status"`
	LastError     *pipeline.Failure `json:"lastError,omitempty"`
	FontSize      int               `json:"fontSize"`
	HasThumbnail  bool              `json:"hasThumbnail"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ImagePath:     s.imagePath,
		Text:          s.text,
		FragmentCount: s.fragments,
		SidecarPath:   s.sidecar,
		Status:        s.status,
		LastError:     s.lastError,
		FontSize:      s.fontSize,
		HasThumbnail:  s.thumbnail != nil,
	}
}
