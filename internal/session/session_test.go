package session

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-text-extractor/internal/pipeline"
)

func resultEvent(seq int64, path, text string) pipeline.Event {
	return pipeline.Event{
		Seq:  seq,
		Type: pipeline.EventTypeResult,
		Result: &pipeline.Result{
			SourcePath:    path,
			Text:          text,
			FragmentCount: 1,
			SidecarPath:   path + "_txt.txt",
			Thumbnail:     image.NewGray(image.Rect(0, 0, 2, 2)),
		},
	}
}

func statusEvent(seq int64, msg string, sev pipeline.Severity) pipeline.Event {
	return pipeline.Event{
		Seq:    seq,
		Type:   pipeline.EventTypeStatus,
		Status: &pipeline.Status{Message: msg, Severity: sev},
	}
}

func TestApply_Result(t *testing.T) {
	s := New(11)

	s.Apply(
		statusEvent(1, "Processing...", pipeline.SeverityWarning),
		resultEvent(2, "/a.png", "hello"),
		statusEvent(3, "Done: a (5 chars)", pipeline.SeveritySuccess),
	)

	snap := s.Snapshot()
	assert.Equal(t, "/a.png", snap.ImagePath)
	assert.Equal(t, "hello", snap.Text)
	assert.Equal(t, 1, snap.FragmentCount)
	assert.True(t, snap.HasThumbnail)
	assert.Equal(t, "Done: a (5 chars)", snap.Status.Message)
	assert.Nil(t, snap.LastError)
}

func TestApply_FailureKeepsPreviousText(t *testing.T) {
	s := New(11)
	s.Apply(resultEvent(1, "/a.png", "hello"))

	s.Apply(pipeline.Event{
		Seq:     2,
		Type:    pipeline.EventTypeFailure,
		Failure: &pipeline.Failure{Kind: pipeline.KindNotFound, SourcePath: "/b.png"},
	})

	snap := s.Snapshot()
	assert.Equal(t, "hello", snap.Text)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, pipeline.KindNotFound, snap.LastError.Kind)
}

func TestApply_IgnoresStaleEvents(t *testing.T) {
	s := New(11)
	s.Apply(resultEvent(5, "/new.png", "new"))
	s.Apply(resultEvent(3, "/old.png", "old"))

	assert.Equal(t, "new", s.Snapshot().Text)
}

func TestClear(t *testing.T) {
	s := New(11)
	s.Apply(resultEvent(1, "/a.png", "hello"))

	s.Clear()

	snap := s.Snapshot()
	assert.Empty(t, snap.Text)
	assert.Empty(t, snap.ImagePath)
	assert.False(t, snap.HasThumbnail)
	assert.Equal(t, "Ready", snap.Status.Message)
	assert.Equal(t, 11, snap.FontSize, "clear keeps the font size")
}

func TestCopy(t *testing.T) {
	s := New(11)
	_, err := s.Copy()
	assert.ErrorIs(t, err, ErrNoText)

	s.Apply(resultEvent(1, "/a.png", "hello"))
	text, err := s.Copy()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestSaveAs(t *testing.T) {
	s := New(11)
	path := filepath.Join(t.TempDir(), "export.txt")

	assert.ErrorIs(t, s.SaveAs(path), ErrNoText)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	s.Apply(resultEvent(1, "/a.png", "日本語\nEnglish"))
	require.NoError(t, s.SaveAs(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "日本語\nEnglish", string(data))
}

func TestSetFontSize(t *testing.T) {
	s := New(0)
	assert.Equal(t, 11, s.Snapshot().FontSize)

	assert.Equal(t, 9, s.SetFontSize(1))
	assert.Equal(t, 98, s.SetFontSize(200))
	assert.Equal(t, 24, s.SetFontSize(24))
	assert.Equal(t, 24, s.Snapshot().FontSize)
}
