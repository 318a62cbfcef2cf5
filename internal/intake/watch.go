package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-text-extractor/internal/pipeline"
)

// DefaultSettle is how long a dropped file must stay unmodified before it is
// submitted, so that partially copied files are not decoded.
const DefaultSettle = 500 * time.Millisecond

// minTick bounds how often pending files are checked.
const minTick = 10 * time.Millisecond

// Submitter accepts image paths for recognition.
type Submitter interface {
	Submit(path string) (pipeline.Request, error)
}

// DropFolder submits images that appear in a watched directory.
//
// Files are submitted one at a time as they settle. A file that arrives
// while a recognition is running is rejected by the pipeline and logged; it
// is not retried.
type DropFolder struct {
	dir    string
	submit Submitter
	log    *logrus.Entry
	settle time.Duration
}

// NewDropFolder creates a watcher for dir.
func NewDropFolder(dir string, submit Submitter, log *logrus.Entry) *DropFolder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DropFolder{
		dir:    dir,
		submit: submit,
		log:    log.WithFields(logrus.Fields{"component": "dropfolder", "dir": dir}),
		settle: DefaultSettle,
	}
}

// SetSettle overrides DefaultSettle.
func (d *DropFolder) SetSettle(settle time.Duration) {
	if settle > 0 {
		d.settle = settle
	}
}

// Run watches until ctx is done.
func (d *DropFolder) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(d.dir); err != nil {
		return fmt.Errorf("watch %s: %w", d.dir, err)
	}
	d.log.Info("watching for dropped images")

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(tickInterval(d.settle))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsImagePath(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.WithError(err).Warn("watcher error")

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < d.settle {
					continue
				}
				delete(pending, path)
				d.dispatch(path)
			}
		}
	}
}

// tickInterval is half the settle time, but never below minTick.
func tickInterval(settle time.Duration) time.Duration {
	return max(settle/2, minTick)
}

func (d *DropFolder) dispatch(path string) {
	log := d.log.WithField("path", path)

	req, err := d.submit.Submit(path)
	switch {
	case err == nil:
		log.WithField("request_id", req.ID).Info("dropped image submitted")
	case errors.Is(err, pipeline.ErrBusy):
		log.Warn("recognition in progress, dropped image ignored")
	case errors.Is(err, pipeline.ErrEngineNotReady):
		log.Warn("OCR engine still initializing, dropped image ignored")
	default:
		log.WithError(err).Error("submit failed")
	}
}
