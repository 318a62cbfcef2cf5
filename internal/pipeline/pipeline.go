package pipeline

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-text-extractor/internal/imaging"
	"github.com/ironsheep/image-text-extractor/internal/ocr"
)

// Loader decodes the image at path.
type Loader func(path string) (image.Image, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the log entry used by the pipeline.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithLoader replaces imaging.Load.
func WithLoader(load Loader) Option {
	return func(p *Pipeline) { p.load = load }
}

// WithClock replaces time.Now for request timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithThumbnailSize sets the preview bounding box.
func WithThumbnailSize(width, height int) Option {
	return func(p *Pipeline) { p.thumbWidth, p.thumbHeight = width, height }
}

// WithBusyObserver registers fn to be called on every busy transition.
// fn runs on the goroutine that caused the transition.
func WithBusyObserver(fn func(busy bool)) Option {
	return func(p *Pipeline) { p.flight.onChange = fn }
}

// Pipeline runs at most one recognition at a time in the background.
type Pipeline struct {
	engine   ocr.Engine
	notifier Notifier
	load     Loader
	log      *logrus.Entry
	now      func() time.Time

	thumbWidth  int
	thumbHeight int

	initMu sync.Mutex
	ready  atomic.Bool
	flight flight
	wg     sync.WaitGroup
}

// New creates a pipeline around engine. The engine is not initialized until
// Initialize or Start is called; until then Submit rejects every request.
func New(engine ocr.Engine, notifier Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:      engine,
		notifier:    notifier,
		load:        imaging.Load,
		log:         logrus.NewEntry(logrus.StandardLogger()),
		now:         time.Now,
		thumbWidth:  imaging.DefaultThumbnailWidth,
		thumbHeight: imaging.DefaultThumbnailHeight,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("component", "pipeline")
	return p
}

// Initialize loads the engine synchronously and marks the pipeline ready.
//
// It publishes "Initializing OCR engine..." before loading and "Ready" or an
// error status afterwards. Calling it again after success is a no-op; after a
// failure it retries. Concurrent calls are serialized.
func (p *Pipeline) Initialize(languages []string) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.ready.Load() {
		return nil
	}

	p.notifier.StatusChanged("Initializing OCR engine...", SeverityWarning)
	started := time.Now()

	if err := p.engine.Initialize(languages); err != nil {
		p.log.WithError(err).WithField("languages", languages).Error("engine initialization failed")
		p.notifier.StatusChanged(fmt.Sprintf("OCR engine initialization failed: %v", err), SeverityError)
		return fmt.Errorf("initialize engine: %w", err)
	}

	p.ready.Store(true)
	p.log.WithFields(logrus.Fields{
		"languages":   languages,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("engine ready")
	p.notifier.StatusChanged("Ready", SeveritySuccess)
	return nil
}

// Start initializes the engine on a background goroutine.
func (p *Pipeline) Start(languages []string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.Initialize(languages)
	}()
}

// Ready reports whether the engine has been initialized.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Busy reports whether a request is in flight.
func (p *Pipeline) Busy() bool {
	return p.flight.active()
}

// Submit accepts sourcePath for background recognition.
//
// Parameters:
//   - sourcePath: Path of the image. It is not checked here; a missing or
//     unreadable file is reported asynchronously as a failure.
//
// Returns:
//   - Request: The accepted request with a fresh ID and submission time.
//   - error: Non-nil if the request was rejected. Nothing is published for a
//     rejected request; the caller informs the user.
//
// Submit never blocks on recognition. On acceptance the busy flag is set and
// a goroutine runs the request to completion, publishing exactly one result
// or failure followed by a final status line.
//
// # Errors
//
//   - *Failure of kind KindEngineNotReady (errors.Is ErrEngineNotReady) if
//     the engine has not finished initializing; busy is not touched
//   - *Failure of kind KindBusy (errors.Is ErrBusy) if another request is in
//     flight; the new request is dropped, not queued
func (p *Pipeline) Submit(sourcePath string) (Request, error) {
	if !p.ready.Load() {
		return Request{}, newFailure(KindEngineNotReady, sourcePath,
			"OCR engine is still initializing, try again shortly", nil)
	}
	if !p.flight.tryAcquire() {
		return Request{}, newFailure(KindBusy, sourcePath,
			"an image is already being processed", nil)
	}

	req := Request{
		ID:          uuid.NewString(),
		SourcePath:  sourcePath,
		SubmittedAt: p.now(),
	}

	p.wg.Add(1)
	go p.process(req)

	return req, nil
}

// Wait blocks until background work started so far has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close waits for background work and releases the engine.
func (p *Pipeline) Close() error {
	p.wg.Wait()
	return p.engine.Close()
}

// process is the background unit of work for one accepted request.
//
// A panic anywhere in the unit is converted into a published failure: it is
// reported as a decode error when raised before the engine was called and as
// an engine failure afterwards. Busy is released on every path, after the
// outcome has been published.
func (p *Pipeline) process(req Request) {
	defer p.wg.Done()
	defer p.flight.release()

	log := p.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"path":       req.SourcePath,
	})

	stage := KindDecode
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("panic: %v", r)
			p.fail(log, req, newFailure(stage, req.SourcePath, "unexpected error: "+fmt.Sprint(r), cause))
		}
	}()

	p.notifier.StatusChanged("Processing...", SeverityWarning)

	result, err := p.recognize(req, &stage)
	if err != nil {
		p.fail(log, req, err)
		return
	}

	sidecar := SidecarPath(req.SourcePath)
	if err := WriteText(sidecar, result.Text); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"kind":    KindPersistence,
			"sidecar": sidecar,
		}).Warn("sidecar not written")
	} else {
		result.SidecarPath = sidecar
	}

	log.WithFields(logrus.Fields{
		"fragments":   result.FragmentCount,
		"duration_ms": result.DurationMs,
	}).Info("recognition complete")

	p.notifier.ResultReady(result)
	p.notifier.StatusChanged(
		fmt.Sprintf("Done: %s (%d chars)", stem(req.SourcePath), utf8.RuneCountInString(result.Text)),
		SeveritySuccess)
}

// fail publishes err as the outcome of req.
func (p *Pipeline) fail(log *logrus.Entry, req Request, err error) {
	var failure *Failure
	if !errors.As(err, &failure) {
		failure = newFailure(KindEngineFailure, req.SourcePath, err.Error(), err)
	}
	failure.RequestID = req.ID

	log.WithError(err).WithField("kind", failure.Kind).Warn("recognition failed")
	p.notifier.Failed(*failure)
	p.notifier.StatusChanged("Error: "+failure.Message, SeverityError)
}

// recognize runs the existence check, decode, engine call and join. stage is
// advanced to KindEngineFailure just before the engine is called.
func (p *Pipeline) recognize(req Request, stage *Kind) (Result, error) {
	started := p.now()
	path := req.SourcePath

	if _, err := os.Stat(path); err != nil {
		return Result{}, newFailure(KindNotFound, path, "file not found: "+path, err)
	}

	img, err := p.load(path)
	if err != nil {
		return Result{}, newFailure(KindDecode, path, "cannot read image: "+err.Error(), err)
	}

	thumb := imaging.Thumbnail(img, p.thumbWidth, p.thumbHeight)

	*stage = KindEngineFailure
	fragments, err := p.callEngine(img)
	if err != nil {
		return Result{}, newFailure(KindEngineFailure, path, "recognition failed: "+err.Error(), err)
	}

	return Result{
		RequestID:     req.ID,
		SourcePath:    path,
		Text:          ocr.JoinFragments(fragments),
		FragmentCount: len(fragments),
		DurationMs:    p.now().Sub(started).Milliseconds(),
		Fragments:     fragments,
		Thumbnail:     thumb,
	}, nil
}

// callEngine invokes the engine, converting a panic into an error.
// The returned slice is a private copy.
func (p *Pipeline) callEngine(img image.Image) (fragments []ocr.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	out, err := p.engine.Recognize(img)
	if err != nil {
		return nil, err
	}
	fragments = make([]ocr.Fragment, len(out))
	copy(fragments, out)
	return fragments, nil
}
