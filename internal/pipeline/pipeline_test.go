package pipeline

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-text-extractor/internal/ocr"
)

// stubEngine is a scripted recognition engine.
type stubEngine struct {
	initErr   error
	fragments []ocr.Fragment
	err       error
	panicWith interface{}

	// block, when set, makes Recognize wait until it is closed.
	block   chan struct{}
	entered chan struct{}

	initCalls atomic.Int32
	calls     atomic.Int32
	closed    atomic.Bool
}

func (e *stubEngine) Initialize(languages []string) error {
	e.initCalls.Add(1)
	return e.initErr
}

func (e *stubEngine) Recognize(img image.Image) ([]ocr.Fragment, error) {
	e.calls.Add(1)
	if e.entered != nil {
		e.entered <- struct{}{}
	}
	if e.block != nil {
		<-e.block
	}
	if e.panicWith != nil {
		panic(e.panicWith)
	}
	return e.fragments, e.err
}

func (e *stubEngine) Close() error {
	e.closed.Store(true)
	return nil
}

func fragments(texts ...string) []ocr.Fragment {
	out := make([]ocr.Fragment, len(texts))
	for i, t := range texts {
		out[i] = ocr.Fragment{Text: t, Confidence: 0.9}
	}
	return out
}

// writePNG writes a small PNG into dir and returns its path.
func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// busyRecorder captures busy transitions.
type busyRecorder struct {
	mu          sync.Mutex
	transitions []bool
}

func (r *busyRecorder) observe(busy bool) {
	r.mu.Lock()
	r.transitions = append(r.transitions, busy)
	r.mu.Unlock()
}

func (r *busyRecorder) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.transitions...)
}

type harness struct {
	engine     *stubEngine
	dispatcher *Dispatcher
	pipeline   *Pipeline
	busy       *busyRecorder
	hook       *test.Hook
}

func newHarness(t *testing.T, engine *stubEngine, initialize bool, opts ...Option) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		engine:     engine,
		dispatcher: NewDispatcher(),
		busy:       &busyRecorder{},
		hook:       hook,
	}
	opts = append([]Option{
		WithLogger(logrus.NewEntry(logger)),
		WithBusyObserver(h.busy.observe),
	}, opts...)
	h.pipeline = New(engine, h.dispatcher, opts...)
	if initialize {
		require.NoError(t, h.pipeline.Initialize([]string{"en"}))
		h.dispatcher.Drain()
	}
	return h
}

func (h *harness) events(eventType EventType) []Event {
	var out []Event
	for _, ev := range h.dispatcher.Drain() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestSubmit_EngineNotReady(t *testing.T) {
	h := newHarness(t, &stubEngine{fragments: fragments("A")}, false)
	path := writePNG(t, t.TempDir(), "scan.png")

	_, err := h.pipeline.Submit(path)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineNotReady))
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindEngineNotReady, kind)
	assert.False(t, h.pipeline.Busy())
	assert.Empty(t, h.busy.get(), "busy must never be set for a not-ready engine")
	assert.Equal(t, int32(0), h.engine.calls.Load())
}

func TestSubmit_Success(t *testing.T) {
	h := newHarness(t, &stubEngine{fragments: fragments("A", "B")}, true)
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png")

	req, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, path, req.SourcePath)
	assert.False(t, req.SubmittedAt.IsZero())

	h.pipeline.Wait()

	all := h.dispatcher.Drain()
	require.Len(t, all, 3)
	assert.Equal(t, EventTypeStatus, all[0].Type)
	assert.Equal(t, SeverityWarning, all[0].Status.Severity)
	assert.Equal(t, EventTypeResult, all[1].Type)
	assert.Equal(t, EventTypeStatus, all[2].Type)
	assert.Equal(t, SeveritySuccess, all[2].Status.Severity)
	assert.Equal(t, "Done: scan (3 chars)", all[2].Status.Message)

	res := all[1].Result
	assert.Equal(t, "A\nB", res.Text)
	assert.Equal(t, 2, res.FragmentCount)
	assert.Equal(t, req.ID, res.RequestID)
	assert.Equal(t, path, res.SourcePath)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	assert.NotNil(t, res.Thumbnail)

	sidecar := filepath.Join(dir, "scan_txt.txt")
	assert.Equal(t, sidecar, res.SidecarPath)
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Equal(t, "A\nB", string(data))

	assert.False(t, h.pipeline.Busy())
	assert.Equal(t, []bool{true, false}, h.busy.get())
}

func TestSubmit_BusyRejectsWithoutDisturbingInFlight(t *testing.T) {
	engine := &stubEngine{
		fragments: fragments("first"),
		block:     make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	h := newHarness(t, engine, true)
	dir := t.TempDir()
	first := writePNG(t, dir, "first.png")
	second := writePNG(t, dir, "second.png")

	_, err := h.pipeline.Submit(first)
	require.NoError(t, err)

	select {
	case <-engine.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("engine was never called")
	}
	assert.True(t, h.pipeline.Busy())

	for i := 0; i < 3; i++ {
		_, err = h.pipeline.Submit(second)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBusy))
	}

	close(engine.block)
	h.pipeline.Wait()

	results := h.events(EventTypeResult)
	require.Len(t, results, 1)
	assert.Equal(t, first, results[0].Result.SourcePath)
	assert.Equal(t, "first", results[0].Result.Text)
	assert.Equal(t, int32(1), engine.calls.Load())

	_, err = os.Stat(filepath.Join(dir, "second_txt.txt"))
	assert.True(t, os.IsNotExist(err), "rejected request must not write a sidecar")
	assert.Equal(t, []bool{true, false}, h.busy.get())
}

func TestSubmit_NotFound(t *testing.T) {
	h := newHarness(t, &stubEngine{fragments: fragments("A")}, true)
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.png")

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err, "existence is checked in the background")
	h.pipeline.Wait()

	failures := h.events(EventTypeFailure)
	require.Len(t, failures, 1)
	assert.Equal(t, KindNotFound, failures[0].Failure.Kind)
	assert.Equal(t, path, failures[0].Failure.SourcePath)
	assert.NotEmpty(t, failures[0].Failure.RequestID)

	_, err = os.Stat(filepath.Join(dir, "missing_txt.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, int32(0), h.engine.calls.Load())
	assert.False(t, h.pipeline.Busy())
}

func TestSubmit_DecodeError(t *testing.T) {
	h := newHarness(t, &stubEngine{fragments: fragments("A")}, true)
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()

	all := h.dispatcher.Drain()
	var failures []*Failure
	var last Event
	for _, ev := range all {
		if ev.Type == EventTypeFailure {
			failures = append(failures, ev.Failure)
		}
		last = ev
	}
	require.Len(t, failures, 1)
	assert.Equal(t, KindDecode, failures[0].Kind)
	assert.True(t, errors.Is(failures[0], ErrDecode))
	assert.Equal(t, SeverityError, last.Status.Severity)

	_, err = os.Stat(filepath.Join(dir, "corrupt_txt.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.False(t, h.pipeline.Busy())
}

func TestSubmit_EngineErrorReleasesBusy(t *testing.T) {
	engine := &stubEngine{err: errors.New("model exploded")}
	h := newHarness(t, engine, true)
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png")

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()

	failures := h.events(EventTypeFailure)
	require.Len(t, failures, 1)
	assert.Equal(t, KindEngineFailure, failures[0].Failure.Kind)
	assert.Contains(t, failures[0].Failure.Message, "model exploded")
	assert.False(t, h.pipeline.Busy())
	assert.Equal(t, []bool{true, false}, h.busy.get())

	_, err = os.Stat(filepath.Join(dir, "scan_txt.txt"))
	assert.True(t, os.IsNotExist(err))

	// The next submission is accepted.
	engine.err = nil
	engine.fragments = fragments("ok")
	_, err = h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()
	assert.Len(t, h.events(EventTypeResult), 1)
	assert.Equal(t, []bool{true, false, true, false}, h.busy.get())
}

func TestSubmit_EnginePanicReleasesBusy(t *testing.T) {
	h := newHarness(t, &stubEngine{panicWith: "segfault in model"}, true)
	path := writePNG(t, t.TempDir(), "scan.png")

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()

	failures := h.events(EventTypeFailure)
	require.Len(t, failures, 1)
	assert.Equal(t, KindEngineFailure, failures[0].Failure.Kind)
	assert.Contains(t, failures[0].Failure.Message, "segfault in model")
	assert.False(t, h.pipeline.Busy())
	assert.Equal(t, []bool{true, false}, h.busy.get())
}

func TestSubmit_LoaderPanicReleasesBusy(t *testing.T) {
	engine := &stubEngine{fragments: fragments("A")}
	h := newHarness(t, engine, true, WithLoader(func(string) (image.Image, error) {
		panic("decoder bug")
	}))
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png")

	req, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()

	all := h.dispatcher.Drain()
	require.Len(t, all, 3)
	assert.Equal(t, EventTypeFailure, all[1].Type)
	assert.Equal(t, KindDecode, all[1].Failure.Kind)
	assert.Equal(t, req.ID, all[1].Failure.RequestID)
	assert.Contains(t, all[1].Failure.Message, "decoder bug")
	assert.Equal(t, SeverityError, all[2].Status.Severity)
	assert.Equal(t, "Error: "+all[1].Failure.Message, all[2].Status.Message)

	assert.Equal(t, int32(0), engine.calls.Load())
	assert.NoFileExists(t, filepath.Join(dir, "scan_txt.txt"))
	assert.False(t, h.pipeline.Busy())
	assert.Equal(t, []bool{true, false}, h.busy.get())

	// The pipeline keeps accepting work.
	_, err = h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()
}

func TestSubmit_PersistenceFailureStillPublishesResult(t *testing.T) {
	h := newHarness(t, &stubEngine{fragments: fragments("A", "B")}, true)
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png")

	// A directory in the sidecar's place makes the write fail even as root.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "scan_txt.txt"), 0o755))

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()

	all := h.dispatcher.Drain()
	var results []*Result
	for _, ev := range all {
		assert.NotEqual(t, EventTypeFailure, ev.Type, "persistence failure must not be surfaced")
		if ev.Type == EventTypeResult {
			results = append(results, ev.Result)
		}
	}
	require.Len(t, results, 1)
	assert.Equal(t, "A\nB", results[0].Text)
	assert.Empty(t, results[0].SidecarPath)

	var logged bool
	for _, entry := range h.hook.AllEntries() {
		if entry.Data["kind"] == KindPersistence {
			logged = true
			assert.Equal(t, logrus.WarnLevel, entry.Level)
		}
	}
	assert.True(t, logged, "persistence failure should be logged")
	assert.False(t, h.pipeline.Busy())
}

func TestSubmit_SameImageTwiceOverwritesSidecar(t *testing.T) {
	h := newHarness(t, &stubEngine{fragments: fragments("line one", "line two")}, true)
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png")
	sidecar := filepath.Join(dir, "scan_txt.txt")

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()
	first, err := os.ReadFile(sidecar)
	require.NoError(t, err)

	_, err = h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()
	second, err := os.ReadFile(sidecar)
	require.NoError(t, err)

	assert.Equal(t, "line one\nline two", string(first))
	assert.Equal(t, first, second)
}

func TestSubmit_EmptyRecognition(t *testing.T) {
	h := newHarness(t, &stubEngine{}, true)
	dir := t.TempDir()
	path := writePNG(t, dir, "blank.png")

	_, err := h.pipeline.Submit(path)
	require.NoError(t, err)
	h.pipeline.Wait()

	results := h.events(EventTypeResult)
	require.Len(t, results, 1)
	assert.Equal(t, "", results[0].Result.Text)
	assert.Equal(t, 0, results[0].Result.FragmentCount)

	data, err := os.ReadFile(filepath.Join(dir, "blank_txt.txt"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSubmit_ConcurrentCallersOnlyOneAccepted(t *testing.T) {
	engine := &stubEngine{fragments: fragments("x"), block: make(chan struct{})}
	h := newHarness(t, engine, true)
	path := writePNG(t, t.TempDir(), "scan.png")

	var accepted, busy atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.pipeline.Submit(path); err == nil {
				accepted.Add(1)
			} else if errors.Is(err, ErrBusy) {
				busy.Add(1)
			}
		}()
	}
	wg.Wait()
	close(engine.block)
	h.pipeline.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(19), busy.Load())
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestInitialize_FailureThenRetry(t *testing.T) {
	engine := &stubEngine{initErr: errors.New("no traineddata")}
	h := newHarness(t, engine, false)

	err := h.pipeline.Initialize([]string{"ja"})
	require.Error(t, err)
	assert.False(t, h.pipeline.Ready())

	statuses := h.events(EventTypeStatus)
	require.NotEmpty(t, statuses)
	assert.Equal(t, SeverityError, statuses[len(statuses)-1].Status.Severity)

	_, err = h.pipeline.Submit(writePNG(t, t.TempDir(), "scan.png"))
	assert.True(t, errors.Is(err, ErrEngineNotReady))

	engine.initErr = nil
	require.NoError(t, h.pipeline.Initialize([]string{"ja"}))
	assert.True(t, h.pipeline.Ready())

	// Further calls do not reinitialize.
	require.NoError(t, h.pipeline.Initialize([]string{"ja"}))
	assert.Equal(t, int32(2), engine.initCalls.Load())
}

func TestStart_InitializesInBackground(t *testing.T) {
	h := newHarness(t, &stubEngine{}, false)

	h.pipeline.Start([]string{"en"})
	h.pipeline.Wait()

	assert.True(t, h.pipeline.Ready())
	statuses := h.events(EventTypeStatus)
	require.Len(t, statuses, 2)
	assert.Equal(t, "Ready", statuses[1].Status.Message)
}

func TestClose_ReleasesEngine(t *testing.T) {
	h := newHarness(t, &stubEngine{}, true)
	require.NoError(t, h.pipeline.Close())
	assert.True(t, h.engine.closed.Load())
}

func TestWithLoader(t *testing.T) {
	engine := &stubEngine{fragments: fragments("A")}
	loaded := make(chan string, 1)
	p := New(engine, NewDispatcher(), WithLoader(func(path string) (image.Image, error) {
		loaded <- path
		return image.NewGray(image.Rect(0, 0, 4, 4)), nil
	}))
	require.NoError(t, p.Initialize(nil))

	path := writePNG(t, t.TempDir(), "scan.png")
	_, err := p.Submit(path)
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, path, <-loaded)
}
