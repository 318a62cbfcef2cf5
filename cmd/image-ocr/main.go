package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-text-extractor/internal/bridge"
	"github.com/ironsheep/image-text-extractor/internal/config"
	"github.com/ironsheep/image-text-extractor/internal/imaging"
	"github.com/ironsheep/image-text-extractor/internal/intake"
	"github.com/ironsheep/image-text-extractor/internal/ocr"
	"github.com/ironsheep/image-text-extractor/internal/pipeline"
	"github.com/ironsheep/image-text-extractor/internal/presenter"
	"github.com/ironsheep/image-text-extractor/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `image-ocr - extract text from images

Usage:
  image-ocr [options] <image>       Extract text and write <name>_txt.txt
  image-ocr watch [options] <dir>   Extract text from images dropped into dir
  image-ocr serve [options]         JSON-RPC over stdin/stdout for a front-end

Options:
  -config <path>   Settings file (default ~/.image-text-extractor/settings.json)
  -lang <codes>    Comma-separated language hints, e.g. ja,en
  -out <path>      Also save the recognized text to this file
  -quiet           Print only recognized text and errors
  --version, -v    Print version information
  --help, -h       Print this help message

Environment variables:
  IMAGE_OCR_LOG_LEVEL=debug    Override the configured log level
`

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-ocr %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Print(usage)
			return
		}
	}

	os.Exit(run(os.Args[1:]))
}

type cliOptions struct {
	configPath string
	lang       string
	out        string
	quiet      bool
}

func parseFlags(mode string, args []string) (cliOptions, []string, error) {
	var opts cliOptions
	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	fs.StringVar(&opts.configPath, "config", config.DefaultPath(), "settings file")
	fs.StringVar(&opts.lang, "lang", "", "comma-separated language hints")
	fs.StringVar(&opts.out, "out", "", "also save text to this file")
	fs.BoolVar(&opts.quiet, "quiet", false, "print only text and errors")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	return opts, fs.Args(), nil
}

func loadSettings(store config.Store, opts cliOptions) (config.Settings, error) {
	settings, err := store.Load()
	if err != nil {
		return config.Settings{}, err
	}
	if opts.lang != "" {
		settings.Languages = strings.Split(opts.lang, ",")
	}
	return config.ApplyEnv(settings), nil
}

// app wires the engine, pipeline and dispatcher for one process.
type app struct {
	store    config.Store
	settings config.Settings
	log      *logrus.Logger
	engine   *ocr.Tesseract
	events   *pipeline.Dispatcher
	pipe     *pipeline.Pipeline
}

func newApp(store config.Store, settings config.Settings, logger *logrus.Logger) (*app, error) {
	mode, err := imaging.ParsePreprocessMode(settings.Preprocess)
	if err != nil {
		return nil, err
	}

	engine := ocr.NewTesseract(ocr.Options{
		TessdataPrefix: settings.TessdataPrefix,
		PageSegMode:    settings.PageSegMode,
		Preprocess:     mode,
		Threshold:      settings.Threshold,
	})
	events := pipeline.NewDispatcher()
	pipe := pipeline.New(engine, events,
		pipeline.WithLogger(logrus.NewEntry(logger)),
		pipeline.WithThumbnailSize(settings.ThumbnailWidth, settings.ThumbnailHeight),
		pipeline.WithBusyObserver(func(busy bool) {
			logger.WithField("busy", busy).Debug("busy state changed")
		}),
	)

	return &app{
		store:    store,
		settings: settings,
		log:      logger,
		engine:   engine,
		events:   events,
		pipe:     pipe,
	}, nil
}

func (a *app) console(quiet bool) *presenter.Console {
	return presenter.NewConsole(os.Stdout, os.Stderr, session.New(a.settings.FontSize),
		presenter.WithPalette(a.settings.Palette),
		presenter.WithQuiet(quiet))
}

func run(args []string) int {
	mode := "extract"
	if len(args) > 0 && (args[0] == "watch" || args[0] == "serve") {
		mode, args = args[0], args[1:]
	}

	opts, rest, err := parseFlags(mode, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	store := config.NewJSONStore(opts.configPath)
	settings, err := loadSettings(store, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-ocr: %v\n", err)
		return 1
	}

	// Logging goes to stderr; stdout carries text or protocol messages.
	logger := config.NewLogger(settings, os.Stderr)
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
		"mode":    mode,
		"config":  store.Path(),
	}).Debug("starting image-ocr")

	a, err := newApp(store, settings, logger)
	if err != nil {
		logger.WithError(err).Error("invalid settings")
		return 1
	}
	defer func() {
		if err := a.pipe.Close(); err != nil {
			logger.WithError(err).Warn("engine close failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "watch":
		if len(rest) != 1 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return a.watch(ctx, rest[0], opts)
	case "serve":
		return a.serve(ctx)
	default:
		if len(rest) == 0 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return a.extract(ctx, rest, opts)
	}
}

// resolveTarget picks the image to recognize from the positional
// arguments. A single argument starting with a brace or a quote is a drop
// payload; otherwise the arguments are paths already split by the shell and
// the first one is used.
func resolveTarget(args []string) (string, error) {
	if len(args) == 0 {
		return "", intake.ErrEmptyDrop
	}
	target := args[0]
	if len(args) == 1 && (strings.HasPrefix(target, "{") || strings.HasPrefix(target, "\"")) {
		return intake.FirstDropped(target)
	}
	return target, nil
}

// extract recognizes a single image, or the first file of a drop payload.
func (a *app) extract(ctx context.Context, args []string, opts cliOptions) int {
	con := a.console(opts.quiet)

	path, err := resolveTarget(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-ocr: %v\n", err)
		return 2
	}

	initErr := a.pipe.Initialize(a.settings.Languages)
	con.Render(a.events.Drain())
	if initErr != nil {
		return 1
	}
	a.log.WithField("tesseract", a.engine.Version()).Debug("engine version")

	if _, err := a.pipe.Submit(path); err != nil {
		fmt.Fprintf(os.Stderr, "image-ocr: %v\n", err)
		return 1
	}

	done := make(chan struct{})
	go func() {
		a.pipe.Wait()
		close(done)
	}()
	if err := con.Run(ctx, a.events, done); err != nil {
		return 130
	}

	snap := con.Session().Snapshot()
	if snap.LastError != nil {
		return 1
	}

	if opts.out != "" {
		if err := con.Session().SaveAs(opts.out); err != nil {
			if errors.Is(err, session.ErrNoText) {
				a.log.WithField("path", opts.out).Warn("no text to save")
				return 0
			}
			a.log.WithError(err).WithField("path", opts.out).Error("save failed")
			return 1
		}
	}
	return 0
}

// watch initializes the engine in the background and submits images that
// appear in dir until interrupted.
func (a *app) watch(ctx context.Context, dir string, opts cliOptions) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	con := a.console(opts.quiet)
	a.pipe.Start(a.settings.Languages)

	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		_ = con.Run(ctx, a.events, nil)
	}()

	df := intake.NewDropFolder(dir, a.pipe, logrus.NewEntry(a.log))
	err := df.Run(ctx)
	if err != nil {
		a.log.WithError(err).Error("drop folder stopped")
	}

	a.pipe.Wait()
	cancel()
	<-consoleDone
	if err != nil {
		return 1
	}
	return 0
}

// serve runs the stdio bridge for a front-end process.
func (a *app) serve(ctx context.Context) int {
	a.pipe.Start(a.settings.Languages)

	srv := bridge.New(a.pipe, a.events, session.New(a.settings.FontSize),
		bridge.WithLogger(logrus.NewEntry(a.log)),
		bridge.WithVersion(Version),
		bridge.WithSettingsStore(a.store))

	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		a.log.WithError(err).Error("bridge error")
		return 1
	}
	return 0
}
