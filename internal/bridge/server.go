package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-text-extractor/internal/config"
	"github.com/ironsheep/image-text-extractor/internal/pipeline"
	"github.com/ironsheep/image-text-extractor/internal/session"
)

// Pipeline is the part of *pipeline.Pipeline the bridge drives.
type Pipeline interface {
	Submit(path string) (pipeline.Request, error)
	Ready() bool
	Busy() bool
}

// Source is the event queue the bridge forwards as notifications.
type Source interface {
	Ready() <-chan struct{}
	Drain() []pipeline.Event
}

// Server handles the stdio protocol.
type Server struct {
	pipe    Pipeline
	events  Source
	session *session.Session
	store   config.Store
	log     *logrus.Entry
	version string
}

// Request represents an incoming JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents a JSON-RPC error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Notification represents an outgoing notification (no ID).
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the log entry.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) { s.log = log }
}

// WithVersion sets the version reported by initialize.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithSettingsStore persists font size changes to store.
func WithSettingsStore(store config.Store) Option {
	return func(s *Server) { s.store = store }
}

// New creates a bridge server.
func New(pipe Pipeline, events Source, sess *session.Session, opts ...Option) *Server {
	s := &Server{
		pipe:    pipe,
		events:  events,
		session: sess,
		log:     logrus.NewEntry(logrus.StandardLogger()),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "bridge")
	return s
}

type scanResult struct {
	line []byte
	err  error
}

// Run reads requests from in and writes responses and notifications to out
// until in is exhausted or ctx is canceled. Pending events are flushed
// before returning.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	encoder := json.NewEncoder(out)

	lines := make(chan scanResult)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		// Increase buffer size for large requests
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- scanResult{line: line}:
			case <-stop:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- scanResult{err: err}:
			case <-stop:
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.flush(encoder)
			return ctx.Err()

		case <-s.events.Ready():
			s.flush(encoder)

		case res, ok := <-lines:
			if !ok {
				s.flush(encoder)
				return nil
			}
			if res.err != nil {
				s.flush(encoder)
				return fmt.Errorf("scanner error: %w", res.err)
			}
			s.handleLine(encoder, res.line)
		}
	}
}

// handleLine decodes and answers one request line. Requests without an id
// are JSON-RPC notifications: they are handled but never answered.
func (s *Server) handleLine(encoder *json.Encoder, line []byte) {
	if len(line) == 0 {
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.WithError(err).Warn("failed to parse request")
		s.write(encoder, s.errorResponse(nil, codeParseError, "Parse error", err.Error()))
		return
	}

	resp := s.handleRequest(&req)
	if req.ID == nil {
		// Client notifications get no response.
		return
	}
	s.write(encoder, resp)
}

// flush forwards every pending pipeline event as a notification.
func (s *Server) flush(encoder *json.Encoder) {
	for _, ev := range s.events.Drain() {
		s.session.Apply(ev)
		if n := s.notification(ev); n != nil {
			s.write(encoder, n)
		}
	}
}

func (s *Server) write(encoder *json.Encoder, v interface{}) {
	if err := encoder.Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode message")
	}
}

// handleRequest routes requests to appropriate handlers.
func (s *Server) handleRequest(req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return s.result(req.ID, map[string]interface{}{})
	case "ocr/submit":
		return s.handleSubmit(req)
	case "ocr/state":
		return s.handleState(req)
	case "session/clear":
		return s.handleClear(req)
	case "session/copy":
		return s.handleCopy(req)
	case "session/save":
		return s.handleSave(req)
	case "session/fontSize":
		return s.handleFontSize(req)
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    codeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request.
func (s *Server) handleInitialize(req *Request) *Response {
	return s.result(req.ID, map[string]interface{}{
		"serverInfo": map[string]interface{}{
			"name":    "image-text-extractor",
			"version": s.version,
		},
		"methods": GetMethodDefinitions(),
		"ready":   s.pipe.Ready(),
	})
}
