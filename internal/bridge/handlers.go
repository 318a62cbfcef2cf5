package bridge

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ironsheep/image-text-extractor/internal/imaging"
	"github.com/ironsheep/image-text-extractor/internal/intake"
	"github.com/ironsheep/image-text-extractor/internal/ocr"
	"github.com/ironsheep/image-text-extractor/internal/pipeline"
	"github.com/ironsheep/image-text-extractor/internal/session"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32000
	codeBusy           = -32001
	codeEngineNotReady = -32002
	codeNoText         = -32003
)

// Notification methods.
const (
	NotifyStatusChanged = "ocr/statusChanged"
	NotifyResultReady   = "ocr/resultReady"
	NotifyFailure       = "ocr/failure"
)

func (s *Server) result(id interface{}, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *Response {
	e := &Error{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: e}
}

// decodeParams unmarshals params into v. Missing params leave v unchanged.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// === Recognition ===

type submitParams struct {
	Path string `json:"path"`
	Drop string `json:"drop"`
}

type submitResult struct {
	RequestID   string    `json:"requestId"`
	SourcePath  string    `json:"sourcePath"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (s *Server) handleSubmit(req *Request) *Response {
	var params submitParams
	if err := decodeParams(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	path := params.Path
	if path == "" && params.Drop != "" {
		first, err := intake.FirstDropped(params.Drop)
		if err != nil {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		path = first
	}
	if path == "" {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", "path or drop is required")
	}

	accepted, err := s.pipe.Submit(path)
	if err != nil {
		var failure *pipeline.Failure
		if errors.As(err, &failure) {
			switch failure.Kind {
			case pipeline.KindBusy:
				return s.errorResponse(req.ID, codeBusy, failure.Message, string(failure.Kind))
			case pipeline.KindEngineNotReady:
				return s.errorResponse(req.ID, codeEngineNotReady, failure.Message, string(failure.Kind))
			}
		}
		return s.errorResponse(req.ID, codeInternal, "Submit failed", err.Error())
	}

	s.log.WithField("request_id", accepted.ID).WithField("path", path).Debug("request accepted")
	return s.result(req.ID, submitResult{
		RequestID:   accepted.ID,
		SourcePath:  accepted.SourcePath,
		SubmittedAt: accepted.SubmittedAt,
	})
}

type stateResult struct {
	session.Snapshot
	Ready bool `json:"ready"`
	Busy  bool `json:"busy"`
}

func (s *Server) handleState(req *Request) *Response {
	return s.result(req.ID, stateResult{
		Snapshot: s.session.Snapshot(),
		Ready:    s.pipe.Ready(),
		Busy:     s.pipe.Busy(),
	})
}

// === Session ===

func (s *Server) handleClear(req *Request) *Response {
	s.session.Clear()
	return s.result(req.ID, s.session.Snapshot())
}

func (s *Server) handleCopy(req *Request) *Response {
	text, err := s.session.Copy()
	if err != nil {
		return s.errorResponse(req.ID, codeNoText, "No text to copy", "")
	}
	return s.result(req.ID, map[string]interface{}{"text": text})
}

type saveParams struct {
	Path string `json:"path"`
}

func (s *Server) handleSave(req *Request) *Response {
	var params saveParams
	if err := decodeParams(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if params.Path == "" {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", "path is required")
	}

	if err := s.session.SaveAs(params.Path); err != nil {
		if errors.Is(err, session.ErrNoText) {
			return s.errorResponse(req.ID, codeNoText, "No text to save", "")
		}
		s.log.WithError(err).WithField("path", params.Path).Warn("save failed")
		return s.errorResponse(req.ID, codeInternal, "Save failed", err.Error())
	}
	return s.result(req.ID, map[string]interface{}{"path": params.Path})
}

type fontSizeParams struct {
	Size *int `json:"size"`
}

func (s *Server) handleFontSize(req *Request) *Response {
	var params fontSizeParams
	if err := decodeParams(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if params.Size == nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", "size is required")
	}
	size := s.session.SetFontSize(*params.Size)
	s.persistFontSize(size)
	return s.result(req.ID, map[string]interface{}{"fontSize": size})
}

// persistFontSize records size in the settings file. The file is reloaded
// first so that command-line and environment overrides are not written back.
// Failures are logged; the change still applies to the running session.
func (s *Server) persistFontSize(size int) {
	if s.store == nil {
		return
	}
	settings, err := s.store.Load()
	if err != nil {
		s.log.WithError(err).Warn("font size not saved: settings unreadable")
		return
	}
	settings.FontSize = size
	if err := s.store.Save(settings); err != nil {
		s.log.WithError(err).Warn("font size not saved")
	}
}

// === Notifications ===

type resultParams struct {
	RequestID     string                `json:"requestId"`
	SourcePath    string                `json:"sourcePath"`
	Text          string                `json:"text"`
	FragmentCount int                   `json:"fragmentCount"`
	DurationMs    int64                 `json:"durationMs"`
	Fragments     []ocr.Fragment        `json:"fragments"`
	SidecarPath   string                `json:"sidecarPath,omitempty"`
	Thumbnail     *imaging.EncodedImage `json:"thumbnail,omitempty"`
}

// notification converts a pipeline event into its wire form.
func (s *Server) notification(ev pipeline.Event) *Notification {
	switch ev.Type {
	case pipeline.EventTypeStatus:
		if ev.Status == nil {
			return nil
		}
		return &Notification{JSONRPC: "2.0", Method: NotifyStatusChanged, Params: ev.Status}

	case pipeline.EventTypeResult:
		r := ev.Result
		if r == nil {
			return nil
		}
		params := resultParams{
			RequestID:     r.RequestID,
			SourcePath:    r.SourcePath,
			Text:          r.Text,
			FragmentCount: r.FragmentCount,
			DurationMs:    r.DurationMs,
			Fragments:     r.Fragments,
			SidecarPath:   r.SidecarPath,
		}
		if r.Thumbnail != nil {
			thumb, err := imaging.EncodePNG(r.Thumbnail)
			if err != nil {
				s.log.WithError(err).WithField("request_id", r.RequestID).Warn("thumbnail not encoded")
			} else {
				params.Thumbnail = thumb
			}
		}
		return &Notification{JSONRPC: "2.0", Method: NotifyResultReady, Params: params}

	case pipeline.EventTypeFailure:
		if ev.Failure == nil {
			return nil
		}
		return &Notification{JSONRPC: "2.0", Method: NotifyFailure, Params: ev.Failure}
	}
	return nil
}
