// Package ocr defines the recognition engine contract used by the extraction
// pipeline and provides a Tesseract implementation of it.
//
// # Engine Contract
//
// An Engine is initialized once with language hints, which is slow (model
// load), and then answers Recognize calls with an ordered slice of Fragments.
// Fragments are returned in reading order: top-to-bottom lines as Tesseract's
// layout analysis reports them. Engines are not required to be safe for
// concurrent Recognize calls; the pipeline never issues more than one at a
// time.
//
// # Tesseract
//
// The Tesseract engine wraps gosseract/v2 and is only available in cgo
// builds. Without cgo, NewTesseract still compiles but Initialize returns
// ErrUnavailable so the pipeline stays in its not-ready state.
//
// Tesseract and the language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-jpn
//   - macOS: brew install tesseract tesseract-lang
//   - Windows: Download from https://github.com/UB-Mannheim/tesseract/wiki
//
// # Language Hints
//
// Hints may be ISO 639-1 codes ("ja", "en") or Tesseract codes ("jpn",
// "eng"). TesseractLanguages maps the former to the latter and passes
// unknown codes through unchanged.
package ocr
