// Package config holds the persisted settings of the text extractor and the
// process-wide logger built from them.
//
// # Settings File
//
// Settings are stored as indented JSON, by default at
// ~/.image-text-extractor/settings.json:
//
//	{
//	  "languages": ["ja", "en"],
//	  "preprocess": "none",
//	  "threshold": 128,
//	  "thumbnailWidth": 280,
//	  "thumbnailHeight": 520,
//	  "fontSize": 11,
//	  "logLevel": "info",
//	  "palette": {"info": "#0071e3", "success": "#34c759", ...}
//	}
//
// A missing file yields DefaultSettings. Fields absent from the file keep
// their defaults, and Normalize replaces invalid values (unknown preprocess
// modes, out-of-range font sizes, unparseable log levels) with defaults
// rather than failing.
//
// # Overrides
//
// ApplyEnv lets IMAGE_OCR_LOG_LEVEL override the configured log level.
// Overrides are applied to the in-memory copy only; writers that persist a
// single field should Load, modify and Save so overrides are not written back.
//
// # Logging
//
// NewLogger returns a logrus logger writing to the given writer (stderr in
// every mode, since stdout carries recognized text or protocol messages).
package config
