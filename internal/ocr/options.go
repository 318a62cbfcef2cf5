package ocr

import "github.com/ironsheep/image-text-extractor/internal/imaging"

// Options configures the Tesseract engine.
type Options struct {
	// TessdataPrefix overrides the directory containing *.traineddata files.
	// Empty uses the Tesseract default (TESSDATA_PREFIX or the install path).
	TessdataPrefix string

	// PageSegMode is the Tesseract page segmentation mode. Zero keeps
	// Tesseract's default of fully automatic segmentation (3).
	PageSegMode int

	// Preprocess selects the filter applied before recognition.
	Preprocess imaging.PreprocessMode

	// Threshold is the binarization cutoff for imaging.PreprocessBinarize.
	Threshold uint8
}
