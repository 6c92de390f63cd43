package extract

import "errors"

var (
	errMissingFile       = errors.New("file does not exist")
	errUnsupportedFormat = errors.New("unsupported file extension")
	errExtractionEmpty   = errors.New("extraction produced no text")
)
