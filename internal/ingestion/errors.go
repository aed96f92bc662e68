package ingestion

import "errors"

// ErrContentExtractionFailed is returned when content extraction fails
var ErrContentExtractionFailed = errors.New("content extraction failed")
