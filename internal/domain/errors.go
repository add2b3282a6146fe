package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrInputMissing        = errors.New("no input text or file provided")
	ErrOCRUnavailable      = errors.New("ocr engine is not configured")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrHistoryDisabled     = errors.New("extraction history is disabled")
)
