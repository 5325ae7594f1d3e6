package internalerr

import "errors"

// Sentinel errors for the failure kinds a document or run can hit.
var (
	ErrDocumentRead  = errors.New("document read failed")
	ErrDocumentParse = errors.New("document parse failed")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotFound      = errors.New("not found")
)
