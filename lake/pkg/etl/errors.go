package etl

import "github.com/malbeclabs/sparkify-lake/lake/pkg/duck"

// Failure kinds. Every error returned by the pipeline wraps at most one of
// these; match with errors.Is.
var (
	ErrConfigMissing   = duck.ErrConfigMissing
	ErrInputNotFound   = duck.ErrInputNotFound
	ErrSchemaViolation = duck.ErrSchemaViolation
	ErrWriteFailure    = duck.ErrWriteFailure
)
