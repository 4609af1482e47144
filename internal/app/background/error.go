package background

import "github.com/cockroachdb/errors"

var (
	ErrInvalidPayload  = errors.New("Invalid payload")
	ErrDrawingNotFound = errors.New("No drawing found with id")
)
