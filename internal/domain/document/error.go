package document

import "github.com/cockroachdb/errors"

var (
	ErrNotFound         = errors.New("document not found")
	ErrInvalidID        = errors.New("invalid document id")
	ErrMalformedPayload = errors.New("malformed document payload")
)
