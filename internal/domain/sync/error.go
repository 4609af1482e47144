package sync

import "github.com/cockroachdb/errors"

var (
	ErrNotConfigured   = errors.New("remote provider is not configured")
	ErrUnauthenticated = errors.New("remote provider rejected the configured credentials")
	ErrConflict        = errors.New("remote object changed since it was read")
	ErrRemoteNotFound  = errors.New("remote object not found")
	ErrNoConflict      = errors.New("no pending conflict for document")
)
