package sentinel

import "errors"

// Sentinel dependency errors. Stores and source clients return these
// (optionally wrapped) so services can translate them into domain errors exactly once.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrUnavailable   = errors.New("unavailable")
	ErrNotConfigured = errors.New("not configured")
)
