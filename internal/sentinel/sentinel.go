package sentinel

import "errors"

// Sentinel errors shared by every service. Stores, clients and domain code wrap
// these so handlers can map a failure to a status with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("upstream unavailable")
	ErrInvalidState = errors.New("invalid state")
)
