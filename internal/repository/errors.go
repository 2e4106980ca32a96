package repository

import "errors"

// ErrVersionConflict is returned when a versioned update finds the stored
// version differs from the caller's expected version. The caller must reload
// and retry; no merge is attempted.
var ErrVersionConflict = errors.New("ticket version conflict")
