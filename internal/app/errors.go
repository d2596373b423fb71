package app

import "errors"

// ErrNotFound and related errors describe persistence failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence error")
	ErrNoRepository = errors.New("no repository configured")
)

// ErrKeyConflict reports two actions bound to the same key.
var ErrKeyConflict = errors.New("key conflict")
