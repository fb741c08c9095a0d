package suggest

import "errors"

// Reasons a trigger yields no session. None of them is a fault.
var (
	ErrNoActiveDocument   = errors.New("suggest: no active document")
	ErrNoMatch            = errors.New("suggest: no link before the cursor")
	ErrInCode             = errors.New("suggest: cursor is inside code")
	ErrUnresolvableTarget = errors.New("suggest: link target does not resolve")
	ErrMissingIndex       = errors.New("suggest: target has no indexable structure")
)

// Failures at render or commit time.
var (
	ErrStaleCoordinate = errors.New("suggest: stored position no longer matches the document")
	ErrPersist         = errors.New("suggest: failed to persist block identifier")
	ErrNoSession       = errors.New("suggest: no pending session for token")
	ErrNoCandidate     = errors.New("suggest: candidate index out of range")
	ErrKindMismatch    = errors.New("suggest: candidate does not belong to the session's anchor kind")
)
