package domain

import "errors"

// ============================================================================
// Validation Errors
// ============================================================================

var (
	ErrMissingTarget     = errors.New("Missing object_name or sub_object_name")
	ErrMissingObjectName = errors.New("object_name is required")
	ErrUnauthorized      = errors.New("Unauthorized")
)

// ============================================================================
// Not Found Errors
// ============================================================================

var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrSubObjectNotFound = errors.New("sub-object not found")
)
