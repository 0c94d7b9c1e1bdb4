// Package common defines shared sentinel errors used across the
// transformation pipeline and the transport layer. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Request validation errors. ErrValidation covers malformed page
	// ranges, unsupported file types and bad operation options.
	ErrValidation        = errors.New("validation error")
	ErrInsufficientInput = errors.New("insufficient input documents")
	ErrEmptyInput        = errors.New("no input documents")

	// Document-level errors.
	ErrEncryptedDocument    = errors.New("document is encrypted")
	ErrNoExtractableContent = errors.New("no extractable content")

	// Quota and ownership errors.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	ErrForbidden     = errors.New("forbidden")

	// Artifact lifecycle errors. An expired artifact is reported
	// distinctly from one that never existed.
	ErrArtifactExpired = errors.New("artifact expired")

	// Storage backend failure. Always surfaced as an internal failure
	// and triggers cleanup of any partial output.
	ErrStorage = errors.New("storage error")

	// Auth errors (invalid or malformed bearer token).
	ErrInvalidToken = errors.New("invalid token")
)
