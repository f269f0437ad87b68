package model

import (
	"errors"
	"fmt"
)

// Sanitization errors.
// Every failure returned by the engine wraps at least one of these sentinels
// so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("input not found")

	// ErrDecode is returned when the container is unreadable or corrupt.
	ErrDecode = errors.New("decode error")

	// ErrNotAnImage is returned when the input is not a recognised image
	// container at all. It wraps ErrDecode.
	ErrNotAnImage = fmt.Errorf("%w: not an image", ErrDecode)

	// ErrUnsupportedMode is returned when the pixel layout of the image
	// cannot be represented by the requested output format.
	ErrUnsupportedMode = errors.New("unsupported pixel mode")

	// ErrEncode is returned when serialization of the pixel buffer fails.
	ErrEncode = errors.New("encode error")

	// ErrTimestamp is returned when the output file timestamps cannot be
	// rewritten. It is never fatal for a sanitize run.
	ErrTimestamp = errors.New("timestamp error")

	// ErrInvalidConfig is returned when a SanitizationConfig is rejected.
	// It is always returned before any file I/O happens.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrResidualMetadata is returned by the verify stage when the output
	// still carries metadata.
	ErrResidualMetadata = errors.New("residual metadata in output")
)
