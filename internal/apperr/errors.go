// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrNotFound covers absent records, itineraries, and barcode matches.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a record that already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrFormat marks input that fails the plausibility pre-check
	// (e.g. a "KML" without a kml root or any Placemark).
	ErrFormat = errors.New("malformed input")
	// ErrParse marks XML that is not well-formed.
	ErrParse = errors.New("parse failure")
	// ErrValidation marks a missing or invalid required field.
	ErrValidation = errors.New("validation failure")
	// ErrTransport marks a network failure talking to an external service.
	ErrTransport = errors.New("transport failure")
	// ErrResourceAccess marks denied access to an exclusive resource such as the camera.
	ErrResourceAccess = errors.New("resource access denied")
	// ErrForbidden marks an operation the authenticated caller may not perform.
	ErrForbidden = errors.New("forbidden")
)
