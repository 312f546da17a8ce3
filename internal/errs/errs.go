// Package errs defines common error variables used across the application.
package errs

import "errors"

// Request validation errors.
var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrURLRequired indicates that the URL field is missing from the request.
	ErrURLRequired = errors.New("URL is required")
)

// Workspace errors.
var (
	// ErrWorkspaceRoot indicates that the workspace root directory is not usable.
	ErrWorkspaceRoot = errors.New("workspace root not writable")
	// ErrWorkspaceAllocate indicates that a per-request workspace could not be created.
	ErrWorkspaceAllocate = errors.New("workspace allocation failed")
)

// Extraction engine errors.
var (
	// ErrExtraction indicates that the extraction engine reported a failure.
	ErrExtraction = errors.New("extraction failed")
	// ErrArtifactNotFound indicates that the engine reported success but no
	// output file is discoverable in the workspace.
	ErrArtifactNotFound = errors.New("download failed - no files found")
	// ErrBinaryNotFound indicates that a required external binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Service errors.
var (
	// ErrTooManyDownloads indicates that the concurrent download limit was reached.
	ErrTooManyDownloads = errors.New("too many concurrent downloads")
)
