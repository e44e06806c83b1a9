package phonecomplete

import "errors"

// Sentinel errors for lifecycle and validation failures.

var (
	// ErrSourceNotFound is returned when a record source is not registered.
	// Usually means you forgot to import the source package with an underscore.
	ErrSourceNotFound = errors.New("record source not found")

	// ErrNotReady is returned by Search while no index has been published yet.
	// It never means "no matches"; retry once Healthcheck reports StateReady.
	ErrNotReady = errors.New("index not ready")

	// ErrBuildInProgress is returned by Rebuild while another build is running.
	ErrBuildInProgress = errors.New("index build in progress")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("service closed")

	// ErrQueryTooLong is returned when the cleaned query exceeds MaxQueryLength.
	ErrQueryTooLong = errors.New("query too long")
)
