// Package sources defines the interface that all order-record sources must implement.
package sources

import (
	"context"
	"errors"
)

// ErrStopScan may be returned by a ScanFunc to end a scan early without error.
var ErrStopScan = errors.New("stop scan")

// Record is a single order record as seen by the index builder.
type Record struct {
	// ID is the record identifier owned by the source. It is carried through
	// to search results untouched.
	ID string

	// Fields holds the requested field values keyed by field name. Missing or
	// null fields are absent.
	Fields map[string]string
}

// ScanOptions contains options for scan operations.
type ScanOptions struct {
	// Fields lists the field names (dotted paths for nested documents) to load.
	Fields []string

	// BatchSize is a hint for how many records to fetch per round trip.
	// Zero means the source default.
	BatchSize int
}

// ScanFunc receives each record of a scan. Returning an error aborts the scan
// and Scan returns that error, except for ErrStopScan.
type ScanFunc func(rec Record) error

// Source defines the interface that all record sources must implement.
// All methods must be safe for concurrent use.
type Source interface {
	// Count returns the number of records a full scan would visit. It is used
	// for progress reporting only and may be approximate.
	Count(ctx context.Context) (int64, error)

	// Scan visits every record once, in any order. A failure of the
	// underlying store aborts the scan with an error.
	Scan(ctx context.Context, options ScanOptions, fn ScanFunc) error

	// Close releases the connection. It is safe to call multiple times.
	Close() error
}
