// Package elasticsearch implements the record Source interface over an
// Elasticsearch index of order documents.
package elasticsearch

import "time"

// Config holds Elasticsearch connection parameters and source-specific options.
type Config struct {
	// URLs is the list of Elasticsearch node URLs.
	URLs []string

	// Index is the name of the Elasticsearch index holding order documents.
	// Default: "orders"
	Index string

	// Username for basic authentication.
	Username string

	// Password for basic authentication.
	Password string

	// CloudID for connecting to Elastic Cloud.
	CloudID string

	// APIKey for API key authentication (alternative to username/password).
	APIKey string

	// RefreshPolicy controls when documents written with Put are visible to scans.
	// Options: "true" (immediate), "false" (default), "wait_for" (wait for next refresh).
	RefreshPolicy string

	// BatchSize is the scroll page size used when the scan has no batch size.
	// Default: 1000
	BatchSize int

	// ScrollKeepAlive is how long the scroll context is kept between pages.
	// Default: 1m
	ScrollKeepAlive time.Duration

	// NumberOfShards configures the number of primary shards for the index.
	// This setting is ONLY used when the index is automatically created by the source.
	// If the index already exists, this setting is ignored.
	// Default: 1
	NumberOfShards int

	// NumberOfReplicas configures the number of replica shards.
	// This setting is ONLY used when the index is automatically created by the source.
	// If the index already exists, this setting is ignored.
	// Default: 0
	NumberOfReplicas int
}

// setDefaults applies default values to config fields.
func (c *Config) setDefaults() {
	if c.Index == "" {
		c.Index = "orders"
	}
	if c.RefreshPolicy == "" {
		c.RefreshPolicy = "false"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.ScrollKeepAlive <= 0 {
		c.ScrollKeepAlive = time.Minute
	}
	if c.NumberOfShards == 0 {
		c.NumberOfShards = 1
	}
}
