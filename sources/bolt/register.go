package bolt

import (
	"fmt"

	"github.com/remiges-tech/phonecomplete"
	"github.com/remiges-tech/phonecomplete/sources"
)

// init registers the bbolt source. Import this package with a blank identifier
// to build the phone index from a local database file:
//
//	import _ "github.com/remiges-tech/phonecomplete/sources/bolt"
//
//nolint:gochecknoinits // init() is the idiomatic pattern for source registration
func init() {
	phonecomplete.RegisterSource("bolt", NewSource)
}

// NewSource creates a new bbolt source from the given configuration.
// It implements SourceFactory and expects config to be of type bolt.Config.
func NewSource(config interface{}) (sources.Source, error) {
	boltConfig, ok := config.(Config)
	if !ok {
		return nil, fmt.Errorf("invalid configuration type for bolt source: expected bolt.Config, got %T", config)
	}

	return New(boltConfig)
}
