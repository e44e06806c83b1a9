package redis

import (
	"fmt"

	"github.com/remiges-tech/phonecomplete"
	"github.com/remiges-tech/phonecomplete/sources"
)

// init registers the Redis source. Import this package with a blank identifier
// to build the phone index from Redis:
//
//	import _ "github.com/remiges-tech/phonecomplete/sources/redis"
//
//nolint:gochecknoinits // init() is the idiomatic pattern for source registration
func init() {
	phonecomplete.RegisterSource("redis", NewSource)
}

// NewSource creates a new Redis source from the given configuration.
// It implements SourceFactory and expects config to be of type redis.Config.
func NewSource(config interface{}) (sources.Source, error) {
	redisConfig, ok := config.(Config)
	if !ok {
		return nil, fmt.Errorf("invalid configuration type for Redis source: expected redis.Config, got %T", config)
	}

	return New(redisConfig)
}
