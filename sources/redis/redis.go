// Package redis implements the record Source interface over Redis hashes.
// Each order record is stored as one hash at KeyPrefix+ID whose fields are
// the record fields.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/remiges-tech/phonecomplete/sources"
)

const (
	// defaultKeyPrefix is the key prefix of order hashes when none is configured.
	defaultKeyPrefix = "order:"

	// defaultScanCount is the SCAN COUNT hint when none is configured.
	defaultScanCount = 500

	// matchAll is appended to the key prefix to form the SCAN MATCH pattern.
	matchAll = "*"
)

// Source implements sources.Source using Redis.
// All methods are safe for concurrent use.
type Source struct {
	client    *redis.Client
	keyPrefix string
	scanCount int
}

// Config holds Redis connection parameters.
type Config struct {
	// Addr is the Redis server address in the format "host:port".
	Addr string

	// Password is the Redis password (empty string for no password).
	Password string

	// DB is the Redis database number (0-15, default is 0).
	// Redis Cluster only supports DB 0.
	DB int

	// KeyPrefix selects the order hashes. Default: "order:".
	KeyPrefix string

	// ScanCount is the SCAN COUNT hint used when the scan has no batch size.
	// Default: 500.
	ScanCount int
}

// New creates a new Redis source with the given configuration.
// It establishes a connection to Redis and verifies connectivity with a PING command.
func New(config Config) (*Source, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password, // pragma: allowlist secret
		DB:       config.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	scanCount := config.ScanCount
	if scanCount <= 0 {
		scanCount = defaultScanCount
	}

	return &Source{
		client:    client,
		keyPrefix: keyPrefix,
		scanCount: scanCount,
	}, nil
}

// Count returns the number of order hashes.
func (s *Source) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.eachPage(ctx, s.scanCount, func(keys []string) error {
		total += int64(len(keys))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Scan visits every order hash. Keys are listed with SCAN and the requested
// fields of each page are fetched in one pipelined round trip.
func (s *Source) Scan(ctx context.Context, options sources.ScanOptions, fn sources.ScanFunc) error {
	count := options.BatchSize
	if count <= 0 {
		count = s.scanCount
	}

	err := s.eachPage(ctx, count, func(keys []string) error {
		records, err := s.fetchRecords(ctx, keys, options.Fields)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, sources.ErrStopScan) {
		return nil
	}
	return err
}

// eachPage calls fn with every page of keys returned by SCAN.
func (s *Source) eachPage(ctx context.Context, count int, fn func(keys []string) error) error {
	var cursor uint64
	match := s.keyPrefix + matchAll
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, int64(count)).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// fetchRecords fetches fields of the hashes at keys
func (s *Source) fetchRecords(ctx context.Context, keys, fields []string) ([]sources.Record, error) {
	records := make([]sources.Record, 0, len(keys))
	if len(fields) == 0 {
		for _, key := range keys {
			records = append(records, sources.Record{ID: s.recordID(key), Fields: map[string]string{}})
		}
		return records, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HMGet(ctx, key, fields...)
	}
	// Exec reports the first failed command; each reply is checked below.
	_, _ = pipe.Exec(ctx)

	for i, cmd := range cmds {
		values, err := cmd.Result()
		if isWrongType(err) {
			// a key of another type under the prefix
			continue
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to fetch record %s: %w", keys[i], err)
		}
		rec := sources.Record{ID: s.recordID(keys[i]), Fields: make(map[string]string, len(fields))}
		for j, v := range values {
			str, ok := v.(string)
			if !ok {
				continue
			}
			rec.Fields[fields[j]] = str
		}
		records = append(records, rec)
	}
	return records, nil
}

// Put stores the record id with the given fields, replacing those fields if
// the record exists.
func (s *Source) Put(ctx context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		values = append(values, k, v)
	}
	if err := s.client.HSet(ctx, s.key(id), values...).Err(); err != nil {
		return fmt.Errorf("failed to store record %s: %w", id, err)
	}
	return nil
}

// Delete removes the record id.
func (s *Source) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// DeleteAll removes every order hash.
func (s *Source) DeleteAll(ctx context.Context) error {
	return s.eachPage(ctx, s.scanCount, func(keys []string) error {
		return s.client.Del(ctx, keys...).Err()
	})
}

// Close closes the Redis connection
func (s *Source) Close() error {
	err := s.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

// isWrongType reports whether err is a WRONGTYPE reply from the server.
func isWrongType(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "WRONGTYPE")
}

func (s *Source) key(id string) string {
	return s.keyPrefix + id
}

func (s *Source) recordID(key string) string {
	return strings.TrimPrefix(key, s.keyPrefix)
}
