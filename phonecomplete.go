// Package phonecomplete provides fuzzy phone number completion over order records.
//
// An in-memory index of canonical phone numbers is built from a record source
// and queried with several match strategies of decreasing specificity (exact
// prefix, edit distance, area-code and country-code wildcards, substring),
// whose results are merged into one short, deduplicated list.
//
// The package separates completion logic from storage concerns through a source interface,
// allowing different backends (Redis, Elasticsearch, bbolt) to be used interchangeably.
// Sources self-register during package initialization.
//
// Basic usage:
//
//	import (
//		"github.com/remiges-tech/phonecomplete"
//		"github.com/remiges-tech/phonecomplete/sources/redis"
//	)
//
//	config := phonecomplete.NewConfig(redis.Config{Addr: "localhost:6379"})
//	pc, err := phonecomplete.New("redis", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pc.Close()
//
//	// Build the index in the background and wait for it
//	if err := pc.Initialize(ctx).Wait(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	matches, err := pc.Search(ctx, "(555) 123-45")
package phonecomplete

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/remiges-tech/phonecomplete/index"
	"github.com/remiges-tech/phonecomplete/phone"
	"github.com/remiges-tech/phonecomplete/sources"
)

// message is returned by Message.
const message = "phone completion service working"

// State is the lifecycle state of the index.
type State int32

const (
	// StateEmpty means no index has been published and no build is running.
	StateEmpty State = iota
	// StateBuilding means the first build is running.
	StateBuilding
	// StateReady means an index is published and searches are served.
	StateReady
)

// String returns "empty", "building" or "ready".
func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// PhoneComplete defines the interface for phone completion.
// All methods are safe for concurrent use.
type PhoneComplete interface {
	// Initialize starts building the index in the background and returns
	// immediately. If a build is already running its Build is returned; if an
	// index is already published a completed Build is returned.
	// The context governs the build itself, not just the call.
	Initialize(ctx context.Context) *Build

	// Rebuild builds a new index from a fresh scan of the source and publishes
	// it atomically once complete. Searches keep using the previous index
	// meanwhile; a failed rebuild leaves it in place.
	// The returned Build fails with ErrBuildInProgress if a build is running.
	Rebuild(ctx context.Context) *Build

	// Search returns at most MaxResults matches for a partially typed or
	// loosely formatted phone number, best first.
	// An empty or separator-only query returns an empty slice without error.
	// Returns ErrNotReady while no index is published (see NotReadyPolicy),
	// ErrQueryTooLong or ErrClosed.
	Search(ctx context.Context, query string) ([]Match, error)

	// Healthcheck reports the lifecycle state.
	Healthcheck() State

	// Message returns a fixed liveness string.
	Message() string

	// Close closes the record source. It is safe to call multiple times.
	// After Close, other methods will fail with ErrClosed.
	Close() error
}

// Build is the handle of a running or finished index build.
type Build struct {
	// ID identifies the build in logs.
	ID string

	done  chan struct{}
	err   error
	stats BuildStats
}

func newBuild() *Build {
	return &Build{
		ID:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

func finishedBuild(err error) *Build {
	b := newBuild()
	b.finish(BuildStats{}, err)
	return b
}

func (b *Build) finish(stats BuildStats, err error) {
	b.stats = stats
	b.err = err
	close(b.done)
}

// Done is closed when the build has finished.
func (b *Build) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the build finishes or ctx is done and returns the build error.
func (b *Build) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the build error, or nil while the build is running.
func (b *Build) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// Stats returns the build summary. It is zero until Done is closed.
func (b *Build) Stats() BuildStats {
	select {
	case <-b.done:
		return b.stats
	default:
		return BuildStats{}
	}
}

// snapshot is a published, immutable index and the result cache bound to it.
type snapshot struct {
	tree  *index.Tree
	cache *lru.Cache[string, []Match]
}

// service is the default implementation of PhoneComplete.
type service struct {
	name    string
	source  sources.Source
	opts    Options
	log     logrus.FieldLogger
	planner *planner

	current atomic.Pointer[snapshot]
	closed  atomic.Bool

	mu       sync.Mutex
	inflight *Build
}

// Initialize starts the first index build.
// See PhoneComplete.Initialize for details.
func (s *service) Initialize(ctx context.Context) *Build {
	if s.closed.Load() {
		return finishedBuild(ErrClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return s.inflight
	}
	if s.current.Load() != nil {
		return finishedBuild(nil)
	}
	return s.startLocked(ctx)
}

// Rebuild replaces the published index.
// See PhoneComplete.Rebuild for details.
func (s *service) Rebuild(ctx context.Context) *Build {
	if s.closed.Load() {
		return finishedBuild(ErrClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return finishedBuild(ErrBuildInProgress)
	}
	return s.startLocked(ctx)
}

func (s *service) startLocked(ctx context.Context) *Build {
	b := newBuild()
	s.inflight = b
	indexState.Set(float64(s.stateLocked()))

	log := s.log.WithFields(logrus.Fields{
		"build_id": b.ID,
		"source":   s.name,
	})

	go func() {
		tree, stats, err := buildIndex(ctx, s.source, s.opts, log)

		s.mu.Lock()
		if err == nil {
			s.publish(tree)
		}
		s.inflight = nil
		indexState.Set(float64(s.stateLocked()))
		s.mu.Unlock()

		if err != nil {
			log.WithError(err).Error("phone index build failed")
		} else {
			log.WithFields(logrus.Fields{
				"records":  stats.Records,
				"indexed":  stats.Indexed,
				"skipped":  stats.Skipped,
				"keys":     stats.Keys,
				"duration": stats.Duration.String(),
			}).Info("phone index ready")
		}
		b.finish(stats, err)
	}()

	return b
}

// publish makes tree the index served to searches.
func (s *service) publish(tree *index.Tree) {
	snap := &snapshot{tree: tree}
	if s.opts.CacheSize > 0 {
		cache, err := lru.New[string, []Match](s.opts.CacheSize)
		if err == nil {
			snap.cache = cache
		}
	}
	s.current.Store(snap)
	indexKeys.Set(float64(tree.Len()))
}

// Search returns ranked completions for query.
// See PhoneComplete.Search for details.
func (s *service) Search(ctx context.Context, query string) ([]Match, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	cleaned := phone.Clean(query)
	if cleaned == "" {
		searchTotal.WithLabelValues("empty").Inc()
		return []Match{}, nil
	}
	if s.opts.MaxQueryLength > 0 && len(cleaned) > s.opts.MaxQueryLength {
		searchTotal.WithLabelValues("rejected").Inc()
		return nil, ErrQueryTooLong
	}

	snap, err := s.ready(ctx)
	if err != nil {
		searchTotal.WithLabelValues("not_ready").Inc()
		return nil, err
	}

	if snap.cache != nil {
		if cached, ok := snap.cache.Get(cleaned); ok {
			searchTotal.WithLabelValues("cache_hit").Inc()
			return slices.Clone(cached), nil
		}
	}

	start := time.Now()
	matches := s.planner.plan(snap.tree, cleaned)
	searchDuration.Observe(time.Since(start).Seconds())
	searchTotal.WithLabelValues("ok").Inc()

	if snap.cache != nil {
		snap.cache.Add(cleaned, slices.Clone(matches))
	}
	return matches, nil
}

// ready returns the published snapshot, applying NotReadyPolicy when there is none.
func (s *service) ready(ctx context.Context) (*snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	if s.opts.NotReadyPolicy != WaitForReady {
		return nil, ErrNotReady
	}

	s.mu.Lock()
	b := s.inflight
	s.mu.Unlock()
	if b == nil {
		if snap := s.current.Load(); snap != nil {
			return snap, nil
		}
		return nil, ErrNotReady
	}

	select {
	case <-b.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrNotReady, b.Err())
}

// Healthcheck reports the lifecycle state.
// See PhoneComplete.Healthcheck for details.
func (s *service) Healthcheck() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *service) stateLocked() State {
	switch {
	case s.current.Load() != nil:
		return StateReady
	case s.inflight != nil:
		return StateBuilding
	default:
		return StateEmpty
	}
}

// Message returns a fixed liveness string.
func (s *service) Message() string {
	return message
}

// Close closes the record source.
// See PhoneComplete.Close for details.
func (s *service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.source.Close()
}

// New creates a new PhoneComplete instance backed by the named record source.
// The sourceType must be registered (case-insensitive). Config contains
// both source-specific settings and common options.
// Returns ErrSourceNotFound if the source is not registered.
// No index is built until Initialize is called.
//
// Example:
//
//	import _ "github.com/remiges-tech/phonecomplete/sources/bolt"
//
//	config := phonecomplete.NewConfig(bolt.Config{Path: "orders.db"})
//	pc, err := phonecomplete.New("bolt", config)
//
//nolint:gocritic // hugeParam: Config is only copied once at startup
func New(sourceType string, config Config) (PhoneComplete, error) {
	name := strings.ToLower(sourceType)
	factory, exists := sourceFactories[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceType)
	}

	source, err := factory(config.SourceConfig)
	if err != nil {
		return nil, err
	}

	return NewWithSource(name, source, config.Options), nil
}

// NewWithSource creates a PhoneComplete instance over an already constructed
// source. The name only labels logs.
//
//nolint:gocritic // hugeParam: Options is only copied once at startup
func NewWithSource(name string, source sources.Source, options Options) PhoneComplete {
	options = options.withDefaults()
	return &service{
		name:    name,
		source:  source,
		opts:    options,
		log:     options.Logger,
		planner: newPlanner(options),
	}
}

// SourceFactory creates a Source instance from a configuration.
// The factory must type-assert the config parameter to its expected type.
type SourceFactory func(config interface{}) (sources.Source, error)

// sourceFactories holds the registered source factories.
var sourceFactories = make(map[string]SourceFactory)

// RegisterSource registers a new record source factory.
// Typically called from a source's init() function. The name is
// case-insensitive. Registering with an existing name overwrites it.
//
// Example:
//
//	package mysource
//
//	func init() {
//	    phonecomplete.RegisterSource("mysource", NewSource)
//	}
//
// Thread safety:
//   - Safe to call during init() (single-threaded)
//   - Not safe to call after init() (no mutex protection)
func RegisterSource(name string, factory SourceFactory) {
	sourceFactories[strings.ToLower(name)] = factory
}
