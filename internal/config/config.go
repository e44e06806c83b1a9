// Package config loads the YAML configuration of the phonecomplete command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/remiges-tech/phonecomplete"
	"github.com/remiges-tech/phonecomplete/sources/bolt"
	"github.com/remiges-tech/phonecomplete/sources/elasticsearch"
	"github.com/remiges-tech/phonecomplete/sources/redis"
)

// Source names accepted in File.Source.
const (
	SourceRedis         = "redis"
	SourceElasticsearch = "elasticsearch"
	SourceBolt          = "bolt"
)

// ErrUnknownSource is returned for a source name no package registers.
var ErrUnknownSource = errors.New("unknown source")

// File is the on-disk configuration.
type File struct {
	Source        string        `yaml:"source"`
	Redis         Redis         `yaml:"redis"`
	Elasticsearch Elasticsearch `yaml:"elasticsearch"`
	Bolt          Bolt          `yaml:"bolt"`
	Index         Index         `yaml:"index"`
	Server        Server        `yaml:"server"`
	Log           Log           `yaml:"log"`
}

// Redis configures the Redis source.
type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	ScanCount int    `yaml:"scan_count"`
}

// Elasticsearch configures the Elasticsearch source.
type Elasticsearch struct {
	URLs            []string      `yaml:"urls"`
	Index           string        `yaml:"index"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	CloudID         string        `yaml:"cloud_id"`
	APIKey          string        `yaml:"api_key"`
	BatchSize       int           `yaml:"batch_size"`
	ScrollKeepAlive time.Duration `yaml:"scroll_keep_alive"`
}

// Bolt configures the embedded bbolt source.
type Bolt struct {
	Path     string `yaml:"path"`
	Bucket   string `yaml:"bucket"`
	IDField  string `yaml:"id_field"`
	ReadOnly bool   `yaml:"read_only"`
}

// Index configures index building and search.
type Index struct {
	DomesticPrefix string   `yaml:"domestic_prefix"`
	PhoneFields    []string `yaml:"phone_fields"`
	MaxResults     int      `yaml:"max_results"`
	CacheSize      int      `yaml:"cache_size"`
	BatchSize      int      `yaml:"batch_size"`
	ProgressEvery  int      `yaml:"progress_every"`
	WaitForReady   bool     `yaml:"wait_for_ready"`
	// RebuildEvery rebuilds the index periodically in serve. Zero disables.
	RebuildEvery time.Duration `yaml:"rebuild_every"`
}

// Server configures the daemon sockets.
type Server struct {
	Network     string `yaml:"network"`
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	options := phonecomplete.DefaultOptions()
	return File{
		Source: SourceBolt,
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Elasticsearch: Elasticsearch{
			URLs: []string{"http://localhost:9200"},
		},
		Bolt: Bolt{
			Path: "orders.db",
		},
		Index: Index{
			DomesticPrefix: options.DomesticPrefix,
			PhoneFields:    options.PhoneFields,
			MaxResults:     options.MaxResults,
			ProgressEvery:  options.ProgressEvery,
		},
		Server: Server{
			Network: "unix",
			Addr:    "/tmp/phonecomplete.sock",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(cfg, data)
}

// Parse decodes YAML data over base.
func Parse(base File, data []byte) (File, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("parse config: %w", err)
	}
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (f File) Validate() error {
	switch f.Source {
	case SourceRedis, SourceElasticsearch, SourceBolt:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, f.Source)
	}
	switch f.Server.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("server.network must be unix or tcp, got %q", f.Server.Network)
	}
	if _, err := logrus.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// SourceConfig returns the config value the selected source's factory expects.
func (f File) SourceConfig() interface{} {
	switch f.Source {
	case SourceRedis:
		return redis.Config{
			Addr:      f.Redis.Addr,
			Password:  f.Redis.Password, // pragma: allowlist secret
			DB:        f.Redis.DB,
			KeyPrefix: f.Redis.KeyPrefix,
			ScanCount: f.Redis.ScanCount,
		}
	case SourceElasticsearch:
		return elasticsearch.Config{
			URLs:            f.Elasticsearch.URLs,
			Index:           f.Elasticsearch.Index,
			Username:        f.Elasticsearch.Username,
			Password:        f.Elasticsearch.Password, // pragma: allowlist secret
			CloudID:         f.Elasticsearch.CloudID,
			APIKey:          f.Elasticsearch.APIKey,
			BatchSize:       f.Elasticsearch.BatchSize,
			ScrollKeepAlive: f.Elasticsearch.ScrollKeepAlive,
		}
	default:
		return f.BoltConfig()
	}
}

// BoltConfig returns the bbolt source settings.
func (f File) BoltConfig() bolt.Config {
	return bolt.Config{
		Path:     f.Bolt.Path,
		Bucket:   f.Bolt.Bucket,
		IDField:  f.Bolt.IDField,
		ReadOnly: f.Bolt.ReadOnly,
	}
}

// Options returns the service options, logging to log.
func (f File) Options(log logrus.FieldLogger) phonecomplete.Options {
	options := phonecomplete.DefaultOptions()
	if f.Index.DomesticPrefix != "" {
		options.DomesticPrefix = f.Index.DomesticPrefix
	}
	if len(f.Index.PhoneFields) > 0 {
		options.PhoneFields = f.Index.PhoneFields
	}
	if f.Index.MaxResults > 0 {
		options.MaxResults = f.Index.MaxResults
	}
	options.CacheSize = f.Index.CacheSize
	options.BatchSize = f.Index.BatchSize
	options.ProgressEvery = f.Index.ProgressEvery
	if f.Index.WaitForReady {
		options.NotReadyPolicy = phonecomplete.WaitForReady
	}
	options.Logger = log
	return options
}

// Logger returns a logger configured from the log section, writing to out.
func (f File) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(f.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if f.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}
