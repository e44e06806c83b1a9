// Package bolt implements the record Source interface over an embedded bbolt
// database. Order records are JSON documents stored in one bucket, keyed by
// record ID.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/remiges-tech/phonecomplete/sources"
)

const (
	defaultBucket    = "orders"
	defaultTimeout   = time.Second
	defaultBatchSize = 1000
	defaultIDField   = "id"
)

// ErrNoID is returned by Load for a document without an ID field.
var ErrNoID = errors.New("document has no id")

// Config holds bbolt database parameters.
type Config struct {
	// Path is the database file. It is created unless ReadOnly is set.
	Path string

	// Bucket holds the order documents. Default: "orders".
	Bucket string

	// Timeout is how long Open waits for the file lock. Default: 1s.
	Timeout time.Duration

	// ReadOnly opens the database with a shared lock, so several processes
	// can build from the same file. Put, Load and Delete fail.
	ReadOnly bool

	// IDField is the document field Load takes record IDs from. Default: "id".
	IDField string
}

// Source implements sources.Source backed by bbolt.
type Source struct {
	db      *bolt.DB
	bucket  []byte
	idField string
}

// New opens (or creates) the database at config.Path.
func New(config Config) (*Source, error) {
	if config.Bucket == "" {
		config.Bucket = defaultBucket
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.IDField == "" {
		config.IDField = defaultIDField
	}

	db, err := bolt.Open(config.Path, 0600, &bolt.Options{
		Timeout:  config.Timeout,
		ReadOnly: config.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}

	s := &Source{db: db, bucket: []byte(config.Bucket), idField: config.IDField}
	if !config.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(s.bucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bbolt create bucket: %w", err)
		}
	}
	return s, nil
}

// Count returns the number of stored records.
func (s *Source) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(s.bucket); b != nil {
			n = int64(b.Stats().KeyN)
		}
		return nil
	})
	return n, err
}

// Scan visits every record in key order. Each page of records is copied out
// of its own read transaction before fn sees it.
func (s *Source) Scan(ctx context.Context, options sources.ScanOptions, fn sources.ScanFunc) error {
	size := options.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	var after []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, last, err := s.page(after, size)
		if err != nil {
			return err
		}
		for _, kv := range page {
			doc, err := decode(kv.value)
			if err != nil {
				return fmt.Errorf("record %s: %w", kv.key, err)
			}
			rec := sources.Record{ID: string(kv.key), Fields: sources.Project(doc, options.Fields)}
			if err := fn(rec); err != nil {
				if errors.Is(err, sources.ErrStopScan) {
					return nil
				}
				return err
			}
		}
		if len(page) < size {
			return nil
		}
		after = last
	}
}

type keyValue struct {
	key   []byte
	value []byte
}

// page returns up to size records with keys greater than after (from the
// start when after is nil) and the last key returned.
func (s *Source) page(after []byte, size int) ([]keyValue, []byte, error) {
	out := make([]keyValue, 0, size)
	var last []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		var k, v []byte
		if after == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(after)
			if k != nil && bytes.Equal(k, after) {
				k, v = c.Next()
			}
		}
		for ; k != nil && len(out) < size; k, v = c.Next() {
			// bbolt slices are only valid within the transaction
			out = append(out, keyValue{key: bytes.Clone(k), value: bytes.Clone(v)})
		}
		if len(out) > 0 {
			last = out[len(out)-1].key
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("bbolt read: %w", err)
	}
	return out, last, nil
}

func decode(value []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Put stores doc as record id, replacing any previous document.
func (s *Source) Put(ctx context.Context, id string, doc map[string]interface{}) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(id), value)
	})
}

// Delete removes record id. Deleting a missing record is not an error.
func (s *Source) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	})
}

// Load stores a stream of JSON documents, one per record, taking each
// record ID from the configured ID field. Documents are committed in
// transactions of a thousand. It returns the number of documents stored.
func (s *Source) Load(ctx context.Context, r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	total := 0
	batch := make([]keyValue, 0, defaultBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(s.bucket)
			for _, kv := range batch {
				if err := b.Put(kv.key, kv.value); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("bbolt write: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var doc map[string]interface{}
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return total, fmt.Errorf("document %d: %w", n, err)
		}
		id, ok := sources.Lookup(doc, s.idField)
		if !ok || id == "" {
			return total, fmt.Errorf("document %d: %w field %q", n, ErrNoID, s.idField)
		}
		value, err := json.Marshal(doc)
		if err != nil {
			return total, fmt.Errorf("document %d: %w", n, err)
		}
		batch = append(batch, keyValue{key: []byte(id), value: value})
		if len(batch) == defaultBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// Close closes the underlying bbolt database.
func (s *Source) Close() error {
	return s.db.Close()
}
