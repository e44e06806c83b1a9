package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/remiges-tech/phonecomplete/sources"
)

// ErrPartialScan is returned by Scan when a page misses hits from failed or
// timed out shards.
var ErrPartialScan = errors.New("partial scroll results")

// indexMappingTemplate maps every string field whose name contains "phone"
// as a keyword; other fields use dynamic mapping.
const indexMappingTemplate = `{
	"settings": {
		"number_of_shards": %d,
		"number_of_replicas": %d
	},
	"mappings": {
		"dynamic_templates": [
			{
				"phones": {
					"match_mapping_type": "string",
					"path_match": "*phone*",
					"mapping": {"type": "keyword"}
				}
			}
		]
	}
}`

// Source implements sources.Source using Elasticsearch.
type Source struct {
	client          *elasticsearch.Client
	index           string
	refreshPolicy   string
	batchSize       int
	scrollKeepAlive time.Duration
}

// scrollHit is one document of a scroll page.
type scrollHit struct {
	ID     string                 `json:"_id"`
	Source map[string]interface{} `json:"_source"`
}

// shardFailure is one entry of _shards.failures.
type shardFailure struct {
	Index  string `json:"index"`
	Shard  int    `json:"shard"`
	Reason struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"reason"`
}

// scrollResponse represents a search or scroll response page.
type scrollResponse struct {
	ScrollID string `json:"_scroll_id"`
	TimedOut bool   `json:"timed_out"`
	Shards   struct {
		Total    int            `json:"total"`
		Failed   int            `json:"failed"`
		Failures []shardFailure `json:"failures"`
	} `json:"_shards"`
	Hits struct {
		Hits []scrollHit `json:"hits"`
	} `json:"hits"`
}

// countResponse represents the Elasticsearch count response.
type countResponse struct {
	Count int64 `json:"count"`
}

// New creates a new Elasticsearch source with the given configuration.
func New(config *Config) (*Source, error) {
	config.setDefaults()

	// Build Elasticsearch configuration
	esConfig := elasticsearch.Config{
		Addresses: config.URLs,
		Username:  config.Username,
		Password:  config.Password,
		CloudID:   config.CloudID,
		APIKey:    config.APIKey,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	// Test connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch connection error: %s", res.String())
	}

	source := &Source{
		client:          client,
		index:           config.Index,
		refreshPolicy:   config.RefreshPolicy,
		batchSize:       config.BatchSize,
		scrollKeepAlive: config.ScrollKeepAlive,
	}

	// Create index if it doesn't exist
	if err := source.createIndexIfNotExists(config); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return source, nil
}

// createIndexIfNotExists creates the index with the phone mapping if it doesn't exist.
func (s *Source) createIndexIfNotExists(config *Config) error {
	exists, err := s.indexExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	mapping := fmt.Sprintf(indexMappingTemplate, config.NumberOfShards, config.NumberOfReplicas)

	req := esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(context.Background(), s.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	return nil
}

// indexExists checks if the index exists.
func (s *Source) indexExists() (bool, error) {
	req := esapi.IndicesExistsRequest{
		Index: []string{s.index},
	}

	res, err := req.Do(context.Background(), s.client)
	if err != nil {
		return false, err
	}
	defer func() { _ = res.Body.Close() }()

	const httpOK = 200
	return res.StatusCode == httpOK, nil
}

// Count returns the number of documents in the index.
func (s *Source) Count(ctx context.Context) (int64, error) {
	req := esapi.CountRequest{
		Index: []string{s.index},
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return 0, fmt.Errorf("count failed: %s", res.String())
	}

	var response countResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return response.Count, nil
}

// Scan visits every document with a scroll in index order. Only the
// requested fields are fetched from _source.
func (s *Source) Scan(ctx context.Context, options sources.ScanOptions, fn sources.ScanFunc) error {
	size := options.BatchSize
	if size <= 0 {
		size = s.batchSize
	}

	req := esapi.SearchRequest{
		Index:          []string{s.index},
		Scroll:         s.scrollKeepAlive,
		Size:           &size,
		Sort:           []string{"_doc"},
		SourceIncludes: options.Fields,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to start scroll: %w", err)
	}
	page, err := decodeScrollPage(res)
	if err != nil {
		return err
	}

	scrollID := page.ScrollID
	defer func() { s.clearScroll(scrollID) }()

	for len(page.Hits.Hits) > 0 {
		for _, hit := range page.Hits.Hits {
			if err := fn(hitRecord(hit, options.Fields)); err != nil {
				if errors.Is(err, sources.ErrStopScan) {
					return nil
				}
				return err
			}
		}

		next := esapi.ScrollRequest{
			ScrollID: scrollID,
			Scroll:   s.scrollKeepAlive,
		}
		res, err := next.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("failed to continue scroll: %w", err)
		}
		if page, err = decodeScrollPage(res); err != nil {
			return err
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}
	return nil
}

// clearScroll releases the scroll context. Failures only leave the context
// to expire after the keep-alive.
func (s *Source) clearScroll(scrollID string) {
	if scrollID == "" {
		return
	}
	req := esapi.ClearScrollRequest{
		ScrollID: []string{scrollID},
	}
	res, err := req.Do(context.Background(), s.client)
	if err != nil {
		return
	}
	_ = res.Body.Close()
}

// decodeScrollPage reads and closes a search or scroll response.
func decodeScrollPage(res *esapi.Response) (*scrollResponse, error) {
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("scroll failed: %s", res.String())
	}
	return parseScrollResponse(res.Body)
}

// parseScrollResponse decodes one scroll page. Numbers are kept as
// json.Number so that numeric phone fields keep their digits.
// A page answered by only some shards, or cut short by a timeout, fails with
// ErrPartialScan: its hits are an incomplete view of the index.
func parseScrollResponse(body io.Reader) (*scrollResponse, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var response scrollResponse
	if err := dec.Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.TimedOut {
		return nil, fmt.Errorf("%w: search timed out", ErrPartialScan)
	}
	if failed := response.Shards.Failed; failed > 0 {
		reason := "unknown"
		if len(response.Shards.Failures) > 0 {
			f := response.Shards.Failures[0]
			reason = fmt.Sprintf("%s[%d]: %s: %s", f.Index, f.Shard, f.Reason.Type, f.Reason.Reason)
		}
		return nil, fmt.Errorf("%w: %d of %d shards failed, first failure %s",
			ErrPartialScan, failed, response.Shards.Total, reason)
	}
	return &response, nil
}

func hitRecord(hit scrollHit, fields []string) sources.Record {
	return sources.Record{
		ID:     hit.ID,
		Fields: sources.Project(hit.Source, fields),
	}
}

// Put indexes the order document doc under id, replacing any previous version.
func (s *Source) Put(ctx context.Context, id string, doc map[string]interface{}) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: id,
		Body:       bytes.NewReader(docJSON),
		Refresh:    s.refreshPolicy,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to index document: %s", res.String())
	}

	return nil
}

// Delete removes the document id.
func (s *Source) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: id,
		Refresh:    s.refreshPolicy,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// 404 is not an error for delete (idempotent)
	const httpNotFound = 404
	if res.IsError() && res.StatusCode != httpNotFound {
		return fmt.Errorf("failed to delete document: %s", res.String())
	}

	return nil
}

// Close closes the source connection.
func (s *Source) Close() error {
	// The Elasticsearch Go client doesn't have a Close method
	// as it uses standard HTTP connections that are managed by Go's http package
	return nil
}
