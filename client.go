package esmodel

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Config holds Elasticsearch connection configuration.
type Config struct {
	URL        string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

// Client implements Backend against Elasticsearch. A single Client is safe
// for concurrent use and is meant to be shared process-wide.
type Client struct {
	esClient *es.Client
	config   *Config
	logger   *zap.Logger
}

// NewClient creates a connected Elasticsearch client. The connection is
// verified with a ping before the client is returned. A nil logger disables
// logging.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	addresses := []string{cfg.URL}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		addresses = []string{"http://" + cfg.URL}
	}

	transport := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: false},
		ResponseHeaderTimeout: cfg.Timeout,
	}

	clientConfig := es.Config{
		Addresses:  addresses,
		Transport:  transport,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	esClient, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := esClient.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}

	logger.Debug("Elasticsearch client initialized", zap.Strings("addresses", addresses))

	return &Client{
		esClient: esClient,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Raw returns the underlying Elasticsearch client for operations outside the
// Backend surface.
func (c *Client) Raw() *es.Client {
	return c.esClient
}

// GetDocument fetches a document by id.
func (c *Client) GetDocument(ctx context.Context, index, id string) (*Hit, error) {
	res, err := c.esClient.Get(index, id, c.esClient.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Index: index, ID: id}
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("error getting document: %s", string(body))
	}

	var hit Hit
	if err := json.NewDecoder(res.Body).Decode(&hit); err != nil {
		return nil, fmt.Errorf("failed to decode get response: %w", err)
	}
	return &hit, nil
}

// IndexDocument upserts a document and returns the store-assigned id.
func (c *Client) IndexDocument(ctx context.Context, index, id string, body map[string]any, refresh string) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		c.esClient.Index.WithContext(ctx),
		c.esClient.Index.WithRefresh(refresh),
	}
	if id != "" {
		opts = append(opts, c.esClient.Index.WithDocumentID(id))
	}

	res, err := c.esClient.Index(index, bytes.NewReader(payload), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("error indexing document: %s", string(respBody))
	}

	var result struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode index response: %w", err)
	}
	return result.ID, nil
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, index, id, refresh string) error {
	res, err := c.esClient.Delete(
		index,
		id,
		c.esClient.Delete.WithContext(ctx),
		c.esClient.Delete.WithRefresh(refresh),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return &NotFoundError{Index: index, ID: id}
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error deleting document: %s", string(body))
	}
	return nil
}

// Search runs a query against an index or alias.
func (c *Client) Search(ctx context.Context, index string, query map[string]any) (*SearchResult, error) {
	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.esClient.Search(
		c.esClient.Search.WithContext(ctx),
		c.esClient.Search.WithIndex(index),
		c.esClient.Search.WithBody(bytes.NewReader(queryBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("error searching: %s", string(body))
	}

	var result SearchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &result, nil
}

// Bulk submits actions as one batched request and returns per-action
// outcomes in submission order.
func (c *Client) Bulk(ctx context.Context, actions []Action, refresh string) ([]BulkItem, error) {
	if len(actions) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for _, action := range actions {
		meta := map[string]any{"_index": action.Index}
		if action.ID != "" {
			meta["_id"] = action.ID
		}
		if err := json.NewEncoder(&buf).Encode(map[string]any{string(action.Kind): meta}); err != nil {
			return nil, fmt.Errorf("failed to encode bulk meta: %w", err)
		}

		switch action.Kind {
		case OpDelete:
			// No source line.
		case OpUpdate:
			if err := json.NewEncoder(&buf).Encode(map[string]any{"doc": action.Body}); err != nil {
				return nil, fmt.Errorf("failed to encode bulk source: %w", err)
			}
		default:
			if err := json.NewEncoder(&buf).Encode(action.Body); err != nil {
				return nil, fmt.Errorf("failed to encode bulk source: %w", err)
			}
		}
	}

	res, err := c.esClient.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.esClient.Bulk.WithContext(ctx),
		c.esClient.Bulk.WithRefresh(refresh),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("bulk request error: %s", string(body))
	}

	var payload struct {
		Took   int  `json:"took"`
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Index  string     `json:"_index"`
			ID     string     `json:"_id"`
			Status int        `json:"status"`
			Result string     `json:"result"`
			Error  *BulkError `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	items := make([]BulkItem, 0, len(payload.Items))
	for _, entry := range payload.Items {
		for kind, item := range entry {
			items = append(items, BulkItem{
				Kind:   OpKind(kind),
				ID:     item.ID,
				Status: item.Status,
				Result: item.Result,
				Error:  item.Error,
			})
		}
	}
	c.logger.Debug("bulk request completed",
		zap.Int("actions", len(actions)),
		zap.Bool("errors", payload.Errors),
		zap.Int("took_ms", payload.Took),
	)
	return items, nil
}

// IndexExists reports whether an index or alias resolves.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.esClient.Indices.Exists([]string{index}, c.esClient.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("error checking index existence: %s", res.String())
	}
	return true, nil
}

// CreateIndex creates a physical index. Settings and mappings come from a
// matching index template.
func (c *Client) CreateIndex(ctx context.Context, index string) (string, error) {
	res, err := c.esClient.Indices.Create(index, c.esClient.Indices.Create.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("error creating index: %s", string(body))
	}

	var result struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	return result.Index, nil
}

// DeleteIndex removes a physical index.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.esClient.Indices.Delete([]string{index}, c.esClient.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error deleting index: %s", string(body))
	}
	return nil
}

// RefreshIndex forces a refresh of an index.
func (c *Client) RefreshIndex(ctx context.Context, index string) error {
	res, err := c.esClient.Indices.Refresh(
		c.esClient.Indices.Refresh.WithContext(ctx),
		c.esClient.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error refreshing index: %s", string(body))
	}
	return nil
}

// GetAlias resolves an alias to the physical indices holding it. An unknown
// alias resolves to nil.
func (c *Client) GetAlias(ctx context.Context, alias string) ([]string, error) {
	res, err := c.esClient.Indices.GetAlias(
		c.esClient.Indices.GetAlias.WithContext(ctx),
		c.esClient.Indices.GetAlias.WithIndex(alias),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alias: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("error resolving alias: %s", string(body))
	}

	var result map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode alias response: %w", err)
	}

	indices := make([]string, 0, len(result))
	for name := range result {
		indices = append(indices, name)
	}
	sort.Strings(indices)
	return indices, nil
}

// UpdateAliases applies alias actions as one atomic request.
func (c *Client) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("failed to marshal alias actions: %w", err)
	}

	res, err := c.esClient.Indices.UpdateAliases(
		bytes.NewReader(body),
		c.esClient.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update aliases: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error updating aliases: %s", string(respBody))
	}
	return nil
}

// TemplateExists reports whether an index template is registered.
func (c *Client) TemplateExists(ctx context.Context, name string) (bool, error) {
	res, err := c.esClient.Indices.ExistsIndexTemplate(
		name,
		c.esClient.Indices.ExistsIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check template existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("error checking template existence: %s", res.String())
	}
	return true, nil
}

// PutIndexTemplate registers an index template.
func (c *Client) PutIndexTemplate(ctx context.Context, template *IndexTemplate) error {
	body, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	res, err := c.esClient.Indices.PutIndexTemplate(
		template.Name,
		bytes.NewReader(body),
		c.esClient.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to put index template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error putting index template: %s", string(respBody))
	}
	return nil
}

// Reindex copies all documents from source into target. A missing source is
// treated as nothing to copy.
func (c *Client) Reindex(ctx context.Context, source, target string) error {
	body, err := json.Marshal(map[string]any{
		"source": map[string]any{"index": source},
		"dest":   map[string]any{"index": target},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reindex request: %w", err)
	}

	res, err := c.esClient.Reindex(bytes.NewReader(body), c.esClient.Reindex.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reindex: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error reindexing: %s", string(respBody))
	}
	return nil
}
