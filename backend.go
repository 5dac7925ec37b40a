package esmodel

import (
	"context"
	"encoding/json"
)

// Backend is the narrow surface this layer needs from the document store.
// Client implements it against Elasticsearch; tests substitute an in-memory
// fake. Every call suspends on network I/O and must be safe for concurrent
// use by multiple sessions and mappers.
type Backend interface {
	// GetDocument fetches one document. A missing document yields *NotFoundError.
	GetDocument(ctx context.Context, index, id string) (*Hit, error)
	// IndexDocument upserts a document and returns the store-assigned id.
	// An empty id asks the store to generate one.
	IndexDocument(ctx context.Context, index, id string, body map[string]any, refresh string) (string, error)
	// DeleteDocument removes one document. A missing document yields *NotFoundError.
	DeleteDocument(ctx context.Context, index, id, refresh string) error
	// Search runs a query against an index (or alias) verbatim.
	Search(ctx context.Context, index string, query map[string]any) (*SearchResult, error)
	// Bulk submits actions as one batched request. The returned items
	// correspond positionally to the submitted actions.
	Bulk(ctx context.Context, actions []Action, refresh string) ([]BulkItem, error)

	// IndexExists reports whether an index or alias resolves.
	IndexExists(ctx context.Context, index string) (bool, error)
	// CreateIndex creates a physical index and returns its name as reported
	// by the store. Settings and mappings come from a matching template.
	CreateIndex(ctx context.Context, index string) (string, error)
	// DeleteIndex removes a physical index.
	DeleteIndex(ctx context.Context, index string) error
	// RefreshIndex forces a refresh so pending writes become searchable.
	RefreshIndex(ctx context.Context, index string) error
	// GetAlias resolves an alias to its physical index names. An unknown
	// alias resolves to nil, not an error.
	GetAlias(ctx context.Context, alias string) ([]string, error)
	// UpdateAliases applies alias actions as a single atomic request.
	UpdateAliases(ctx context.Context, actions []AliasAction) error
	// TemplateExists reports whether an index template is registered.
	TemplateExists(ctx context.Context, name string) (bool, error)
	// PutIndexTemplate registers an index template.
	PutIndexTemplate(ctx context.Context, template *IndexTemplate) error
	// Reindex copies all documents from source into target on the store
	// side. A missing source is treated as nothing to copy.
	Reindex(ctx context.Context, source, target string) error
}

// Hit is one raw search or get result.
type Hit struct {
	Index  string                     `json:"_index"`
	ID     string                     `json:"_id"`
	Score  float64                    `json:"_score"`
	Source json.RawMessage            `json:"_source"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// ShardStats reports per-request shard participation.
type ShardStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// TotalHits is the (possibly lower-bounded) match count of a search.
type TotalHits struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// SearchHits is the hits section of a search result.
type SearchHits struct {
	Total TotalHits `json:"total"`
	Hits  []Hit     `json:"hits"`
}

// Aggregation is one named aggregation result.
type Aggregation struct {
	Buckets []Bucket `json:"buckets"`
}

// Bucket is one aggregation bucket.
type Bucket struct {
	Key      any   `json:"key"`
	DocCount int64 `json:"doc_count"`
}

// SearchResult is a raw search response.
type SearchResult struct {
	Took         int                    `json:"took"`
	TimedOut     bool                   `json:"timed_out"`
	Shards       ShardStats             `json:"_shards"`
	Hits         SearchHits             `json:"hits"`
	Aggregations map[string]Aggregation `json:"aggregations"`
}

// BulkError is the store's description of one rejected bulk operation.
type BulkError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BulkItem is the outcome of one bulk operation.
type BulkItem struct {
	Kind   OpKind
	ID     string
	Status int
	Result string
	Error  *BulkError
}

// OK reports whether the operation was applied.
func (i BulkItem) OK() bool {
	return i.Error == nil && i.Status < 300
}

// AliasTarget names an alias/index pair in an alias action.
type AliasTarget struct {
	Alias string `json:"alias"`
	Index string `json:"index"`
}

// AliasAction is one entry of an update-aliases request. Exactly one of Add
// or Remove is set.
type AliasAction struct {
	Add    *AliasTarget `json:"add,omitempty"`
	Remove *AliasTarget `json:"remove,omitempty"`
}

// TemplateBody is the template section of an index template.
type TemplateBody struct {
	Mappings map[string]any `json:"mappings"`
	Settings map[string]any `json:"settings,omitempty"`
}

// IndexTemplate is a composable index template registration.
type IndexTemplate struct {
	Name          string       `json:"-"`
	IndexPatterns []string     `json:"index_patterns"`
	Template      TemplateBody `json:"template"`
	ComposedOf    []string     `json:"composed_of"`
	Priority      int          `json:"priority"`
	Version       int          `json:"version,omitempty"`
}
