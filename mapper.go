package esmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mapper binds a document type to its mapping and converts instances to and
// from the store's wire representation. Every mutation re-validates the full
// document against the schema first; nothing partially valid is ever sent.
type Mapper[T any, PT ModelPtr[T]] struct {
	backend Backend
	mapping Mapping
	logger  *zap.Logger
}

// NewMapper binds a document type to its mapping. The mapping is validated
// here, so declaration mistakes (missing index name, empty schema) surface at
// registration time. A nil logger disables logging.
func NewMapper[T any, PT ModelPtr[T]](backend Backend, mapping Mapping, logger *zap.Logger) (*Mapper[T, PT], error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper[T, PT]{
		backend: backend,
		mapping: mapping,
		logger:  logger.With(zap.String("index", mapping.Index)),
	}, nil
}

// Mapping returns the mapping the mapper was constructed with.
func (m *Mapper[T, PT]) Mapping() Mapping {
	return m.mapping
}

// Index returns the lifecycle manager for the mapping's logical index.
func (m *Mapper[T, PT]) Index() *Index {
	return &Index{backend: m.backend, mapping: m.mapping, logger: m.logger}
}

// ToWire validates doc against the schema and returns its wire body. The
// identifier and any excluded fields are left out, and temporal values are
// serialized to ISO-8601.
func (m *Mapper[T, PT]) ToWire(doc PT, exclude ...string) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to deserialize document: %w", err)
	}

	delete(body, "id")
	for _, name := range exclude {
		delete(body, name)
	}

	normalized, err := m.mapping.Schema.Validate(body)
	if err != nil {
		return nil, err
	}

	for name, value := range normalized {
		if t, ok := value.(time.Time); ok {
			normalized[name] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	return normalized, nil
}

// FromWire materializes a document from a raw hit. A nil hit yields a nil
// document; a hit lacking a source body or an identifier yields
// *InvalidResponseError.
func (m *Mapper[T, PT]) FromWire(hit *Hit) (PT, error) {
	if hit == nil {
		return nil, nil
	}
	if len(hit.Source) == 0 || string(hit.Source) == "null" {
		return nil, &InvalidResponseError{Reason: "hit has no _source"}
	}
	if hit.ID == "" {
		return nil, &InvalidResponseError{Reason: "hit has no _id"}
	}

	doc := PT(new(T))
	if err := json.Unmarshal(hit.Source, doc); err != nil {
		return nil, fmt.Errorf("failed to decode document source: %w", err)
	}
	doc.SetID(hit.ID)
	return doc, nil
}

// Save validates and upserts doc, assigns the store identifier back onto it,
// and returns the identifier. A document that already has an id is replaced
// in place; otherwise the store generates a fresh one.
func (m *Mapper[T, PT]) Save(ctx context.Context, doc PT, opts ...WriteOption) (string, error) {
	body, err := m.ToWire(doc)
	if err != nil {
		return "", err
	}

	o := applyWriteOptions(opts)
	index := o.indexOr(m.mapping.Index)

	id, err := m.backend.IndexDocument(ctx, index, doc.GetID(), body, refreshKeyword(o.refresh))
	if err != nil {
		return "", err
	}
	doc.SetID(id)
	return id, nil
}

// Get fetches the document with the given id. A missing document yields
// *NotFoundError.
func (m *Mapper[T, PT]) Get(ctx context.Context, id string, opts ...WriteOption) (PT, error) {
	o := applyWriteOptions(opts)
	hit, err := m.backend.GetDocument(ctx, o.indexOr(m.mapping.Index), id)
	if err != nil {
		return nil, err
	}
	return m.FromWire(hit)
}

// Delete removes doc from the store. ErrMissingID is returned when the
// document has no identifier; a missing document yields *NotFoundError so
// callers can treat "already gone" as success on retry.
func (m *Mapper[T, PT]) Delete(ctx context.Context, doc PT, opts ...WriteOption) error {
	if doc.GetID() == "" {
		return ErrMissingID
	}
	o := applyWriteOptions(opts)
	return m.backend.DeleteDocument(ctx, o.indexOr(m.mapping.Index), doc.GetID(), refreshKeyword(o.refresh))
}

// Search runs query against the logical index verbatim and wraps the result.
func (m *Mapper[T, PT]) Search(ctx context.Context, query map[string]any) (*Response[T, PT], error) {
	result, err := m.backend.Search(ctx, m.mapping.Index, query)
	if err != nil {
		return nil, err
	}
	return &Response[T, PT]{query: query, raw: result, mapper: m}, nil
}

// BulkIndex saves all docs in one bulk commit with refresh enabled and
// patches the assigned identifiers onto them, returning the ids in input
// order.
func (m *Mapper[T, PT]) BulkIndex(ctx context.Context, docs []PT) ([]string, error) {
	session := NewSession(m.backend, WithSessionRefresh(true), WithSessionLogger(m.logger))
	return Bind(session, m).BulkIndex(ctx, docs)
}
