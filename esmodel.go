// Package esmodel binds typed Go structs to Elasticsearch indices.
//
// A Mapping declares the logical index, its settings and its field schema.
// Mapper converts documents to and from the wire form and performs single
// document operations; Session batches heterogeneous mutations into one bulk
// call and reconciles server-assigned identifiers back onto the documents;
// Index manages the versioned physical-index / alias indirection that makes
// mapping migrations possible without downtime.
//
// All store access goes through the narrow Backend interface. Client is the
// production implementation backed by github.com/elastic/go-elasticsearch/v8.
package esmodel

import (
	"github.com/jonesrussell/esmodel/schema"
)

// Document is implemented by every mapped record type. Embedding Base
// provides the implementation.
type Document interface {
	// GetID returns the store-assigned identifier, or "" when unsaved.
	GetID() string
	// SetID records the store-assigned identifier on the document.
	SetID(id string)
}

// ModelPtr constrains a mapper's type parameter to a pointer to a mapped
// struct, so documents can be materialized from hits.
type ModelPtr[T any] interface {
	*T
	Document
}

// Base carries the document identifier. Embed it (by pointer receiver) into
// every mapped struct. The identifier is never part of the wire body; the
// store keeps it in document metadata.
type Base struct {
	ID string `json:"id,omitempty"`
}

func (b *Base) GetID() string { return b.ID }

func (b *Base) SetID(id string) { b.ID = id }

// Mapping binds a record type to a logical index. It is immutable after the
// mapper is constructed.
type Mapping struct {
	// Index is the logical index name the documents live under. Mandatory.
	Index string
	// Schema declares the document fields. Mandatory.
	Schema schema.Schema
	// SourceEnabled toggles _source storage in the index mapping.
	// When nil the store default applies.
	SourceEnabled *bool
	// Version is carried into the index template when non-zero.
	Version int
	// NumberOfShards and NumberOfReplicas become index settings when non-zero.
	NumberOfShards   int
	NumberOfReplicas int
}

// Validate checks the declaration. It runs once when a Mapper or Index is
// constructed, so a broken mapping fails at registration time rather than on
// the first write.
func (m Mapping) Validate() error {
	if m.Index == "" {
		return ErrMissingIndex
	}
	if len(m.Schema) == 0 {
		return ErrEmptySchema
	}
	return nil
}

// SourceStorage returns a pointer suitable for Mapping.SourceEnabled.
func SourceStorage(enabled bool) *bool {
	return &enabled
}
