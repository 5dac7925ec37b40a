package esmodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OpKind is the kind of a buffered mutation.
type OpKind string

const (
	// OpIndex upserts a document, letting the store assign an id.
	OpIndex OpKind = "index"
	// OpCreate inserts a document with a caller-assigned id, failing if it exists.
	OpCreate OpKind = "create"
	// OpUpdate merges a partial document into an existing one by id.
	OpUpdate OpKind = "update"
	// OpDelete removes a document by id.
	OpDelete OpKind = "delete"
)

// opKindOrder fixes the submission order of the per-kind buckets so that
// commit-result ordering is deterministic.
var opKindOrder = [...]OpKind{OpIndex, OpCreate, OpUpdate, OpDelete}

// Action is one buffered mutation.
type Action struct {
	Kind  OpKind
	Index string
	ID    string
	Body  map[string]any
}

// Results maps each operation kind to the store-assigned identifiers of its
// successful operations, in enqueue order.
type Results map[OpKind][]string

// ErrResultMismatch is returned when the number of commit results for a kind
// does not cover the positions handed out at enqueue time.
var ErrResultMismatch = errors.New("bulk commit results do not match enqueued operations")

// defaultChunkSize bounds the number of operations per physical bulk request.
const defaultChunkSize = 500

// Session is an ordered, typed buffer of pending mutations committed as one
// batched call. A session is owned by a single goroutine; the buffer is
// cleared on commit whether or not the commit succeeds, so operations are
// never replayed. Uncommitted operations are discarded when the session is
// dropped.
type Session struct {
	backend Backend
	logger  *zap.Logger
	refresh *bool
	actions map[OpKind][]Action
}

// SessionOption adjusts a new session.
type SessionOption func(*Session)

// WithSessionRefresh sets the session-wide refresh default used when Commit
// is not given one.
func WithSessionRefresh(enabled bool) SessionOption {
	return func(s *Session) { s.refresh = &enabled }
}

// WithSessionLogger attaches a logger to the session.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates an empty session against backend.
func NewSession(backend Backend, opts ...SessionOption) *Session {
	s := &Session{
		backend: backend,
		logger:  zap.NewNop(),
		actions: make(map[OpKind][]Action),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending returns the number of buffered mutations.
func (s *Session) Pending() int {
	n := 0
	for _, actions := range s.actions {
		n += len(actions)
	}
	return n
}

// enqueue appends an action to its kind bucket and returns the action's
// position within that bucket. The position keys the commit result back to
// the action.
func (s *Session) enqueue(action Action) int {
	s.actions[action.Kind] = append(s.actions[action.Kind], action)
	return len(s.actions[action.Kind]) - 1
}

// Index buffers an upsert with a store-assigned id and returns the
// operation's position within the index bucket.
func (s *Session) Index(body map[string]any, index string) int {
	return s.enqueue(Action{Kind: OpIndex, Index: index, Body: body})
}

// Create buffers a fail-if-exists insert. The id is required.
func (s *Session) Create(body map[string]any, id, index string) (int, error) {
	if id == "" {
		return 0, ErrMissingID
	}
	return s.enqueue(Action{Kind: OpCreate, Index: index, ID: id, Body: body}), nil
}

// Update buffers a partial-document merge. The id is required.
func (s *Session) Update(body map[string]any, id, index string) (int, error) {
	if id == "" {
		return 0, ErrMissingID
	}
	return s.enqueue(Action{Kind: OpUpdate, Index: index, ID: id, Body: body}), nil
}

// Delete buffers a deletion. The id is required.
func (s *Session) Delete(id, index string) (int, error) {
	if id == "" {
		return 0, ErrMissingID
	}
	return s.enqueue(Action{Kind: OpDelete, Index: index, ID: id}), nil
}

type commitOptions struct {
	refresh   *bool
	chunkSize int
}

// CommitOption adjusts one commit.
type CommitOption func(*commitOptions)

// WithCommitRefresh overrides the session refresh default for this commit.
func WithCommitRefresh(enabled bool) CommitOption {
	return func(o *commitOptions) { o.refresh = &enabled }
}

// WithChunkSize caps the number of operations per physical bulk request.
// Chunking is a network-level concern only; result ordering is preserved
// across chunks.
func WithChunkSize(n int) CommitOption {
	return func(o *commitOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// Commit flushes all buffered mutations as one batched operation and returns
// the successful identifiers grouped by kind, ordered exactly as enqueued.
//
// An empty session commits to an empty result without contacting the store.
// The buffer is cleared unconditionally, even on error. If the store rejected
// any operation, the returned error is a *SessionError carrying the failures
// grouped by kind; it is reported only after the whole batch was attempted.
func (s *Session) Commit(ctx context.Context, opts ...CommitOption) (Results, error) {
	o := commitOptions{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	if s.Pending() == 0 {
		return Results{}, nil
	}

	flat := make([]Action, 0, s.Pending())
	for _, kind := range opKindOrder {
		flat = append(flat, s.actions[kind]...)
	}
	// Clear before the network round-trips so a failed commit cannot be
	// replayed with the same buffer.
	s.actions = make(map[OpKind][]Action)

	refresh := o.refresh
	if refresh == nil {
		refresh = s.refresh
	}
	keyword := refreshKeyword(refresh)

	started := time.Now()
	items := make([]BulkItem, 0, len(flat))
	for offset := 0; offset < len(flat); offset += o.chunkSize {
		end := min(offset+o.chunkSize, len(flat))
		chunkItems, err := s.backend.Bulk(ctx, flat[offset:end], keyword)
		if err != nil {
			commitDuration.Observe(time.Since(started).Seconds())
			return nil, fmt.Errorf("bulk commit: %w", err)
		}
		items = append(items, chunkItems...)
	}
	commitDuration.Observe(time.Since(started).Seconds())

	if len(items) != len(flat) {
		return nil, &InvalidResponseError{
			Reason: fmt.Sprintf("bulk response carries %d items for %d actions", len(items), len(flat)),
		}
	}

	results := Results{}
	failures := make(map[OpKind][]FailedOp)
	for i, item := range items {
		action := flat[i]
		kind := item.Kind
		if kind == "" {
			kind = action.Kind
		}
		if item.OK() {
			results[kind] = append(results[kind], item.ID)
			bulkOperations.WithLabelValues(string(kind), "ok").Inc()
		} else {
			failures[kind] = append(failures[kind], FailedOp{Action: action, Status: item.Status, Error: item.Error})
			bulkOperations.WithLabelValues(string(kind), "failed").Inc()
		}
	}

	s.logger.Debug("session committed",
		zap.Int("actions", len(flat)),
		zap.Int("failed", len(flat)-lenResults(results)),
		zap.String("refresh", keyword),
	)

	if len(failures) > 0 {
		return results, &SessionError{Failures: failures}
	}
	return results, nil
}

func lenResults(r Results) int {
	n := 0
	for _, ids := range r {
		n += len(ids)
	}
	return n
}

// ModelSession couples a session with a mapper so typed documents can be
// enqueued. Each document is validated and serialized at enqueue time.
type ModelSession[T any, PT ModelPtr[T]] struct {
	session *Session
	mapper  *Mapper[T, PT]
}

// Bind couples session and mapper.
func Bind[T any, PT ModelPtr[T]](session *Session, mapper *Mapper[T, PT]) *ModelSession[T, PT] {
	return &ModelSession[T, PT]{session: session, mapper: mapper}
}

// Index validates doc and buffers an upsert with a store-assigned id.
func (ms *ModelSession[T, PT]) Index(doc PT) (int, error) {
	body, err := ms.mapper.ToWire(doc)
	if err != nil {
		return 0, err
	}
	return ms.session.Index(body, ms.mapper.mapping.Index), nil
}

// Create validates doc and buffers a fail-if-exists insert under its id.
func (ms *ModelSession[T, PT]) Create(doc PT) (int, error) {
	if doc.GetID() == "" {
		return 0, ErrMissingID
	}
	body, err := ms.mapper.ToWire(doc)
	if err != nil {
		return 0, err
	}
	return ms.session.Create(body, doc.GetID(), ms.mapper.mapping.Index)
}

// Update validates doc and buffers a merge of its full body under its id.
// The merge document is the whole current body, so the operation behaves as
// a full overwrite.
func (ms *ModelSession[T, PT]) Update(doc PT) (int, error) {
	if doc.GetID() == "" {
		return 0, ErrMissingID
	}
	body, err := ms.mapper.ToWire(doc)
	if err != nil {
		return 0, err
	}
	return ms.session.Update(body, doc.GetID(), ms.mapper.mapping.Index)
}

// Delete validates doc and buffers its deletion.
func (ms *ModelSession[T, PT]) Delete(doc PT) (int, error) {
	if doc.GetID() == "" {
		return 0, ErrMissingID
	}
	if _, err := ms.mapper.ToWire(doc); err != nil {
		return 0, err
	}
	return ms.session.Delete(doc.GetID(), ms.mapper.mapping.Index)
}

// BulkIndex buffers all docs as index operations, commits the session, and
// patches each document's id from the commit results. The returned ids are
// in input order.
func (ms *ModelSession[T, PT]) BulkIndex(ctx context.Context, docs []PT, opts ...CommitOption) ([]string, error) {
	positions := make([]int, len(docs))
	for i, doc := range docs {
		pos, err := ms.Index(doc)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
	}

	results, err := ms.session.Commit(ctx, opts...)
	if err != nil {
		return nil, err
	}

	ids := results[OpIndex]
	if len(ids) < len(docs) {
		return nil, fmt.Errorf("%w: %d ids for %d documents", ErrResultMismatch, len(ids), len(docs))
	}

	out := make([]string, len(docs))
	for i, doc := range docs {
		id := ids[positions[i]]
		doc.SetID(id)
		out[i] = id
	}
	return out, nil
}
