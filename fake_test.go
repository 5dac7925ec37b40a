package esmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// fakeBackend is an in-memory Backend covering the behavior the core relies
// on: id assignment, positional bulk outcomes, alias indirection, templates,
// and store-side reindex.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int

	docs      map[string]map[string]map[string]any
	indices   map[string]bool
	aliases   map[string][]string
	templates map[string]*IndexTemplate

	bulkCalls    [][]Action
	lastRefresh  string
	putTemplates int
	refreshed    []string

	searchResult *SearchResult
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		docs:      make(map[string]map[string]map[string]any),
		indices:   make(map[string]bool),
		aliases:   make(map[string][]string),
		templates: make(map[string]*IndexTemplate),
	}
}

func (f *fakeBackend) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeBackend) bucket(index string) map[string]map[string]any {
	if f.docs[index] == nil {
		f.docs[index] = make(map[string]map[string]any)
	}
	return f.docs[index]
}

func copyBody(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	return out
}

func (f *fakeBackend) GetDocument(_ context.Context, index, id string) (*Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.docs[index][id]
	if !ok {
		return nil, &NotFoundError{Index: index, ID: id}
	}
	source, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Hit{Index: index, ID: id, Source: source}, nil
}

func (f *fakeBackend) IndexDocument(_ context.Context, index, id string, body map[string]any, refresh string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastRefresh = refresh
	if id == "" {
		id = f.genID()
	}
	f.bucket(index)[id] = copyBody(body)
	return id, nil
}

func (f *fakeBackend) DeleteDocument(_ context.Context, index, id, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastRefresh = refresh
	if _, ok := f.docs[index][id]; !ok {
		return &NotFoundError{Index: index, ID: id}
	}
	delete(f.docs[index], id)
	return nil
}

func (f *fakeBackend) Search(_ context.Context, index string, _ map[string]any) (*SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.searchResult != nil {
		return f.searchResult, nil
	}

	ids := make([]string, 0, len(f.docs[index]))
	for id := range f.docs[index] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		source, err := json.Marshal(f.docs[index][id])
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Index: index, ID: id, Source: source})
	}
	return &SearchResult{
		Took:   3,
		Shards: ShardStats{Total: 1, Successful: 1},
		Hits:   SearchHits{Total: TotalHits{Value: int64(len(hits))}, Hits: hits},
	}, nil
}

func (f *fakeBackend) Bulk(_ context.Context, actions []Action, refresh string) ([]BulkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chunk := make([]Action, len(actions))
	copy(chunk, actions)
	f.bulkCalls = append(f.bulkCalls, chunk)
	f.lastRefresh = refresh

	items := make([]BulkItem, 0, len(actions))
	for _, action := range actions {
		switch action.Kind {
		case OpIndex:
			id := action.ID
			if id == "" {
				id = f.genID()
			}
			f.bucket(action.Index)[id] = copyBody(action.Body)
			items = append(items, BulkItem{Kind: OpIndex, ID: id, Status: 201, Result: "created"})
		case OpCreate:
			if _, exists := f.docs[action.Index][action.ID]; exists {
				items = append(items, BulkItem{Kind: OpCreate, ID: action.ID, Status: 409, Error: &BulkError{
					Type: "version_conflict_engine_exception", Reason: "document already exists",
				}})
				continue
			}
			f.bucket(action.Index)[action.ID] = copyBody(action.Body)
			items = append(items, BulkItem{Kind: OpCreate, ID: action.ID, Status: 201, Result: "created"})
		case OpUpdate:
			current, exists := f.docs[action.Index][action.ID]
			if !exists {
				items = append(items, BulkItem{Kind: OpUpdate, ID: action.ID, Status: 404, Error: &BulkError{
					Type: "document_missing_exception", Reason: "document missing",
				}})
				continue
			}
			for k, v := range action.Body {
				current[k] = v
			}
			items = append(items, BulkItem{Kind: OpUpdate, ID: action.ID, Status: 200, Result: "updated"})
		case OpDelete:
			if _, exists := f.docs[action.Index][action.ID]; !exists {
				items = append(items, BulkItem{Kind: OpDelete, ID: action.ID, Status: 404, Result: "not_found"})
				continue
			}
			delete(f.docs[action.Index], action.ID)
			items = append(items, BulkItem{Kind: OpDelete, ID: action.ID, Status: 200, Result: "deleted"})
		}
	}
	return items, nil
}

func (f *fakeBackend) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.indices[index] {
		return true, nil
	}
	return len(f.aliases[index]) > 0, nil
}

func (f *fakeBackend) CreateIndex(_ context.Context, index string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.indices[index] {
		return "", fmt.Errorf("index %s already exists", index)
	}
	f.indices[index] = true
	return index, nil
}

func (f *fakeBackend) DeleteIndex(_ context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.indices[index] {
		return fmt.Errorf("index %s does not exist", index)
	}
	delete(f.indices, index)
	delete(f.docs, index)
	for alias, physical := range f.aliases {
		kept := physical[:0]
		for _, name := range physical {
			if name != index {
				kept = append(kept, name)
			}
		}
		f.aliases[alias] = kept
	}
	return nil
}

func (f *fakeBackend) RefreshIndex(_ context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refreshed = append(f.refreshed, index)
	return nil
}

func (f *fakeBackend) GetAlias(_ context.Context, alias string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	physical := f.aliases[alias]
	if len(physical) == 0 {
		return nil, nil
	}
	out := make([]string, len(physical))
	copy(out, physical)
	sort.Strings(out)
	return out, nil
}

func (f *fakeBackend) UpdateAliases(_ context.Context, actions []AliasAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, action := range actions {
		switch {
		case action.Remove != nil:
			kept := make([]string, 0)
			for _, name := range f.aliases[action.Remove.Alias] {
				matched, err := filepath.Match(action.Remove.Index, name)
				if err != nil {
					return err
				}
				if !matched {
					kept = append(kept, name)
				}
			}
			f.aliases[action.Remove.Alias] = kept
		case action.Add != nil:
			f.aliases[action.Add.Alias] = append(f.aliases[action.Add.Alias], action.Add.Index)
		}
	}
	return nil
}

func (f *fakeBackend) TemplateExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.templates[name]
	return ok, nil
}

func (f *fakeBackend) PutIndexTemplate(_ context.Context, template *IndexTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putTemplates++
	f.templates[template.Name] = template
	return nil
}

func (f *fakeBackend) Reindex(_ context.Context, source, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sources := []string{source}
	if len(f.docs[source]) == 0 {
		sources = f.aliases[source]
	}
	for _, name := range sources {
		for id, body := range f.docs[name] {
			f.bucket(target)[id] = copyBody(body)
		}
	}
	return nil
}
