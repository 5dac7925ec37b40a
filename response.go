package esmodel

import (
	"sort"
)

// Response wraps one raw search result together with the query that produced
// it and the mapper used to materialize typed documents.
type Response[T any, PT ModelPtr[T]] struct {
	query  map[string]any
	raw    *SearchResult
	mapper *Mapper[T, PT]
}

// Raw returns the underlying search result.
func (r *Response[T, PT]) Raw() *SearchResult {
	return r.raw
}

// Len returns the number of returned hits.
func (r *Response[T, PT]) Len() int {
	return len(r.raw.Hits.Hits)
}

// Total returns the (possibly lower-bounded) total match count.
func (r *Response[T, PT]) Total() int64 {
	return r.raw.Hits.Total.Value
}

// Took returns the server-side processing time in milliseconds.
func (r *Response[T, PT]) Took() int {
	return r.raw.Took
}

// TimedOut reports whether the store cut the search short.
func (r *Response[T, PT]) TimedOut() bool {
	return r.raw.TimedOut
}

// Success is true iff the search did not time out and every queried shard
// responded.
func (r *Response[T, PT]) Success() bool {
	return !r.raw.TimedOut && r.raw.Shards.Total == r.raw.Shards.Successful
}

// Documents materializes every hit into a typed document.
func (r *Response[T, PT]) Documents() ([]PT, error) {
	docs := make([]PT, 0, len(r.raw.Hits.Hits))
	for i := range r.raw.Hits.Hits {
		doc, err := r.mapper.FromWire(&r.raw.Hits.Hits[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Fields returns the projection field names present on the first hit, or an
// empty slice when there are no hits.
func (r *Response[T, PT]) Fields() []string {
	if len(r.raw.Hits.Hits) == 0 {
		return []string{}
	}
	first := r.raw.Hits.Hits[0]
	names := make([]string, 0, len(first.Fields))
	for name := range first.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Buckets returns, for each aggregation named in the query's aggs clause, the
// bucket list from the response. It is nil when the query had no
// aggregations or the response carries none.
func (r *Response[T, PT]) Buckets() map[string][]Bucket {
	aggs, ok := r.query["aggs"].(map[string]any)
	if !ok || len(aggs) == 0 || len(r.raw.Aggregations) == 0 {
		return nil
	}

	buckets := make(map[string][]Bucket, len(aggs))
	for name := range aggs {
		if agg, ok := r.raw.Aggregations[name]; ok {
			buckets[name] = agg.Buckets
		}
	}
	return buckets
}
