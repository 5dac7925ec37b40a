package esmodel

import "strconv"

// refreshKeyword encodes a refresh policy for the store. An unset policy
// defers visibility to the next periodic refresh; a boolean requests or
// suppresses an immediate one.
func refreshKeyword(r *bool) string {
	if r == nil {
		return "wait_for"
	}
	return strconv.FormatBool(*r)
}

type writeOptions struct {
	index   string
	refresh *bool
}

// WriteOption adjusts a single-document operation.
type WriteOption func(*writeOptions)

// WithIndex targets a specific index instead of the mapping's logical index.
func WithIndex(index string) WriteOption {
	return func(o *writeOptions) { o.index = index }
}

// WithRefresh requests (true) or suppresses (false) an immediate refresh
// after the operation.
func WithRefresh(enabled bool) WriteOption {
	return func(o *writeOptions) { o.refresh = &enabled }
}

func applyWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o writeOptions) indexOr(fallback string) string {
	if o.index != "" {
		return o.index
	}
	return fallback
}
