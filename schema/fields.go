package schema

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Field describes a single mapped field: the Elasticsearch field type it is
// stored as, any extra mapping attributes, and a validator that checks and
// normalizes a value before it is sent to the store.
type Field interface {
	// StoreType returns the Elasticsearch field type name, e.g. "keyword".
	StoreType() string
	// Attrs returns extra mapping attributes for the field, or nil.
	Attrs() map[string]any
	// Validate checks v and returns its normalized form.
	Validate(v any) (any, error)
}

// Optional wraps a field so that an absent or null value is accepted.
// Present values are still validated.
func Optional(f Field) Field {
	return optionalField{f}
}

type optionalField struct {
	Field
}

// IsOptional reports whether f tolerates an absent value.
func IsOptional(f Field) bool {
	_, ok := f.(optionalField)
	return ok
}

// Keyword is an exact-match string field. Values must be non-empty strings.
type Keyword struct {
	// IgnoreAbove, when set, is emitted as the ignore_above mapping attribute.
	IgnoreAbove int
}

func (Keyword) StoreType() string { return "keyword" }

func (f Keyword) Attrs() map[string]any {
	if f.IgnoreAbove == 0 {
		return nil
	}
	return map[string]any{"ignore_above": f.IgnoreAbove}
}

func (Keyword) Validate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("keyword value must be a string, got %T", v)
	}
	if s == "" {
		return nil, fmt.Errorf("keyword value must not be empty")
	}
	return s, nil
}

// Text is a full-text analyzed string field.
type Text struct {
	Analyzer string
}

func (Text) StoreType() string { return "text" }

func (f Text) Attrs() map[string]any {
	if f.Analyzer == "" {
		return nil
	}
	return map[string]any{"analyzer": f.Analyzer}
}

func (Text) Validate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("text value must be a string, got %T", v)
	}
	return s, nil
}

// Integer is a signed integer field. String and float values are coerced
// when they represent whole numbers.
type Integer struct{}

func (Integer) StoreType() string { return "integer" }

func (Integer) Attrs() map[string]any { return nil }

func (Integer) Validate(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		i := int64(n)
		if float64(i) != n {
			return nil, fmt.Errorf("invalid integer value %v", n)
		}
		return i, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid integer value %q", n)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value %q", n)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("invalid integer value %v", v)
	}
}

// Float is a floating point field.
type Float struct{}

func (Float) StoreType() string { return "float" }

func (Float) Attrs() map[string]any { return nil }

func (Float) Validate(v any) (any, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid float value %q", n)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value %q", n)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("invalid float value %v", v)
	}
}

// Boolean is a true/false field. The strings "true" and "false" are coerced.
type Boolean struct{}

func (Boolean) StoreType() string { return "boolean" }

func (Boolean) Attrs() map[string]any { return nil }

func (Boolean) Validate(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch b {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean value %q", b)
	default:
		return nil, fmt.Errorf("invalid boolean value %v", v)
	}
}

// IP is an IPv4/IPv6 address field.
type IP struct{}

func (IP) StoreType() string { return "ip" }

func (IP) Attrs() map[string]any { return nil }

func (IP) Validate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("ip value must be a string, got %T", v)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ip address %q", s)
	}
	return addr.String(), nil
}

// Date is a point-in-time field. Accepted inputs are time.Time, ISO-8601
// strings, and epoch milliseconds; the normalized value is a UTC time.Time.
type Date struct {
	// Format, when set, is emitted as the format mapping attribute,
	// e.g. "strict_date_optional_time_nanos||epoch_millis".
	Format string
}

func (Date) StoreType() string { return "date" }

func (f Date) Attrs() map[string]any {
	if f.Format == "" {
		return nil
	}
	return map[string]any{"format": f.Format}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (Date) Validate(v any) (any, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("could not parse date from %q", d)
	case int:
		return time.UnixMilli(int64(d)).UTC(), nil
	case int64:
		return time.UnixMilli(d).UTC(), nil
	case float64:
		// Epoch milliseconds; the fraction preserves sub-millisecond precision.
		return time.UnixMilli(int64(d)).UTC(), nil
	default:
		return nil, fmt.Errorf("could not parse date from %v", v)
	}
}

// Version is a software-version string field with semver ordering in the store.
type Version struct{}

func (Version) StoreType() string { return "version" }

func (Version) Attrs() map[string]any { return nil }

func (Version) Validate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("version value must be a string, got %T", v)
	}
	return s, nil
}

// GUID is a keyword field whose values must be RFC 4122 UUIDs.
type GUID struct{}

func (GUID) StoreType() string { return "keyword" }

func (GUID) Attrs() map[string]any { return nil }

func (GUID) Validate(v any) (any, error) {
	switch g := v.(type) {
	case uuid.UUID:
		return g.String(), nil
	case string:
		parsed, err := uuid.Parse(g)
		if err != nil {
			return nil, fmt.Errorf("invalid guid %q: %w", g, err)
		}
		return parsed.String(), nil
	default:
		return nil, fmt.Errorf("invalid guid %v", v)
	}
}
