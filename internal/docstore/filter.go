package docstore

import (
	"fmt"
	"reflect"
	"sort"
)

// FilterOp is a query comparison.
type FilterOp string

const (
	OpEqual         FilterOp = "=="
	OpArrayContains FilterOp = "array-contains"
)

// Filter restricts a Query to documents whose Field satisfies Op against Value.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Where builds a Filter.
func Where(field string, op FilterOp, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Matcher is a compiled set of filters.
type Matcher struct {
	filters []Filter
}

// Compile validates filters and normalises their values so they compare
// equal to decoded document values.
func Compile(filters ...Filter) (*Matcher, error) {
	compiled := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f.Op != OpEqual && f.Op != OpArrayContains {
			return nil, fmt.Errorf("%w: %q", ErrBadFilter, f.Op)
		}
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		compiled = append(compiled, Filter{Field: f.Field, Op: f.Op, Value: v})
	}
	return &Matcher{filters: compiled}, nil
}

// Match reports whether doc satisfies every filter.
func (m *Matcher) Match(doc Document) bool {
	for _, f := range m.filters {
		got, ok := doc[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(got, f.Value) {
				return false
			}
		case OpArrayContains:
			items, ok := got.([]any)
			if !ok || !containsValue(items, f.Value) {
				return false
			}
		}
	}
	return true
}

// Select filters snapshots and orders them by document id.
func (m *Matcher) Select(snaps []Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.Exists && m.Match(s.Data) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path.ID < out[j].Path.ID })
	return out
}

func containsValue(items []any, v any) bool {
	for _, item := range items {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
