// Package filter narrows a collection by a free-text search term and a set
// of typed field predicates. Everything here is pure: no I/O, no shared state.
package filter

import (
	"strings"
)

// Fields maps a field id to an accessor for that field on T.
// Accessors may return nil, pointers, named string types, numbers, bools,
// time.Time or fmt.Stringer values such as uuid.UUID.
type Fields[T any] map[string]func(T) any

// Predicate decides whether a single normalized field value satisfies a filter
type Predicate interface {
	Match(value any) bool
}

// Filters maps a field id to the predicate applied to it. All entries must
// hold for an item to be kept.
type Filters map[string]Predicate

// Apply returns the items that match searchTerm on at least one searchable
// field and satisfy every active filter. The relative order of items is kept.
//
// Search is a case-insensitive substring match of the term as given,
// whitespace included; absent field values never match. A filter naming a
// field that fields does not define never matches.
func Apply[T any](items []T, searchTerm string, active Filters, fields Fields[T], searchable []string) []T {
	term := strings.ToLower(searchTerm)

	out := make([]T, 0, len(items))
	for _, item := range items {
		if term != "" && !matchesSearch(item, term, fields, searchable) {
			continue
		}
		if !matchesFilters(item, active, fields) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch[T any](item T, term string, fields Fields[T], searchable []string) bool {
	for _, id := range searchable {
		get, ok := fields[id]
		if !ok {
			continue
		}
		text, ok := toText(normalize(get(item)))
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(text), term) {
			return true
		}
	}
	return false
}

func matchesFilters[T any](item T, active Filters, fields Fields[T]) bool {
	for id, pred := range active {
		if pred == nil {
			continue
		}
		get, ok := fields[id]
		if !ok {
			return false
		}
		if !pred.Match(normalize(get(item))) {
			return false
		}
	}
	return true
}
