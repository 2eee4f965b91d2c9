package document

import (
	"sort"

	"github.com/iancoleman/strcase"

	"github.com/inkwell-cms/inkwell/internal/resource"
)

// WireKey returns the camelCase key under which a storage field appears on the wire
func WireKey(field string) string {
	return strcase.ToLowerCamel(field)
}

// lookupKey finds the payload entry for a storage field. An exact wire-key
// match wins; otherwise payload keys are normalised and compared in sorted
// order so that the choice among spelling variants is stable.
func lookupKey[T any](payload map[string]T, field string) (T, bool) {
	want := WireKey(field)
	if v, ok := payload[want]; ok {
		return v, true
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if WireKey(k) == want {
			return payload[k], true
		}
	}

	var zero T
	return zero, false
}

// LookupRelationship resolves a relationship by storage key or wire key
func LookupRelationship(schema *resource.Schema, key string) (resource.Relationship, bool) {
	if rel, ok := schema.Relationship(key); ok {
		return rel, true
	}
	want := WireKey(key)
	for _, rel := range schema.Relationships() {
		if WireKey(rel.Key) == want {
			return rel, true
		}
	}
	return resource.Relationship{}, false
}
