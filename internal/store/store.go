// Package store provides the collection gateway: one lazily opened document
// collection per resource type, backed by a pluggable driver.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// IDField is the record field holding the store-assigned identifier
const IDField = "_id"

// Record is the flat, storage-native representation of a resource instance
type Record map[string]any

// ID returns the record identifier, or "" if none has been assigned
func (r Record) ID() string {
	if id, ok := r[IDField].(string); ok {
		return id
	}
	return ""
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Query selects records in a collection. The zero value selects every record.
type Query struct {
	// IDs restricts the result to records whose identifier is in the set
	IDs []string
}

// All reports whether the query selects every record
func (q Query) All() bool {
	return q.IDs == nil
}

// Collection is a handle on the records of a single resource type
type Collection interface {
	// Name returns the collection (resource type) name
	Name() string

	// Find returns every record matching the query
	Find(ctx context.Context, q Query) ([]Record, error)

	// FindOne returns the record with the given identifier, or ErrNotFound
	FindOne(ctx context.Context, id string) (Record, error)

	// Insert stores a new record and returns it with its identifier populated
	Insert(ctx context.Context, record Record) (Record, error)

	// Update sets the given fields on an existing record, leaving the rest untouched
	Update(ctx context.Context, id string, partial Record) error

	// Remove deletes the record with the given identifier
	Remove(ctx context.Context, id string) error
}

// Driver opens collections on a storage engine
type Driver interface {
	// Open returns a handle on the named collection, creating it if absent
	Open(ctx context.Context, name string) (Collection, error)

	// Close releases the driver's connections
	Close() error
}

// NewID generates a store identifier. Identifiers are time-ordered so that
// sorting by identifier approximates insertion order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// encodeRecord serialises a record without its identifier
func encodeRecord(record Record) ([]byte, error) {
	doc := record.Clone()
	delete(doc, IDField)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// decodeRecord deserialises a stored document and attaches its identifier
func decodeRecord(id string, data []byte) (Record, error) {
	record := Record{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	record[IDField] = id
	return record, nil
}

// merge applies partial fields onto record with $set semantics
func merge(record, partial Record) Record {
	out := record.Clone()
	for k, v := range partial {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// idSet returns the unique, sorted identifiers of a query
func idSet(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
