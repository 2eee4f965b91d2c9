package document

import (
	"errors"
	"io"

	"github.com/goccy/go-json"

	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
)

// Decode reads a JSON:API document from r. Syntax errors and payloads that
// are not JSON objects are reported as *ValidationError.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewValidationError(MsgNoData)
		}
		return nil, &ValidationError{Message: MsgMalformed, Err: err}
	}
	return &doc, nil
}

// ValidatePayload checks that the document carries a single primary
// resource with a type member and returns it.
func ValidatePayload(doc *Document) (*Resource, error) {
	if doc == nil {
		return nil, NewValidationError(MsgNoData)
	}
	if doc.Many {
		return nil, NewValidationError(MsgDataCollection)
	}
	if doc.Data == nil {
		return nil, NewValidationError(MsgNoData)
	}
	if doc.Data.Type == "" {
		return nil, NewValidationError(MsgNoType)
	}
	return doc.Data, nil
}

// Deserialize converts the primary resource of doc into a record.
// With partial set only the attributes present in the payload are copied;
// otherwise every declared attribute is present, absent ones as nil.
func Deserialize(schema *resource.Schema, doc *Document, partial bool) (store.Record, error) {
	data, err := ValidatePayload(doc)
	if err != nil {
		return nil, err
	}

	record := DeserializeAttributes(schema, data)
	if !partial {
		FillNulls(schema, record)
	}
	ApplyRelationships(schema, record, data.Relationships)
	return record, nil
}

// DeserializeAttributes copies the declared attributes present in the payload,
// explicit nulls included. Undeclared keys are ignored.
func DeserializeAttributes(schema *resource.Schema, data *Resource) store.Record {
	record := store.Record{}
	if data == nil || data.Attributes == nil {
		return record
	}
	for _, attr := range schema.Attributes() {
		if v, ok := lookupKey(data.Attributes, attr); ok {
			record[attr] = v
		}
	}
	return record
}

// FillNulls sets every declared attribute missing from record to nil
func FillNulls(schema *resource.Schema, record store.Record) {
	for _, attr := range schema.Attributes() {
		if _, ok := record[attr]; !ok {
			record[attr] = nil
		}
	}
}

// ApplyRelationships stores a reference for each declared relationship
// present in the payload. To-many references become an ordered sequence with
// empty identifiers dropped; to-one references take the first identifier
// supplied, or nil.
func ApplyRelationships(schema *resource.Schema, record store.Record, rels map[string]*Relationship) {
	if len(rels) == 0 {
		return
	}
	for _, rel := range schema.Relationships() {
		supplied, ok := lookupKey(rels, rel.Key)
		if !ok {
			continue
		}

		var ids []string
		if supplied != nil && supplied.Data != nil {
			ids = supplied.Data.IDs()
		}

		if rel.IsMany() {
			refs := make([]any, 0, len(ids))
			for _, id := range ids {
				refs = append(refs, Reference(rel.Target, id))
			}
			record[rel.Key] = refs
			continue
		}

		if len(ids) == 0 {
			record[rel.Key] = nil
		} else {
			record[rel.Key] = Reference(rel.Target, ids[0])
		}
	}
}

// Reference builds the stored form of a relationship reference
func Reference(typ, id string) map[string]any {
	return map[string]any{"id": id, "type": typ}
}

// ReferenceIDs extracts the non-empty identifiers from a stored relationship
// value: a reference, a sequence of references, or bare identifier strings.
func ReferenceIDs(v any) []string {
	var ids []string
	add := func(item any) {
		if id := referenceID(item); id != "" {
			ids = append(ids, id)
		}
	}

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			add(item)
		}
	case []map[string]any:
		for _, item := range t {
			add(item)
		}
	case []string:
		for _, item := range t {
			add(item)
		}
	default:
		add(v)
	}
	return ids
}

func referenceID(v any) string {
	switch t := v.(type) {
	case map[string]any:
		id, _ := t["id"].(string)
		return id
	case string:
		return t
	default:
		return ""
	}
}
