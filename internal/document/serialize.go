package document

import (
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
)

// Serialize renders a single record as a document
func Serialize(schema *resource.Schema, record store.Record, ctx RequestContext) *Document {
	return &Document{
		Data:  ResourceObject(schema, record, ctx),
		Links: &Links{Self: ctx.Self()},
	}
}

// SerializeCollection renders records as a collection document, preserving order
func SerializeCollection(schema *resource.Schema, records []store.Record, ctx RequestContext) *Document {
	collection := make([]*Resource, 0, len(records))
	for _, record := range records {
		collection = append(collection, ResourceObject(schema, record, ctx))
	}
	return &Document{
		Collection: collection,
		Many:       true,
		Links:      &Links{Self: ctx.Self()},
	}
}

// SerializeEmpty renders the empty result of a relationship traversal:
// an empty array for to-many, null for to-one.
func SerializeEmpty(many bool, ctx RequestContext) *Document {
	doc := &Document{Many: many, Links: &Links{Self: ctx.Self()}}
	if many {
		doc.Collection = []*Resource{}
	}
	return doc
}

// ResourceObject renders one record. Declared attributes holding nil are
// omitted; every declared relationship is emitted with its linkage and links.
func ResourceObject(schema *resource.Schema, record store.Record, ctx RequestContext) *Resource {
	id := record.ID()
	self := ctx.ResourceURL(schema.Name, id)

	attributes := make(map[string]any, len(schema.Attributes()))
	for _, attr := range schema.Attributes() {
		if v := record[attr]; v != nil {
			attributes[WireKey(attr)] = v
		}
	}

	var relationships map[string]*Relationship
	if rels := schema.Relationships(); len(rels) > 0 {
		relationships = make(map[string]*Relationship, len(rels))
		for _, rel := range rels {
			key := WireKey(rel.Key)
			relationships[key] = &Relationship{
				Data: linkage(rel, record[rel.Key]),
				Links: &Links{
					Self:    self + "/relationships/" + key,
					Related: self + "/" + key,
				},
			}
		}
	}

	return &Resource{
		Type:          schema.Name,
		ID:            id,
		Attributes:    attributes,
		Relationships: relationships,
		Links:         &Links{Self: self},
	}
}

// linkage renders a stored reference. The identifier type is always the
// relationship target.
func linkage(rel resource.Relationship, stored any) *Linkage {
	ids := ReferenceIDs(stored)
	if rel.IsMany() {
		return ToMany(rel.Target, ids)
	}
	if len(ids) == 0 {
		return ToOne(rel.Target, "")
	}
	return ToOne(rel.Target, ids[0])
}
