// Package document translates between JSON:API wire documents and store records.
package document

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Document is a top-level JSON:API document carrying either a single
// resource (possibly null) or a collection of resources.
type Document struct {
	Data       *Resource
	Collection []*Resource
	Many       bool
	Links      *Links
}

type wireDocument struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Links *Links          `json:"links,omitempty"`
}

// MarshalJSON always emits the data member: null, an object or an array
func (d Document) MarshalJSON() ([]byte, error) {
	var data any
	switch {
	case d.Many:
		collection := d.Collection
		if collection == nil {
			collection = []*Resource{}
		}
		data = collection
	case d.Data != nil:
		data = d.Data
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireDocument{Data: raw, Links: d.Links})
}

// UnmarshalJSON accepts an object, an array or null as primary data.
// A missing or null data member leaves Data nil.
func (d *Document) UnmarshalJSON(b []byte) error {
	var w wireDocument
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Document{Links: w.Links}

	raw := bytes.TrimSpace(w.Data)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil
	case raw[0] == '[':
		d.Many = true
		return json.Unmarshal(raw, &d.Collection)
	default:
		d.Data = &Resource{}
		return json.Unmarshal(raw, d.Data)
	}
}

// Resource is a JSON:API resource object
type Resource struct {
	Type          string                   `json:"type,omitempty"`
	ID            string                   `json:"id,omitempty"`
	Attributes    map[string]any           `json:"attributes"`
	Relationships map[string]*Relationship `json:"relationships,omitempty"`
	Links         *Links                   `json:"links,omitempty"`
}

// Relationship is a JSON:API relationship object. Data is always emitted;
// a nil Data renders as null.
type Relationship struct {
	Data  *Linkage `json:"data"`
	Links *Links   `json:"links,omitempty"`
}

// Linkage is the resource linkage of a relationship: one identifier or many
type Linkage struct {
	One    *Identifier
	Many   []Identifier
	IsMany bool
}

// ToOne builds a to-one linkage; an empty id yields null linkage
func ToOne(typ, id string) *Linkage {
	if id == "" {
		return &Linkage{}
	}
	return &Linkage{One: &Identifier{Type: typ, ID: id}}
}

// ToMany builds a to-many linkage over the given ids
func ToMany(typ string, ids []string) *Linkage {
	l := &Linkage{IsMany: true, Many: make([]Identifier, 0, len(ids))}
	for _, id := range ids {
		l.Many = append(l.Many, Identifier{Type: typ, ID: id})
	}
	return l
}

// IDs returns the non-empty identifiers in the linkage, in order
func (l *Linkage) IDs() []string {
	if l == nil {
		return nil
	}
	var ids []string
	if l.IsMany {
		for _, ident := range l.Many {
			if ident.ID != "" {
				ids = append(ids, ident.ID)
			}
		}
		return ids
	}
	if l.One != nil && l.One.ID != "" {
		ids = append(ids, l.One.ID)
	}
	return ids
}

// MarshalJSON renders an array for to-many linkage and an object or null otherwise
func (l Linkage) MarshalJSON() ([]byte, error) {
	if l.IsMany {
		many := l.Many
		if many == nil {
			many = []Identifier{}
		}
		return json.Marshal(many)
	}
	if l.One == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l.One)
}

// UnmarshalJSON accepts an identifier object, an array of them, or null.
// Null entries inside an array are skipped.
func (l *Linkage) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	*l = Linkage{}

	switch {
	case bytes.Equal(raw, []byte("null")):
		return nil
	case len(raw) > 0 && raw[0] == '[':
		var entries []*Identifier
		if err := json.Unmarshal(raw, &entries); err != nil {
			return err
		}
		l.IsMany = true
		l.Many = make([]Identifier, 0, len(entries))
		for _, e := range entries {
			if e != nil {
				l.Many = append(l.Many, *e)
			}
		}
		return nil
	default:
		l.One = &Identifier{}
		return json.Unmarshal(raw, l.One)
	}
}

// Identifier is a resource identifier object
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Links holds the link members emitted by the API
type Links struct {
	Self    string `json:"self,omitempty"`
	Related string `json:"related,omitempty"`
}
