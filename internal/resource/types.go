// Package resource holds the declarative description of every resource type
// the API serves: its attributes and its typed relationships to other types.
package resource

// Cardinality describes how many records a relationship refers to
type Cardinality string

const (
	// One refers to a single related record
	One Cardinality = "one"
	// Many refers to an ordered collection of related records
	Many Cardinality = "many"
)

// Valid reports whether the cardinality is one of the supported values
func (c Cardinality) Valid() bool {
	return c == One || c == Many
}

// String returns the string representation of Cardinality
func (c Cardinality) String() string {
	return string(c)
}

// Relationship is a typed reference from one resource type to another
type Relationship struct {
	Key         string
	Cardinality Cardinality
	Target      string // name of the related resource type
}

// IsMany reports whether the relationship refers to a collection
func (r Relationship) IsMany() bool {
	return r.Cardinality == Many
}

// Schema is the immutable description of a single resource type
type Schema struct {
	// Name is the registry key, used as URL segment and wire document type
	Name string
	// Singular is the human label for a single record (e.g. "story")
	Singular string

	attributes    []string
	relationships []Relationship
	relIndex      map[string]int
}

// Attributes returns the ordered attribute field names
func (s *Schema) Attributes() []string {
	out := make([]string, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// Relationships returns the ordered, valid relationships of the schema
func (s *Schema) Relationships() []Relationship {
	out := make([]Relationship, len(s.relationships))
	copy(out, s.relationships)
	return out
}

// Relationship looks up a relationship by key
func (s *Schema) Relationship(key string) (Relationship, bool) {
	i, ok := s.relIndex[key]
	if !ok {
		return Relationship{}, false
	}
	return s.relationships[i], true
}

// HasAttribute reports whether name is a declared attribute
func (s *Schema) HasAttribute(name string) bool {
	for _, attr := range s.attributes {
		if attr == name {
			return true
		}
	}
	return false
}
