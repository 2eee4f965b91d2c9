package resource

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Registry is the static table of resource schemas, built once at startup.
// It is safe for concurrent use because nothing mutates it after construction.
type Registry struct {
	schemas map[string]*Schema
	dropped []DroppedRelationship
}

// DroppedRelationship records a relationship entry that was ignored
type DroppedRelationship struct {
	Type   string
	Key    string
	Reason string
}

// Option configures registry construction
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger logs relationship entries that are dropped during construction
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewRegistry builds a registry from declarative definitions.
// Structural problems (missing names, duplicate types, overlapping attribute and
// relationship keys) are returned together. Malformed relationship entries are
// not errors: they are dropped and reported through Dropped.
func NewRegistry(defs []Definition, opts ...Option) (*Registry, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var result *multierror.Error
	r := &Registry{schemas: make(map[string]*Schema, len(defs))}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("resource %q: %w", def.Name, err))
			continue
		}
		if _, exists := r.schemas[def.Name]; exists {
			result = multierror.Append(result, fmt.Errorf("resource %s is already registered", def.Name))
			continue
		}
		if err := checkFieldNames(def); err != nil {
			result = multierror.Append(result, err)
			continue
		}

		singular := def.Type
		if singular == "" {
			singular = def.Name
		}
		r.schemas[def.Name] = &Schema{
			Name:       def.Name,
			Singular:   singular,
			attributes: append([]string(nil), def.Attributes...),
			relIndex:   make(map[string]int),
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	// Second pass: relationship targets may reference types declared later.
	for _, def := range defs {
		schema := r.schemas[def.Name]
		for _, rel := range def.Relationships {
			reason := r.relationshipProblem(rel)
			if reason != "" {
				r.dropped = append(r.dropped, DroppedRelationship{Type: def.Name, Key: rel.Key, Reason: reason})
				o.logger.Warn("dropping relationship definition",
					zap.String("type", def.Name),
					zap.String("key", rel.Key),
					zap.String("reason", reason),
				)
				continue
			}
			schema.relIndex[rel.Key] = len(schema.relationships)
			schema.relationships = append(schema.relationships, Relationship{
				Key:         rel.Key,
				Cardinality: Cardinality(rel.Type),
				Target:      rel.Entity,
			})
		}
	}

	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error
func MustNewRegistry(defs []Definition, opts ...Option) *Registry {
	r, err := NewRegistry(defs, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) relationshipProblem(rel RelationshipDefinition) string {
	switch {
	case rel.Key == "":
		return "empty key"
	case !Cardinality(rel.Type).Valid():
		return fmt.Sprintf("unsupported cardinality %q", rel.Type)
	case rel.Entity == "":
		return "empty entity"
	case r.schemas[rel.Entity] == nil:
		return fmt.Sprintf("entity %q is not registered", rel.Entity)
	}
	return ""
}

// checkFieldNames enforces unique attributes and disjoint attribute/relationship keys
func checkFieldNames(def Definition) error {
	var result *multierror.Error
	seen := make(map[string]bool, len(def.Attributes))
	for _, attr := range def.Attributes {
		if seen[attr] {
			result = multierror.Append(result, fmt.Errorf("resource %s: duplicate attribute %s", def.Name, attr))
		}
		seen[attr] = true
	}
	for _, rel := range def.Relationships {
		if seen[rel.Key] {
			result = multierror.Append(result,
				fmt.Errorf("resource %s: %s is declared as both attribute and relationship", def.Name, rel.Key))
		}
	}
	return result.ErrorOrNil()
}

// Exists checks if a resource type is registered
func (r *Registry) Exists(name string) bool {
	_, ok := r.schemas[name]
	return ok
}

// Types returns all registered type names, sorted
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered types
func (r *Registry) Count() int {
	return len(r.schemas)
}

// Schema returns the schema for a type
func (r *Registry) Schema(name string) (*Schema, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return nil, &LookupError{Kind: ErrUnknownType, Type: name}
	}
	return schema, nil
}

// Relationships returns the ordered valid relationships of a type
func (r *Registry) Relationships(name string) ([]Relationship, error) {
	schema, err := r.Schema(name)
	if err != nil {
		return nil, err
	}
	return schema.Relationships(), nil
}

// Relationship returns a single relationship of a type
func (r *Registry) Relationship(name, key string) (Relationship, error) {
	schema, err := r.Schema(name)
	if err != nil {
		return Relationship{}, err
	}
	rel, ok := schema.Relationship(key)
	if !ok {
		return Relationship{}, &LookupError{Kind: ErrUnknownRelationship, Type: name, Key: key}
	}
	return rel, nil
}

// HasRelationship reports whether key is a valid relationship of the type
func (r *Registry) HasRelationship(name, key string) bool {
	_, err := r.Relationship(name, key)
	return err == nil
}

// Dropped returns the relationship entries ignored during construction
func (r *Registry) Dropped() []DroppedRelationship {
	out := make([]DroppedRelationship, len(r.dropped))
	copy(out, r.dropped)
	return out
}
