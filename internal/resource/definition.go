package resource

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// RelationshipDefinition is the raw, unvalidated relationship entry of a definition.
// Entries with an unsupported type or an empty entity are dropped by the registry.
type RelationshipDefinition struct {
	Key    string `yaml:"-"`
	Type   string `yaml:"type"`
	Entity string `yaml:"entity"`
}

// Definition is the declarative configuration of one resource type
type Definition struct {
	Name          string                   `yaml:"-" json:"name"`
	Type          string                   `yaml:"type" json:"type"`
	Attributes    []string                 `yaml:"attributes" json:"attributes"`
	Relationships []RelationshipDefinition `yaml:"-" json:"relationships"`
}

// UnmarshalYAML decodes a definition, keeping relationships in document order
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type          string    `yaml:"type"`
		Attributes    []string  `yaml:"attributes"`
		Relationships yaml.Node `yaml:"relationships"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	d.Type = raw.Type
	d.Attributes = raw.Attributes
	d.Relationships = nil

	if raw.Relationships.Kind != yaml.MappingNode {
		return nil
	}
	content := raw.Relationships.Content
	for i := 0; i+1 < len(content); i += 2 {
		rel := RelationshipDefinition{Key: content[i].Value}
		if value := content[i+1]; value.Kind == yaml.MappingNode {
			if err := value.Decode(&rel); err != nil {
				return fmt.Errorf("relationship %s: %w", rel.Key, err)
			}
			rel.Key = content[i].Value
		}
		d.Relationships = append(d.Relationships, rel)
	}
	return nil
}

// Validate checks the structural rules of a single definition
func (d Definition) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Attributes, validation.Each(validation.Required)),
	)
}

// ParseDefinitions decodes a YAML document mapping type names to definitions.
// The returned slice follows document order.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse resource definitions: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("resource definitions must be a mapping of type name to definition")
	}

	defs := make([]Definition, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		var def Definition
		if err := doc.Content[i+1].Decode(&def); err != nil {
			return nil, fmt.Errorf("resource %s: %w", doc.Content[i].Value, err)
		}
		def.Name = doc.Content[i].Value
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadDefinitions reads resource definitions from a YAML file
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource definitions: %w", err)
	}
	return ParseDefinitions(data)
}
