package resource

// DefaultDefinitions returns the built-in story/tag/person resource types
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:       "stories",
			Type:       "story",
			Attributes: []string{"title", "description", "body"},
			Relationships: []RelationshipDefinition{
				{Key: "tags", Type: "many", Entity: "tags"},
				{Key: "author", Type: "one", Entity: "people"},
			},
		},
		{
			Name:       "tags",
			Type:       "tag",
			Attributes: []string{"name"},
		},
		{
			Name:       "people",
			Type:       "person",
			Attributes: []string{"name", "email"},
		},
	}
}
