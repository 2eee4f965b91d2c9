package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a resource type is not registered
	ErrUnknownType = errors.New("unknown resource type")

	// ErrUnknownRelationship is returned when a relationship key is not declared on a type
	ErrUnknownRelationship = errors.New("unknown relationship")
)

// LookupError describes a failed registry lookup
type LookupError struct {
	Kind error // ErrUnknownType or ErrUnknownRelationship
	Type string
	Key  string
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Kind == ErrUnknownRelationship {
		return fmt.Sprintf("The relationship '%s' does not exist on model '%s'", e.Key, e.Type)
	}
	return fmt.Sprintf("No API resource exists for type: %s", e.Type)
}

// Unwrap returns the sentinel kind so errors.Is works
func (e *LookupError) Unwrap() error {
	return e.Kind
}

// IsUnknownType returns true if the error is ErrUnknownType
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// IsUnknownRelationship returns true if the error is ErrUnknownRelationship
func IsUnknownRelationship(err error) bool {
	return errors.Is(err, ErrUnknownRelationship)
}
