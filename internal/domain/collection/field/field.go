package field

import (
	"fmt"
	"regexp"
	"strings"
)

// Family is the type family of a metadata field.
type Family string

// Family constants.
const (
	Numeric Family = "numeric"
	String  Family = "string"
	Bool    Family = "bool"
)

// IsValid checks if the family is supported.
func (f Family) IsValid() bool {
	return f == Numeric || f == String || f == Bool
}

// FamilyOf reports the family of a metadata value. ok is false for unsupported values.
func FamilyOf(v any) (Family, bool) {
	switch v.(type) {
	case string:
		return String, true
	case bool:
		return Bool, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Numeric, true
	default:
		return "", false
	}
}

var nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateName checks that a metadata key can be addressed by filters.
// Keys starting with "__" are reserved for storage bookkeeping.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("field name %q too long (max 64)", name)
	}
	if strings.HasPrefix(name, "__") {
		return fmt.Errorf("field name %q is reserved", name)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("field name %q must be an identifier", name)
	}
	return nil
}

// Field is an immutable value object describing a typed metadata field.
type Field struct {
	name   string
	family Family
}

// New validates and creates a Field.
func New(name string, fam Family) (Field, error) {
	if err := ValidateName(name); err != nil {
		return Field{}, err
	}
	if !fam.IsValid() {
		return Field{}, fmt.Errorf("invalid field family %q for %q", fam, name)
	}
	return Field{name: name, family: fam}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, fam Family) Field {
	return Field{name: name, family: fam}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Family returns the field's type family.
func (f Field) Family() Family { return f.family }
