// Package schema describes tool input and output contracts as ordered field
// descriptors, validates arguments against them and renders them as JSON Schema.
package schema

// Kind is the value type a field accepts
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBoolean
	KindEnum
	KindArray
	KindObject
)

// String returns the JSON Schema type name for the kind
func (k Kind) String() string {
	switch k {
	case KindString, KindEnum:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// FormatURI marks a string field that must hold an absolute URL
const FormatURI = "uri"

// Field describes one property. Fields are values; the chained helpers return
// modified copies.
type Field struct {
	Kind        Kind
	Description string
	IsOptional  bool
	MinLength   *int
	MaxLength   *int
	Minimum     *float64
	Maximum     *float64
	ItemLimit   *int
	Format      string
	Enum        []string
	Items       *Field

	// Advisory constraints are published but not enforced; the builder
	// normalizes the value instead.
	Advisory bool
}

// String returns a string field
func String() Field { return Field{Kind: KindString} }

// Number returns a number field
func Number() Field { return Field{Kind: KindNumber} }

// Integer returns an integer field
func Integer() Field { return Field{Kind: KindInteger} }

// Boolean returns a boolean field
func Boolean() Field { return Field{Kind: KindBoolean} }

// Object returns a free-form object field
func Object() Field { return Field{Kind: KindObject} }

// Enum returns a string field restricted to values
func Enum(values ...string) Field {
	return Field{Kind: KindEnum, Enum: append([]string(nil), values...)}
}

// ArrayOf returns an array field whose elements match item
func ArrayOf(item Field) Field {
	return Field{Kind: KindArray, Items: &item}
}

// Describe sets the human-readable description
func (f Field) Describe(description string) Field {
	f.Description = description
	return f
}

// Optional marks the field as not required
func (f Field) Optional() Field {
	f.IsOptional = true
	return f
}

// Min sets the inclusive numeric minimum
func (f Field) Min(value float64) Field {
	f.Minimum = &value
	return f
}

// Max sets the inclusive numeric maximum
func (f Field) Max(value float64) Field {
	f.Maximum = &value
	return f
}

// MinLen sets the minimum string length in characters
func (f Field) MinLen(n int) Field {
	f.MinLength = &n
	return f
}

// MaxLen sets the maximum string length in characters
func (f Field) MaxLen(n int) Field {
	f.MaxLength = &n
	return f
}

// MaxItems caps the number of array elements
func (f Field) MaxItems(n int) Field {
	f.ItemLimit = &n
	return f
}

// URL requires an absolute URL
func (f Field) URL() Field {
	f.Format = FormatURI
	return f
}

// AdvisoryOnly publishes range, length and item constraints without
// enforcing them
func (f Field) AdvisoryOnly() Field {
	f.Advisory = true
	return f
}

// Property pairs a field with its name
type Property struct {
	Name  string
	Field Field
}

// Shape is an ordered list of properties. Insertion order is display order.
type Shape []Property

// Prop is shorthand for building a Property
func Prop(name string, field Field) Property {
	return Property{Name: name, Field: field}
}

// Lookup returns the field registered under name
func (s Shape) Lookup(name string) (Field, bool) {
	for _, p := range s {
		if p.Name == name {
			return p.Field, true
		}
	}
	return Field{}, false
}

// Names returns the property names in order
func (s Shape) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Duplicates returns property names declared more than once
func (s Shape) Duplicates() []string {
	seen := make(map[string]bool, len(s))
	var dups []string
	for _, p := range s {
		if seen[p.Name] {
			dups = append(dups, p.Name)
		}
		seen[p.Name] = true
	}
	return dups
}
