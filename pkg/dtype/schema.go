package dtype

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field describes a single named, typed column.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema is an ordered list of fields. Order matters: two schemas with
// the same fields in a different order are not equal.
type Schema struct {
	Fields []Field
}

// NewSchema creates a schema from the given fields.
func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.Fields) }

// Field returns the field with the given name and whether it exists.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether two schemas have identical names and types in
// identical order. Nullability does not participate in equality.
func (s *Schema) Equal(other *Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f.Name != other.Fields[i].Name || f.Type != other.Fields[i].Type {
			return false
		}
	}
	return true
}

// String renders the schema as "name:type, ..." for error reporting.
func (s *Schema) String() string {
	var sb strings.Builder
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte(':')
		sb.WriteString(f.Type.String())
	}
	return sb.String()
}

// ToArrow converts the schema to an Arrow schema.
func (s *Schema) ToArrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type.ToArrow(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// SchemaFromArrow converts an Arrow schema to a logical schema.
func SchemaFromArrow(as *arrow.Schema) (*Schema, error) {
	fields := make([]Field, len(as.Fields()))
	for i, f := range as.Fields() {
		t, err := FromArrow(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{Name: f.Name, Type: t, Nullable: f.Nullable}
	}
	return &Schema{Fields: fields}, nil
}
