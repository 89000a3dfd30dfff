package constants

// Field names, in schema declaration order.
const (
	FieldReferenceNumber = "reference_number"
	FieldTitle           = "title"
	FieldName            = "name"
	FieldIndexNumber     = "index_number"
	FieldYear            = "year"
)

// CanonicalTitle is the boilerplate heading of an A/L examination certificate.
const CanonicalTitle = "General Certificate of Education (Advanced Level) Examination, Sri Lanka."

// FieldSpec binds a field name to the way it is found in certificate text.
// Exactly one of Label or Literal is set: Label is an anchor followed by the
// value, Literal is a fixed phrase that must appear verbatim.
type FieldSpec struct {
	Name    string
	Label   string
	Literal string
}

// IsLiteral reports whether the field is matched by membership rather than anchor.
func (f FieldSpec) IsLiteral() bool { return f.Literal != "" }

var fieldSchema = [...]FieldSpec{
	{Name: FieldReferenceNumber, Label: "My Ref."},
	{Name: FieldTitle, Literal: CanonicalTitle},
	{Name: FieldName, Label: "Name in Full"},
	{Name: FieldIndexNumber, Label: "Index Number"},
	{Name: FieldYear, Label: "Year of Examination"},
}

// Schema returns a copy of the certificate field schema. Every entry is required.
func Schema() []FieldSpec {
	out := make([]FieldSpec, len(fieldSchema))
	copy(out, fieldSchema[:])
	return out
}

// FieldNames returns the schema field names in declaration order.
func FieldNames() []string {
	out := make([]string, 0, len(fieldSchema))
	for _, f := range fieldSchema {
		out = append(out, f.Name)
	}
	return out
}
