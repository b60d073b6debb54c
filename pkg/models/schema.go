package models

// Field describes one column of the record schema.
type Field struct {
	// Name is the serialized field name
	Name string `json:"name"`
	// Type is one of string, double, timestamp
	Type string `json:"type"`
}

// RecordSchema lists the record fields in serialization order. Exporters,
// the SQL schema and the statistics field set all follow this order.
var RecordSchema = []Field{
	{Name: "tender_id", Type: "string"},
	{Name: "organization", Type: "string"},
	{Name: "category", Type: "string"},
	{Name: "location", Type: "string"},
	{Name: "value", Type: "double"},
	{Name: "deadline", Type: "timestamp"},
	{Name: "description", Type: "string"},
	{Name: "link", Type: "string"},
}

// FieldNames returns the names of RecordSchema in order.
func FieldNames() []string {
	names := make([]string, len(RecordSchema))
	for i, f := range RecordSchema {
		names[i] = f.Name
	}
	return names
}
