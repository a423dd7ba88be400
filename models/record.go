package models

// Field names written as CSV headers.
const (
	FieldName   = "Name"
	FieldPrice  = "Price"
	FieldRating = "Rating"
	FieldData   = "Data"
)

// BookFields is the column order of the book scraper output.
var BookFields = []string{FieldName, FieldPrice, FieldRating}

// DataFields is the column order of the site crawler output.
var DataFields = []string{FieldData}

// Record is one extracted row. Keys are drawn from a fixed field set.
type Record map[string]string

// Values returns the record's values in the order of fields.
// Missing fields yield empty strings.
func (r Record) Values(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = r[f]
	}
	return out
}
