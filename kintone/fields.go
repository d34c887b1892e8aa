package kintone

import (
	"encoding/json"
	"strings"
)

// Field is one record field to be written. Optional fields with an empty
// value are left out of the payload entirely; kintone rejects or mis-types
// blank values. A required field with an empty value fails validation.
type Field struct {
	Code     string
	Value    string
	Required bool
}

func Required(code, value string) Field {
	return Field{Code: code, Value: value, Required: true}
}

func Optional(code, value string) Field {
	return Field{Code: code, Value: value}
}

type Fields []Field

type fieldValue struct {
	Value string `json:"value"`
}

func (fs Fields) Validate() error {
	var missing []string
	for _, f := range fs {
		if f.Required && f.Value == "" {
			missing = append(missing, f.Code)
		}
	}
	if len(missing) > 0 {
		return recordStoreError("kintone.Fields.Validate", ErrInvalidRequest, "required fields are empty: "+strings.Join(missing, ", "))
	}
	return nil
}

// Present returns the fields that will be sent.
func (fs Fields) Present() Fields {
	out := make(Fields, 0, len(fs))
	for _, f := range fs {
		if f.Code != "" && f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

func (fs Fields) MarshalJSON() ([]byte, error) {
	record := make(map[string]fieldValue, len(fs))
	for _, f := range fs.Present() {
		record[f.Code] = fieldValue{Value: f.Value}
	}
	return json.Marshal(record)
}

// Record is one record returned by a lookup, keyed by field code.
type Record map[string]FieldValue

type FieldValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// String returns the value of a text-like field, or "" when the field is
// absent or not a string.
func (r Record) String(code string) string {
	fv, ok := r[code]
	if !ok || len(fv.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(fv.Value, &s); err != nil {
		return ""
	}
	return s
}

// Quote renders v as a kintone query string literal.
func Quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
