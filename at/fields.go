package at

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldKind discriminates the value held by a Field.
type FieldKind int

const (
	FieldNull   FieldKind = iota // placeholder in the no-AP sentinel record
	FieldInt                     // field parsed as an integer
	FieldString                  // unquoted string field
)

// Field is one positional value from a comma-separated reply line. The
// module does not name its fields, so a field is just an int, a string,
// or the null placeholder.
type Field struct {
	Kind FieldKind
	Int  int
	Str  string
}

// Int returns an integer field.
func Int(v int) Field { return Field{Kind: FieldInt, Int: v} }

// Str returns a string field.
func Str(s string) Field { return Field{Kind: FieldString, Str: s} }

// Null returns the null field used in the no-AP sentinel record.
func Null() Field { return Field{Kind: FieldNull} }

// ParseFields splits a reply line body on commas and types each field:
// integer parse first, otherwise one surrounding quote pair is stripped
// and the field kept as a string.
func ParseFields(body string) []Field {
	parts := strings.Split(body, ",")
	fields := make([]Field, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			fields[i] = Int(n)
			continue
		}
		if len(part) >= 2 && part[0] == '"' && part[len(part)-1] == '"' {
			part = part[1 : len(part)-1]
		}
		fields[i] = Str(part)
	}
	return fields
}

// Lines splits a reply payload on CRLF, dropping empty lines.
func Lines(payload []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(payload), CRLF) {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// MarshalJSON renders the field as a bare JSON number, string, or null.
func (f Field) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FieldInt:
		return json.Marshal(f.Int)
	case FieldString:
		return json.Marshal(f.Str)
	default:
		return []byte("null"), nil
	}
}
