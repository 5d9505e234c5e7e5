// Package answer defines the single value a quiz page resolves to and the
// lossy text-to-number helpers every extraction strategy shares.
package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the active variant of a Value.
type Kind int

const (
	KindUnresolved Kind = iota
	KindNumber
	KindBoolean
	KindText
)

// String returns the lower-case variant name used in API responses.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindText:
		return "text"
	default:
		return "unresolved"
	}
}

// SnippetLimit bounds the Unresolved snippet, in characters.
const SnippetLimit = 1000

// Value is a tagged union: exactly one of Number, Boolean, Text or
// Unresolved is active. The zero Value is Unresolved with an empty snippet.
type Value struct {
	kind Kind
	num  float64
	b    bool
	text string
}

// Number wraps a numeric answer.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Boolean wraps a boolean answer.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Text wraps a free-form answer.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Unresolved carries a preview of the page text, truncated to SnippetLimit
// characters, for a human to inspect.
func Unresolved(snippet string) Value {
	return Value{kind: KindUnresolved, text: truncateRunes(snippet, SnippetLimit)}
}

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric payload and whether v is a Number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean payload and whether v is a Boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBoolean }

// Str returns the text payload and whether v is Text.
func (v Value) Str() (string, bool) { return v.text, v.kind == KindText }

// Snippet returns the page preview and whether v is Unresolved.
func (v Value) Snippet() (string, bool) { return v.text, v.kind == KindUnresolved }

// Resolved reports whether any strategy produced the value.
func (v Value) Resolved() bool { return v.kind != KindUnresolved }

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindText:
		return v.text
	default:
		return fmt.Sprintf("unresolved(%d chars)", utf8.RuneCountInString(v.text))
	}
}

type unresolvedJSON struct {
	Snippet string `json:"unresolved_text_snippet"`
}

// MarshalJSON encodes the active variant as a bare JSON number, bool or
// string; Unresolved becomes {"unresolved_text_snippet": "..."}.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindText:
		return json.Marshal(v.text)
	default:
		return json.Marshal(unresolvedJSON{Snippet: v.text})
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var u unresolvedJSON
		if err := json.Unmarshal(data, &u); err == nil {
			if _, ok := objectKeys(data)["unresolved_text_snippet"]; ok {
				*v = Unresolved(u.Snippet)
				return nil
			}
		}
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("answer: decode value: %w", err)
	}
	*v = FromJSON(raw)
	return nil
}

// FromJSON applies the typing rule for an explicit "answer" field: JSON
// numbers become Number, booleans Boolean, strings Text, and any other JSON
// value (object, array, null) Text of its compact JSON literal.
func FromJSON(raw any) Value {
	switch t := raw.(type) {
	case float64:
		return Number(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case bool:
		return Boolean(t)
	case string:
		return Text(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Text(fmt.Sprint(t))
		}
		return Text(string(b))
	}
}

// FieldFromJSON parses text as a JSON object and returns its "answer" field.
// ok is false when text is not an object, has no such key, or the field is
// null: a null answer carries nothing to submit.
func FieldFromJSON(text string) (Value, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return Value{}, false
	}
	raw, present := obj["answer"]
	if !present || raw == nil {
		return Value{}, false
	}
	return FromJSON(raw), true
}

func objectKeys(data []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	_ = json.Unmarshal(data, &m)
	return m
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
