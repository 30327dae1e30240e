package llm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"keywordtailor/app/internal/markdown"
)

// FieldType is the JSON type expected for an output field.
type FieldType string

const (
	// String is a non-blank JSON string.
	String FieldType = "string"
	// StringList is a JSON array of strings.
	StringList FieldType = "string[]"
)

// Field describes one required output field.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	// MinItems applies to StringList fields and counts entries left after blank ones are dropped.
	MinItems int
}

// Shape declares the output record a prompt must produce. Every field is required.
type Shape struct {
	Name        string
	Description string
	Fields      []Field
}

// JSONSchema renders the shape as a strict JSON schema object.
func (s Shape) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))

	for _, field := range s.Fields {
		property := map[string]any{}
		switch field.Type {
		case StringList:
			property["type"] = "array"
			property["items"] = map[string]any{"type": "string"}
		default:
			property["type"] = "string"
		}
		if field.Description != "" {
			property["description"] = field.Description
		}
		properties[field.Name] = property
		required = append(required, field.Name)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// Instructions describes the expected JSON reply in plain text, for providers without schema support.
func (s Shape) Instructions() string {
	var builder strings.Builder
	builder.WriteString("Respond with a single JSON object and nothing else. It must contain exactly these fields:\n")
	for _, field := range s.Fields {
		kind := "a string"
		if field.Type == StringList {
			kind = "an array of strings"
		}
		fmt.Fprintf(&builder, "- %q: %s", field.Name, kind)
		if field.Description != "" {
			builder.WriteString(" (" + field.Description + ")")
		}
		builder.WriteString("\n")
	}
	return strings.TrimRight(builder.String(), "\n")
}

// Validate parses a provider reply and checks it against the shape. It returns the
// normalised record: only the declared fields, strings trimmed, blank list entries dropped.
func (s Shape) Validate(raw string) (map[string]any, error) {
	content := markdown.StripCodeFence(strings.TrimSpace(raw))
	if content == "" {
		return nil, invalidResponse("reply is empty", nil)
	}

	if !gjson.Valid(content) {
		return nil, invalidResponse("reply is not valid JSON", nil)
	}

	doc := gjson.Parse(content)
	if doc.IsArray() {
		field, ok := s.singleListField()
		if !ok {
			return nil, invalidResponse("reply is a JSON array, expected an object", nil)
		}
		doc = gjson.Parse(fmt.Sprintf(`{%q:%s}`, field.Name, doc.Raw))
	}

	if !doc.IsObject() {
		return nil, invalidResponse("reply is not a JSON object", nil)
	}

	record := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		value := doc.Get(gjsonEscape(field.Name))
		if !value.Exists() {
			return nil, invalidResponse(fmt.Sprintf("field %s is missing", field.Name), nil)
		}

		switch field.Type {
		case StringList:
			items, err := listValue(field, value)
			if err != nil {
				return nil, err
			}
			record[field.Name] = items
		default:
			if value.Type != gjson.String {
				return nil, invalidResponse(fmt.Sprintf("field %s must be a string", field.Name), nil)
			}
			text := strings.TrimSpace(value.String())
			if text == "" {
				return nil, invalidResponse(fmt.Sprintf("field %s is empty", field.Name), nil)
			}
			record[field.Name] = text
		}
	}

	return record, nil
}

func (s Shape) singleListField() (Field, bool) {
	if len(s.Fields) != 1 || s.Fields[0].Type != StringList {
		return Field{}, false
	}
	return s.Fields[0], true
}

func listValue(field Field, value gjson.Result) ([]string, error) {
	if !value.IsArray() {
		return nil, invalidResponse(fmt.Sprintf("field %s must be an array of strings", field.Name), nil)
	}

	elements := value.Array()
	items := make([]string, 0, len(elements))
	for idx, element := range elements {
		if element.Type != gjson.String {
			return nil, invalidResponse(fmt.Sprintf("field %s item %d must be a string", field.Name, idx), nil)
		}
		text := strings.TrimSpace(element.String())
		if text == "" {
			continue
		}
		items = append(items, text)
	}

	if len(items) < field.MinItems {
		return nil, invalidResponse(fmt.Sprintf("field %s needs at least %d items, got %d", field.Name, field.MinItems, len(items)), nil)
	}

	return items, nil
}

var gjsonPathEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
)

func gjsonEscape(name string) string {
	return gjsonPathEscaper.Replace(name)
}
