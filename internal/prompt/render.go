package prompt

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
	linesMod   = "lines"
)

// ErrMalformedTemplate is returned when a template contains an unterminated or empty placeholder.
var ErrMalformedTemplate = eris.New("malformed prompt template")

// Fields maps placeholder names to their values. Values are strings or string slices.
type Fields map[string]any

// MissingFieldError reports a placeholder whose value is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("prompt field %q is required", e.Field)
}

// Render substitutes every {{name}} placeholder in template with the matching field.
// A list renders comma separated; {{name|lines}} renders one item per line.
func Render(template string, fields Fields) (string, error) {
	var builder strings.Builder
	builder.Grow(len(template))

	err := walk(template, func(literal string) {
		builder.WriteString(literal)
	}, func(name, modifier string) error {
		value, err := format(fields, name, modifier)
		if err != nil {
			return err
		}
		builder.WriteString(value)
		return nil
	})
	if err != nil {
		return "", err
	}

	return builder.String(), nil
}

// Placeholders returns the distinct placeholder names referenced by template, in order of appearance.
func Placeholders(template string) ([]string, error) {
	seen := make(map[string]struct{})
	names := make([]string, 0)

	err := walk(template, func(string) {}, func(name, _ string) error {
		if _, ok := seen[name]; ok {
			return nil
		}
		seen[name] = struct{}{}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

func walk(template string, onLiteral func(string), onPlaceholder func(name, modifier string) error) error {
	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			onLiteral(rest)
			return nil
		}

		onLiteral(rest[:start])
		rest = rest[start+len(openDelim):]

		end := strings.Index(rest, closeDelim)
		if end < 0 {
			return eris.Wrap(ErrMalformedTemplate, "unterminated placeholder")
		}

		name, modifier, err := parsePlaceholder(rest[:end])
		if err != nil {
			return err
		}
		if err := onPlaceholder(name, modifier); err != nil {
			return err
		}

		rest = rest[end+len(closeDelim):]
	}
}

func parsePlaceholder(raw string) (string, string, error) {
	name, modifier, _ := strings.Cut(raw, "|")
	name = strings.TrimSpace(name)
	modifier = strings.TrimSpace(modifier)

	if name == "" {
		return "", "", eris.Wrap(ErrMalformedTemplate, "empty placeholder name")
	}
	if modifier != "" && modifier != linesMod {
		return "", "", eris.Wrapf(ErrMalformedTemplate, "unknown modifier %q on placeholder %s", modifier, name)
	}

	return name, modifier, nil
}

func format(fields Fields, name, modifier string) (string, error) {
	value, ok := fields[name]
	if !ok || value == nil {
		return "", &MissingFieldError{Field: name}
	}

	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", &MissingFieldError{Field: name}
		}
		return trimmed, nil
	case []string:
		items := compact(v)
		if len(items) == 0 {
			return "", &MissingFieldError{Field: name}
		}
		if modifier == linesMod {
			return strings.Join(items, "\n"), nil
		}
		return strings.Join(items, ", "), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Compact trims every entry and drops the blank ones.
func Compact(values []string) []string {
	return compact(values)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
