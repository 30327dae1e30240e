package prompt

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Template is a system prompt paired with a user prompt template.
type Template struct {
	System   string `yaml:"system"`
	Template string `yaml:"template"`
}

// Catalog holds prompt overrides keyed by flow name.
type Catalog map[string]Template

type catalogFile struct {
	Prompts map[string]Template `yaml:"prompts"`
}

// LoadCatalog reads a YAML prompt catalog. An empty path yields an empty catalog.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Catalog{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading prompt catalog: %s", path)
	}

	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML prompt catalog and checks every template is well formed.
func ParseCatalog(raw []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrap(err, "decoding prompt catalog yaml")
	}

	catalog := make(Catalog, len(file.Prompts))
	for name, tmpl := range file.Prompts {
		trimmedName := strings.TrimSpace(name)
		if trimmedName == "" {
			return nil, eris.New("prompt catalog entry has an empty name")
		}
		if _, err := Placeholders(tmpl.Template); err != nil {
			return nil, eris.Wrapf(err, "validating prompt %s", trimmedName)
		}
		catalog[trimmedName] = Template{
			System:   strings.TrimSpace(tmpl.System),
			Template: tmpl.Template,
		}
	}

	return catalog, nil
}

// Resolve returns the override for name merged over fallback. Blank override fields keep the fallback.
func (c Catalog) Resolve(name string, fallback Template) Template {
	override, ok := c[name]
	if !ok {
		return fallback
	}

	resolved := fallback
	if override.System != "" {
		resolved.System = override.System
	}
	if strings.TrimSpace(override.Template) != "" {
		resolved.Template = override.Template
	}
	return resolved
}

// CheckFields verifies the template only references the allowed field names and
// references every required one.
func CheckFields(template string, allowed, required []string) error {
	names, err := Placeholders(template)
	if err != nil {
		return err
	}

	permitted := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		permitted[name] = struct{}{}
	}

	referenced := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := permitted[name]; !ok {
			return eris.Errorf("placeholder %s is not an input field (allowed: %s)", name, strings.Join(allowed, ", "))
		}
		referenced[name] = struct{}{}
	}

	for _, name := range required {
		if _, ok := referenced[name]; !ok {
			return eris.Errorf("template does not reference required placeholder %s", name)
		}
	}

	return nil
}
