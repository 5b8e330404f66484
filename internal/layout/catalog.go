package layout

import (
	_ "embed"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinCatalog []byte

// Definition is one catalogue entry as written in YAML.
type Definition struct {
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Brand       string   `yaml:"brand"`
	Colors      []string `yaml:"colors"`
	HTML        string   `yaml:"html"`
}

type catalogFile struct {
	Templates []Definition `yaml:"templates"`
}

type entry struct {
	def  Definition
	tmpl *template.Template
}

// Catalog holds parsed templates keyed by name.
type Catalog struct {
	entries map[string]entry
}

// Builtin parses the embedded catalogue.
func Builtin() (*Catalog, error) {
	return ParseCatalog(builtinCatalog)
}

// ParseCatalog decodes and compiles a YAML catalogue.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode layout catalog: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("layout catalog defines no templates")
	}
	c := &Catalog{entries: make(map[string]entry, len(file.Templates))}
	for _, def := range file.Templates {
		name := strings.ToLower(strings.TrimSpace(def.Name))
		if name == "" {
			return nil, fmt.Errorf("layout catalog: template without name")
		}
		if _, dup := c.entries[name]; dup {
			return nil, fmt.Errorf("layout catalog: duplicate template %q", name)
		}
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(def.HTML)
		if err != nil {
			return nil, fmt.Errorf("layout catalog: parse %q: %w", name, err)
		}
		def.Name = name
		c.entries[name] = entry{def: def, tmpl: tmpl}
	}
	return c, nil
}

// Names returns the template names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definition returns the catalogue entry for name.
func (c *Catalog) Definition(name string) (Definition, bool) {
	e, ok := c.entries[strings.ToLower(strings.TrimSpace(name))]
	return e.def, ok
}
