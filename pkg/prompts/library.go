package prompts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template is one named prompt template for an agent role. Content is a
// text/template body whose fields are the role's placeholder struct.
type Template struct {
	Name        string `yaml:"name"`
	Role        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
	Content     string `yaml:"content"`
}

// Library holds the available prompt templates per role. Built-in
// defaults are always present; templates loaded from YAML files are
// added alongside them, overriding a default with the same name.
type Library struct {
	templates map[string][]Template
}

// DefaultLibrary returns a library containing only the built-in
// templates for the three roles.
func DefaultLibrary() *Library {
	lib := &Library{templates: make(map[string][]Template)}
	lib.add(Template{Name: "Default Game Master", Role: RoleGameMaster, Description: "Default prompt for the Game Master role", Content: defaultGameMasterTemplate})
	lib.add(Template{Name: "Default Player B", Role: RolePlayerB, Description: "Default prompt for the AI Player B", Content: defaultPlayerBTemplate})
	lib.add(Template{Name: "Default Narrator", Role: RoleNarrator, Description: "Default prompt for the game narrator", Content: defaultNarratorTemplate})
	return lib
}

// LoadLibrary builds a library from the YAML files in dir, layered over
// the built-in defaults. A missing or empty directory yields just the
// defaults; a malformed file is an error.
func LoadLibrary(dir string) (*Library, error) {
	lib := DefaultLibrary()
	if dir == "" {
		return lib, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, fmt.Errorf("failed to read prompts directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		tmpl, err := LoadTemplate(path)
		if err != nil {
			return nil, err
		}
		lib.add(*tmpl)
	}

	return lib, nil
}

// LoadTemplate reads and validates a single YAML template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse template file %s: %w", path, err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template file %s: %w", path, err)
	}
	return &tmpl, nil
}

func (l *Library) add(tmpl Template) {
	existing := l.templates[tmpl.Role]
	for i, t := range existing {
		if t.Name == tmpl.Name {
			existing[i] = tmpl
			return
		}
	}
	l.templates[tmpl.Role] = append(existing, tmpl)
}

// Get returns the named template for a role.
func (l *Library) Get(role, name string) (*Template, error) {
	for _, tmpl := range l.templates[role] {
		if tmpl.Name == name {
			return &tmpl, nil
		}
	}
	return nil, fmt.Errorf("no prompt template named %q for role %q", name, role)
}

// Default returns the first template registered for a role, which is
// always the built-in default.
func (l *Library) Default(role string) (*Template, error) {
	templates := l.templates[role]
	if len(templates) == 0 {
		return nil, fmt.Errorf("no prompt templates for role %q", role)
	}
	return &templates[0], nil
}

// Resolve returns the named template for a role, or the role's default
// when name is empty.
func (l *Library) Resolve(role, name string) (*Template, error) {
	if name == "" {
		return l.Default(role)
	}
	return l.Get(role, name)
}

// Names lists the template names available for a role.
func (l *Library) Names(role string) []string {
	names := make([]string, 0, len(l.templates[role]))
	for _, tmpl := range l.templates[role] {
		names = append(names, tmpl.Name)
	}
	return names
}

// Render executes the template with the role's placeholder values.
func (t *Template) Render(data any) (string, error) {
	tmpl, err := template.New(t.Name).Option("missingkey=error").Parse(t.Content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", t.Name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", t.Name, err)
	}
	return buf.String(), nil
}

// Validate checks that the template names a known role, parses, and
// references every placeholder its role requires.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if !slices.Contains(Roles, t.Role) {
		return fmt.Errorf("unknown role %q (expected one of %s)", t.Role, strings.Join(Roles, ", "))
	}
	if _, err := template.New(t.Name).Parse(t.Content); err != nil {
		return fmt.Errorf("template does not parse: %w", err)
	}
	for _, field := range requiredPlaceholders[t.Role] {
		if !strings.Contains(t.Content, "{{."+field+"}}") {
			return fmt.Errorf("template is missing required placeholder {{.%s}}", field)
		}
	}
	return nil
}
