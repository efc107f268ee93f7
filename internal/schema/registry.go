package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// TemplateField is the reserved discriminator present on every block. It is
// bookkeeping for the renderer and must never appear in prompt documentation.
const TemplateField = "_template"

// loadFailedDoc mirrors the message the editor shows when the schema source
// cannot be read; prompt compilation continues in degraded mode with it.
const loadFailedDoc = "スキーマ定義を読み込めませんでした。"

// FieldDef describes one field of a block schema. Object fields may nest one
// further level of fields; List marks an array-valued field.
type FieldDef struct {
	Name        string     `yaml:"name"`
	Type        string     `yaml:"type"` // string, number, boolean, image, rich-text, object
	Label       string     `yaml:"label,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Required    bool       `yaml:"required,omitempty"`
	List        bool       `yaml:"list,omitempty"`
	Fields      []FieldDef `yaml:"fields,omitempty"`
}

// BlockSchema is the declarative definition of one block type.
type BlockSchema struct {
	Name        string     `yaml:"name"`
	Label       string     `yaml:"label"`
	Description string     `yaml:"description"`
	Fields      []FieldDef `yaml:"fields"`
}

// Registry holds every allowed block schema in registration order.
type Registry struct {
	blocks []BlockSchema
	byName map[string]int
}

// LoadError reports a missing or malformed schema source.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("schema load failed for %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type schemaFile struct {
	Blocks []BlockSchema `yaml:"blocks"`
}

// Load reads the block schema source. On any failure it returns an empty
// registry together with a *LoadError so callers can log and continue in
// degraded mode instead of refusing to serve.
func Load(path string) (*Registry, error) {
	empty := &Registry{byName: map[string]int{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return empty, &LoadError{Path: path, Err: err}
	}

	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return empty, &LoadError{Path: path, Err: errors.Wrap(err, "invalid yaml")}
	}
	if len(file.Blocks) == 0 {
		return empty, &LoadError{Path: path, Err: errors.New("no blocks defined")}
	}

	reg := &Registry{byName: make(map[string]int, len(file.Blocks))}
	for _, b := range file.Blocks {
		if b.Name == "" {
			return empty, &LoadError{Path: path, Err: errors.New("block with empty name")}
		}
		if _, dup := reg.byName[b.Name]; dup {
			return empty, &LoadError{Path: path, Err: fmt.Errorf("duplicate block name %q", b.Name)}
		}
		if err := validateFields(b.Name, b.Fields); err != nil {
			return empty, &LoadError{Path: path, Err: err}
		}
		normalizeFields(b.Fields)
		reg.byName[b.Name] = len(reg.blocks)
		reg.blocks = append(reg.blocks, b)
	}

	log.Debug().Int("blocks", len(reg.blocks)).Str("path", path).Msg("block schemas loaded")
	return reg, nil
}

func validateFields(block string, fields []FieldDef) error {
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("block %q has a field with empty name", block)
		}
		if seen[f.Name] {
			return fmt.Errorf("block %q has duplicate field %q", block, f.Name)
		}
		seen[f.Name] = true
		if len(f.Fields) > 0 {
			if err := validateFields(block+"."+f.Name, f.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeFields defaults an object-typed list field declared without nested
// fields to an empty nested list, so documentation and validation treat it as
// a structurally empty object rather than opaque data.
func normalizeFields(fields []FieldDef) {
	for i := range fields {
		f := &fields[i]
		if f.Type == "object" && f.List && f.Fields == nil {
			f.Fields = []FieldDef{}
		}
		if len(f.Fields) > 0 {
			normalizeFields(f.Fields)
		}
	}
}

// Blocks returns the schemas in registration order.
func (r *Registry) Blocks() []BlockSchema { return r.blocks }

// Names returns the block names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.blocks))
	for _, b := range r.blocks {
		names = append(names, b.Name)
	}
	return names
}

// Get looks up one block schema by name.
func (r *Registry) Get(name string) (BlockSchema, bool) {
	i, ok := r.byName[name]
	if !ok {
		return BlockSchema{}, false
	}
	return r.blocks[i], true
}

// Len reports the number of registered blocks.
func (r *Registry) Len() int { return len(r.blocks) }

// Documentation renders the registry as the markdown listing embedded in the
// prompt: one heading per block in registration order, one bullet per
// top-level field, nested fields indented one level. The reserved _template
// discriminator is omitted. An empty registry yields the degraded-mode line.
func (r *Registry) Documentation() string {
	if len(r.blocks) == 0 {
		return loadFailedDoc
	}

	var sb strings.Builder
	sb.WriteString("このドキュメントは自動生成されています。スキーマ定義に厳密に従ってください。\n\n")
	for _, b := range r.blocks {
		fmt.Fprintf(&sb, "#### `%s` Block\n", b.Name)
		sb.WriteString(b.Description)
		sb.WriteString("\n**フィールド:**\n")
		for _, f := range b.Fields {
			if f.Name == TemplateField {
				continue
			}
			writeFieldLine(&sb, f, "")
			for _, nested := range f.Fields {
				writeFieldLine(&sb, nested, "  ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeFieldLine(sb *strings.Builder, f FieldDef, indent string) {
	typ := f.Type
	if f.List {
		typ += "[]"
	}
	fmt.Fprintf(sb, "%s- `%s` (%s", indent, f.Name, typ)
	if f.Required {
		sb.WriteString(", 必須")
	}
	sb.WriteString(")")
	if f.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Description)
	}
	sb.WriteString("\n")
}
