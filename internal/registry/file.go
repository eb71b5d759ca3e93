package registry

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pdfgate/internal/domain"
)

type fileSchema struct {
	Tools map[string]toolSchema `yaml:"tools"`
}

type toolSchema struct {
	Input        []string `yaml:"input"`
	Output       string   `yaml:"output"`
	Category     string   `yaml:"category"`
	PlanRequired string   `yaml:"plan_required"`
	VectorOnly   bool     `yaml:"vector_only"`
	Restricted   bool     `yaml:"restricted"`
}

// Load returns the builtin table merged with the tools declared in the YAML
// file at path. An empty path returns the builtin table.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	defer f.Close()
	extra, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	return New(append(builtinTools(), extra...)...), nil
}

// Decode parses tool descriptors from YAML.
func Decode(r io.Reader) ([]domain.ToolDescriptor, error) {
	var doc fileSchema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	out := make([]domain.ToolDescriptor, 0, len(doc.Tools))
	for id, t := range doc.Tools {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("tool id is required")
		}
		category, ok := domain.ParseToolCategory(t.Category)
		if !ok {
			return nil, fmt.Errorf("tool %q: unknown category %q", id, t.Category)
		}
		plan := domain.PlanFree
		if t.PlanRequired != "" {
			plan, ok = domain.ParsePlanTier(t.PlanRequired)
			if !ok {
				return nil, fmt.Errorf("tool %q: unknown plan_required %q", id, t.PlanRequired)
			}
		}
		inputs := make([]string, 0, len(t.Input))
		for _, in := range t.Input {
			inputs = append(inputs, strings.ToLower(strings.TrimSpace(in)))
		}
		out = append(out, domain.ToolDescriptor{
			ID:           id,
			InputKinds:   inputs,
			OutputKind:   strings.ToLower(strings.TrimSpace(t.Output)),
			Category:     category,
			RequiredPlan: plan,
			VectorOnly:   t.VectorOnly,
			Restricted:   t.Restricted,
		})
	}
	return out, nil
}
