// Package registry holds the static tool capability table.
//
// Lookups for tool ids that are not registered return false. Callers treat
// such tools as unrestricted (DefaultOpen): they are available at every tier
// and are limited only by credits. Every plan-gated tool must therefore be
// registered explicitly.
package registry

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pdfgate/internal/domain"
)

// DefaultOpen documents the policy applied to unregistered tool ids.
const DefaultOpen = true

const (
	BadgePro        = "PRO"
	BadgeEnterprise = "ENTERPRISE"
)

// Registry maps normalized tool ids to descriptors. It is read-only once built.
type Registry struct {
	tools map[string]domain.ToolDescriptor
}

// New builds a registry from descriptors. Ids are normalized; later entries
// replace earlier ones with the same id.
func New(descriptors ...domain.ToolDescriptor) *Registry {
	r := &Registry{tools: make(map[string]domain.ToolDescriptor, len(descriptors))}
	for _, d := range descriptors {
		d.ID = Normalize(d.ID)
		d.InputKinds = append([]string(nil), d.InputKinds...)
		r.tools[d.ID] = d
	}
	return r
}

// Builtin returns the product's tool table.
func Builtin() *Registry {
	return New(builtinTools()...)
}

func builtinTools() []domain.ToolDescriptor {
	return []domain.ToolDescriptor{
		{
			ID:           "dwg_to_pdf",
			InputKinds:   []string{"dwg", "dxf", "dwt"},
			OutputKind:   "pdf",
			Category:     domain.CategoryCAD,
			RequiredPlan: domain.PlanPro,
		},
		{
			ID:           "pdf_to_dwg",
			InputKinds:   []string{"pdf"},
			OutputKind:   "dwg",
			Category:     domain.CategoryCAD,
			RequiredPlan: domain.PlanPro,
			VectorOnly:   true,
		},
		{
			ID:           "cad_to_pdf",
			InputKinds:   []string{"dwg", "dxf"},
			OutputKind:   "pdf",
			Category:     domain.CategoryCAD,
			RequiredPlan: domain.PlanPro,
		},
		{
			ID:           "bin_to_pdf",
			InputKinds:   []string{"bin"},
			OutputKind:   "pdf",
			Category:     domain.CategoryBinary,
			RequiredPlan: domain.PlanEnterprise,
			Restricted:   true,
		},
		{
			ID:           "pdf_to_bin",
			InputKinds:   []string{"pdf"},
			OutputKind:   "bin",
			Category:     domain.CategoryBinary,
			RequiredPlan: domain.PlanEnterprise,
			Restricted:   true,
		},
	}
}

// Normalize converts a human-readable tool name into a registry key: the name
// is lower-cased and every whitespace run becomes a single underscore. The
// name is not trimmed, so surrounding whitespace turns into underscores too.
func Normalize(name string) string {
	lowered := cases.Lower(language.Und).String(name)
	var b strings.Builder
	b.Grow(len(lowered))
	inSpace := false
	for _, r := range lowered {
		if isSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// isSpace matches the whitespace class used by the web client (ECMAScript \s).
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// Lookup returns the descriptor for toolID after normalization.
func (r *Registry) Lookup(toolID string) (domain.ToolDescriptor, bool) {
	if r == nil {
		return domain.ToolDescriptor{}, false
	}
	d, ok := r.tools[Normalize(toolID)]
	return d, ok
}

// Badge returns the upsell badge shown next to a tool name, or "" for tools
// available on the free plan and for unregistered tools.
func (r *Registry) Badge(name string) string {
	d, ok := r.Lookup(name)
	if !ok {
		return ""
	}
	switch d.RequiredPlan {
	case domain.PlanPro:
		return BadgePro
	case domain.PlanEnterprise:
		return BadgeEnterprise
	}
	return ""
}

// All returns every descriptor ordered by id.
func (r *Registry) All() []domain.ToolDescriptor {
	if r == nil {
		return nil
	}
	out := make([]domain.ToolDescriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}
