package domain

import "strings"

// ToolCategory groups tools by the kind of conversion they perform.
type ToolCategory string

const (
	CategoryCAD      ToolCategory = "cad"
	CategoryBinary   ToolCategory = "binary"
	CategoryDocument ToolCategory = "document"
	CategoryOther    ToolCategory = "other"
)

// ParseToolCategory validates a category value.
func ParseToolCategory(v string) (ToolCategory, bool) {
	switch c := ToolCategory(strings.ToLower(strings.TrimSpace(v))); c {
	case CategoryCAD, CategoryBinary, CategoryDocument, CategoryOther:
		return c, true
	}
	return "", false
}

// ToolDescriptor carries the capability metadata of a registered tool.
type ToolDescriptor struct {
	ID           string
	InputKinds   []string
	OutputKind   string
	Category     ToolCategory
	RequiredPlan PlanTier
	VectorOnly   bool
	// Restricted is advisory. Enforcement happens through RequiredPlan.
	Restricted bool
}

// Accepts reports whether kind is one of the tool's input kinds.
func (d ToolDescriptor) Accepts(kind string) bool {
	kind = strings.ToLower(kind)
	for _, k := range d.InputKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// RequiresSignature reports whether inputs must carry a binary format signature.
func (d ToolDescriptor) RequiresSignature() bool {
	return d.Category == CategoryBinary && d.Accepts("bin")
}
