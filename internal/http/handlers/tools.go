package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pdfgate/internal/domain"
	"pdfgate/internal/registry"
)

type toolResponse struct {
	ID           string   `json:"id"`
	Input        []string `json:"input"`
	Output       string   `json:"output"`
	Category     string   `json:"category"`
	PlanRequired string   `json:"plan_required"`
	VectorOnly   bool     `json:"vector_only"`
	Restricted   bool     `json:"restricted"`
	Badge        string   `json:"badge,omitempty"`
}

type accessResponse struct {
	Tool    string `json:"tool"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Plan    string `json:"plan,omitempty"`
	Badge   string `json:"badge,omitempty"`
	Action  string `json:"action,omitempty"`
}

func (a *App) toolView(d domain.ToolDescriptor) toolResponse {
	input := d.InputKinds
	if input == nil {
		input = []string{}
	}
	return toolResponse{
		ID:           d.ID,
		Input:        input,
		Output:       d.OutputKind,
		Category:     string(d.Category),
		PlanRequired: string(d.RequiredPlan),
		VectorOnly:   d.VectorOnly,
		Restricted:   d.Restricted,
		Badge:        a.Tools.Badge(d.ID),
	}
}

// ToolsList returns every registered tool with its badge.
func (a *App) ToolsList(w http.ResponseWriter, r *http.Request) {
	all := a.Tools.All()
	items := make([]toolResponse, 0, len(all))
	for _, d := range all {
		items = append(items, a.toolView(d))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// ToolsGet returns one registered tool. Unregistered names are 404 here even
// though they remain runnable.
func (a *App) ToolsGet(w http.ResponseWriter, r *http.Request) {
	d, ok := a.Tools.Lookup(chi.URLParam(r, "tool"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "tool is not registered")
		return
	}
	a.json(w, http.StatusOK, a.toolView(d))
}

// ToolsAccess reports whether the caller may run the tool right now.
func (a *App) ToolsAccess(w http.ResponseWriter, r *http.Request) {
	toolID := registry.Normalize(chi.URLParam(r, "tool"))
	decision := a.Access.Evaluate(r.Context(), a.currentUserID(r), toolID)

	resp := accessResponse{
		Tool:    toolID,
		Allowed: decision.Allowed,
		Reason:  string(decision.Reason),
		Plan:    string(decision.Plan),
		Badge:   a.Tools.Badge(toolID),
	}
	if err := decision.Err(); err != nil {
		if kind, ok := domain.KindOf(err); ok {
			resp.Action = string(errorMappingFor(kind).Action)
		}
	}
	a.json(w, http.StatusOK, resp)
}
