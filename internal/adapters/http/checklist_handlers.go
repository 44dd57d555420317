package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

func (rt *Router) listTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromContext(r.Context()); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	templates, err := rt.checklists.Templates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (rt *Router) submitChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		ProjectID   string              `json:"project_id"`
		TemplateID  string              `json:"template_id"`
		Answers     map[string]string   `json:"answers"`
		Photos      []string            `json:"photos"`
		Notes       string              `json:"notes"`
		Geolocation *domain.Coordinates `json:"geolocation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	completion, err := rt.checklists.Submit(r.Context(), id, ports.ChecklistSubmission{
		ProjectID:   req.ProjectID,
		TemplateID:  req.TemplateID,
		Answers:     req.Answers,
		Photos:      req.Photos,
		Notes:       req.Notes,
		Geolocation: req.Geolocation,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordChecklistSubmission(rt.opts.Service, string(completion.TemplateType))
	}
	writeJSON(w, http.StatusCreated, completion)
}

func (rt *Router) todayCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	projectID := r.URL.Query().Get("project_id")
	templateID := r.URL.Query().Get("template_id")
	if projectID == "" || templateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id and template_id are required"})
		return
	}

	completion, err := rt.checklists.TodayCompletion(r.Context(), id, projectID, templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completion": completion})
}

func (rt *Router) checklistHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id is required"})
		return
	}

	history, err := rt.checklists.History(r.Context(), id, projectID, domain.ChecklistType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completions": history})
}

func (rt *Router) reviewChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Approve          bool   `json:"approve"`
		Reason           string `json:"reason"`
		AttachedDocument string `json:"attached_document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	completion, err := rt.approvals.Review(r.Context(), id, r.PathValue("id"), req.Approve, req.Reason, req.AttachedDocument)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordReview(rt.opts.Service, string(completion.ApprovalStatus))
	}
	writeJSON(w, http.StatusOK, completion)
}
