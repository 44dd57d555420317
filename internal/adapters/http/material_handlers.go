package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/infrastructure/report/excel"
)

func (rt *Router) listWorkItems(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	status := domain.WorkItemStatus(r.URL.Query().Get("status"))
	items, err := rt.ledger.WorkItems(r.Context(), id, r.PathValue("id"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work_items": items})
}

func (rt *Router) availableMaterials(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	materials, err := rt.ledger.AvailableMaterials(r.Context(), id, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"materials": materials})
}

func (rt *Router) reportProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Progress    *float64                 `json:"progress"`
		Consumption []domain.ConsumptionLine `json:"consumption"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	item, err := rt.ledger.ReportProgress(r.Context(), id, r.PathValue("id"), req.Progress, req.Consumption)
	if err != nil {
		if _, ok := domain.AsInsufficientMaterial(err); ok && rt.opts.Metrics != nil {
			rt.opts.Metrics.RecordConsumptionRejected(rt.opts.Service)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// projectBalance serves the delivered/consumed/remaining totals per material.
// With ?format=xlsx the same data is returned as a spreadsheet attachment.
func (rt *Router) projectBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	projectID := r.PathValue("id")
	balance, err := rt.ledger.ProjectBalance(r.Context(), id, projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
		return
	}

	project, err := rt.lifecycle.Get(r.Context(), id, projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "material-balance-"+projectID+".xlsx"))
	if err := excel.WriteBalance(w, project.Name, balance); err != nil {
		// Headers are already written, so the client sees a truncated download.
		slog.Error("balance_report_failed", "project_id", projectID, "error", err)
	}
}
