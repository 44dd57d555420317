package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

// maxUploadBytes bounds delivery note uploads; TTN scans are single pages.
const maxUploadBytes = 20 << 20

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	projectID := r.FormValue("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id is required"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	doc, err := rt.recognition.Upload(r.Context(), id, projectID, fileHeader.Filename, mimeType, file)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordDocumentUpload(rt.opts.Service, mimeType)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) documentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	doc, err := rt.recognition.Status(r.Context(), id, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	// The membership check above already passed, so the long poll can read
	// the document directly.
	if r.URL.Query().Get("wait") == "true" && rt.opts.Waiter != nil && !doc.Status.Terminal() {
		doc, err = rt.opts.Waiter.Wait(r.Context(), doc.ID)
		if err != nil {
			if rt.opts.Metrics != nil && domain.IsKind(err, domain.ErrTimeout) {
				rt.opts.Metrics.RecordRecognitionWaitTimeout(rt.opts.Service)
			}
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) suggestProject(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	suggestion, err := rt.recognition.SuggestProject(r.Context(), id, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (rt *Router) verifyDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		ProjectID string                  `json:"project_id"`
		Items     []domain.RecognizedItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id is required"})
		return
	}

	if err := rt.recognition.Verify(r.Context(), id, r.PathValue("id"), req.ProjectID, req.Items); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
