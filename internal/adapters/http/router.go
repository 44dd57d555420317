package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
	"github.com/KoTeHok22/locus/internal/observability/metrics"
)

// RecognitionWaiter blocks until a document leaves the processing state or
// the wait budget runs out.
type RecognitionWaiter interface {
	Wait(ctx context.Context, documentID string) (*domain.DeliveryDocument, error)
}

type Options struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxWait        time.Duration
	Metrics        *metrics.HTTPServerMetrics
	Waiter         RecognitionWaiter
}

type Router struct {
	lifecycle   ports.ProjectLifecycle
	checklists  ports.ChecklistEngine
	approvals   ports.ApprovalWorkflow
	ledger      ports.MaterialLedger
	recognition ports.RecognitionFrontend
	users       ports.UserDirectory
	opts        Options
}

func NewRouter(
	lifecycle ports.ProjectLifecycle,
	checklists ports.ChecklistEngine,
	approvals ports.ApprovalWorkflow,
	ledger ports.MaterialLedger,
	recognition ports.RecognitionFrontend,
	users ports.UserDirectory,
	opts Options,
) *Router {
	if opts.Service == "" {
		opts.Service = "api"
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}
	return &Router{
		lifecycle:   lifecycle,
		checklists:  checklists,
		approvals:   approvals,
		ledger:      ledger,
		recognition: recognition,
		users:       users,
		opts:        opts,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/projects", rt.createProject)
	api.HandleFunc("GET /v1/projects", rt.listProjects)
	api.HandleFunc("GET /v1/projects/{id}", rt.getProject)
	api.HandleFunc("POST /v1/projects/{id}/members", rt.addMember)
	api.HandleFunc("POST /v1/projects/{id}/activate", rt.activateProject)
	api.HandleFunc("GET /v1/projects/{id}/work-items", rt.listWorkItems)
	api.HandleFunc("GET /v1/projects/{id}/balance", rt.projectBalance)

	api.HandleFunc("GET /v1/checklists/templates", rt.listTemplates)
	api.HandleFunc("POST /v1/checklists", rt.submitChecklist)
	api.HandleFunc("GET /v1/checklists/today", rt.todayCompletion)
	api.HandleFunc("GET /v1/checklists/history", rt.checklistHistory)
	api.HandleFunc("POST /v1/checklists/{id}/review", rt.reviewChecklist)

	api.HandleFunc("GET /v1/work-items/{id}/materials", rt.availableMaterials)
	api.HandleFunc("POST /v1/work-items/{id}/report", rt.reportProgress)

	api.HandleFunc("POST /v1/documents", rt.uploadDocument)
	api.HandleFunc("GET /v1/documents/{id}", rt.documentStatus)
	api.HandleFunc("GET /v1/documents/{id}/suggestion", rt.suggestProject)
	api.HandleFunc("POST /v1/documents/{id}/verify", rt.verifyDocument)

	var protected http.Handler = authMiddleware(rt.users, api)
	protected = backpressureMiddleware(protected, rt.opts.MaxInFlight, rt.opts.MaxWait)
	protected = rateLimitMiddleware(protected, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	root.Handle("/v1/", protected)

	var handler http.Handler = root
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
