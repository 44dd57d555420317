package ports

import (
	"context"
	"io"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

// ProjectLifecycle is the inbound contract for project creation, membership
// and the pending→active transition.
type ProjectLifecycle interface {
	Create(ctx context.Context, id domain.Identity, name, address string, polygon []domain.Coordinates) (*domain.Project, error)
	AddMember(ctx context.Context, id domain.Identity, projectID, email string, role domain.Role) error
	Activate(ctx context.Context, id domain.Identity, projectID string) (*domain.Project, error)
	List(ctx context.Context, id domain.Identity) ([]domain.Project, error)
	Get(ctx context.Context, id domain.Identity, projectID string) (*domain.Project, error)
}

// ChecklistSubmission carries one submit call.
type ChecklistSubmission struct {
	ProjectID   string
	TemplateID  string
	Answers     map[string]string
	Photos      []string
	Notes       string
	Geolocation *domain.Coordinates
}

// ChecklistEngine records checklist completions and reads them back.
type ChecklistEngine interface {
	Templates(ctx context.Context) ([]domain.ChecklistTemplate, error)
	Submit(ctx context.Context, id domain.Identity, sub ChecklistSubmission) (*domain.ChecklistCompletion, error)
	TodayCompletion(ctx context.Context, id domain.Identity, projectID, templateID string) (*domain.ChecklistCompletion, error)
	History(ctx context.Context, id domain.Identity, projectID string, checklistType domain.ChecklistType) ([]domain.ChecklistCompletion, error)
}

// ApprovalWorkflow transitions a pending completion to approved or rejected.
type ApprovalWorkflow interface {
	Review(ctx context.Context, id domain.Identity, completionID string, approve bool, reason, attachedDocument string) (*domain.ChecklistCompletion, error)
}

// MaterialLedger is the inbound contract for work progress and consumption.
type MaterialLedger interface {
	WorkItems(ctx context.Context, id domain.Identity, projectID string, status domain.WorkItemStatus) ([]domain.WorkPlanItem, error)
	AvailableMaterials(ctx context.Context, id domain.Identity, workItemID string) ([]domain.AvailableMaterial, error)
	ReportProgress(ctx context.Context, id domain.Identity, workItemID string, progress *float64, lines []domain.ConsumptionLine) (*domain.WorkPlanItem, error)
	ProjectBalance(ctx context.Context, id domain.Identity, projectID string) ([]domain.MaterialBalance, error)
}

// RecognitionFrontend is the inbound contract for the delivery document flow
// on the API side: upload, status reads, suggestion and verification.
type RecognitionFrontend interface {
	Upload(ctx context.Context, id domain.Identity, projectID, filename, mimeType string, body io.Reader) (*domain.DeliveryDocument, error)
	Status(ctx context.Context, id domain.Identity, documentID string) (*domain.DeliveryDocument, error)
	SuggestProject(ctx context.Context, id domain.Identity, documentID string) (*domain.ProjectSuggestion, error)
	Verify(ctx context.Context, id domain.Identity, documentID, projectID string, items []domain.RecognizedItem) error
}

// DocumentProcessor is the worker-side contract for asynchronous recognition.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
