package ports

import (
	"context"
	"io"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

// UserDirectory resolves authenticated identities. Tokens are opaque; the
// directory owns the mapping.
type UserDirectory interface {
	IdentityByToken(ctx context.Context, token string) (*domain.Identity, error)
	IdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

// ProjectRepository persists projects and their membership.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project, creator domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, memberUserID string) ([]domain.Project, error)
	ListAll(ctx context.Context) ([]domain.Project, error)
	AddMember(ctx context.Context, projectID string, member domain.Member) error
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	SetStatus(ctx context.Context, projectID string, status domain.ProjectStatus) error
	SetPendingChecklist(ctx context.Context, projectID string, pending bool) error
}

// ChecklistRepository persists templates and completion records.
type ChecklistRepository interface {
	UpsertTemplate(ctx context.Context, tpl *domain.ChecklistTemplate) error
	ListTemplates(ctx context.Context) ([]domain.ChecklistTemplate, error)
	GetTemplate(ctx context.Context, id string) (*domain.ChecklistTemplate, error)

	CreateCompletion(ctx context.Context, c *domain.ChecklistCompletion) error
	UpdateCompletion(ctx context.Context, c *domain.ChecklistCompletion) error
	GetCompletion(ctx context.Context, id string) (*domain.ChecklistCompletion, error)
	// GetCompletionForDate returns the completion for (project, template, day)
	// or nil when none exists; day is truncated to a calendar date in UTC.
	GetCompletionForDate(ctx context.Context, projectID, templateID string, day time.Time) (*domain.ChecklistCompletion, error)
	// PendingOpeningCompletion returns the in-flight opening completion for a
	// project, or nil when none is pending.
	PendingOpeningCompletion(ctx context.Context, projectID string) (*domain.ChecklistCompletion, error)
	// LatestOpeningCompletion returns the most recent opening completion for a
	// project regardless of state, or nil.
	LatestOpeningCompletion(ctx context.Context, projectID string) (*domain.ChecklistCompletion, error)
	History(ctx context.Context, projectID string, checklistType domain.ChecklistType) ([]domain.ChecklistCompletion, error)
	SetApproval(ctx context.Context, completionID string, status domain.ApprovalStatus, approvedBy, reason, attachedDocument string, at time.Time) error
}

// LedgerRepository is the material-accounting authority. ReportConsumption
// must be serializable per material pool: no two concurrent batches may
// both pass the availability check against stale sums.
type LedgerRepository interface {
	ReportConsumption(ctx context.Context, workItemID, foremanID string, lines []domain.ConsumptionLine, epsilon float64) error
	AvailableMaterials(ctx context.Context, workItemID string) ([]domain.AvailableMaterial, error)
	ProjectBalance(ctx context.Context, projectID string) ([]domain.MaterialBalance, error)
	GetWorkItem(ctx context.Context, id string) (*domain.WorkPlanItem, error)
	ListWorkItems(ctx context.Context, projectID string, status domain.WorkItemStatus) ([]domain.WorkPlanItem, error)
	UpdateProgress(ctx context.Context, workItemID string, progress float64, status domain.WorkItemStatus) error
}

// DocumentRepository persists delivery documents and their recognition state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.DeliveryDocument) error
	GetByID(ctx context.Context, id string) (*domain.DeliveryDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecognitionStatus, errMessage string) error
	SaveRecognized(ctx context.Context, id string, data *domain.RecognizedData) error
	// VerifyAndRecordDeliveries flips verified exactly once and converts the
	// line items into delivery rows in the same transaction. A second call
	// for the same document fails with domain.ErrConflict.
	VerifyAndRecordDeliveries(ctx context.Context, documentID, projectID, verifierID string, items []domain.RecognizedItem, at time.Time) error
}

// ObjectStorage stores uploaded delivery note files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes recognition jobs.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// RecognitionInput is what the extractor hands to the recognizer: text for
// born-digital documents, a base64 payload for scans.
type RecognitionInput struct {
	Text        string
	ImageBase64 string
	MimeType    string
}

// TextExtractor prepares a stored document for recognition.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.DeliveryDocument) (RecognitionInput, error)
}

// DocumentRecognizer turns a delivery note into structured line items.
type DocumentRecognizer interface {
	Recognize(ctx context.Context, input RecognitionInput) (*domain.RecognizedData, error)
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
