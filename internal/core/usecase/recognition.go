package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

type RecognitionUseCase struct {
	docs     ports.DocumentRepository
	projects ports.ProjectRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	geocoder ports.Geocoder
}

func NewRecognitionUseCase(
	docs ports.DocumentRepository,
	projects ports.ProjectRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	geocoder ports.Geocoder,
) *RecognitionUseCase {
	return &RecognitionUseCase{
		docs:     docs,
		projects: projects,
		storage:  storage,
		queue:    queue,
		geocoder: geocoder,
	}
}

// Upload stores the delivery note, registers the document and enqueues the
// recognition job. The caller gets the document back immediately; progress
// is observed through Status.
func (uc *RecognitionUseCase) Upload(
	ctx context.Context,
	id domain.Identity,
	projectID, filename, mimeType string,
	body io.Reader,
) (*domain.DeliveryDocument, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionUploadDocument, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "upload document", errors.New(d.Reason))
	}

	docID := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", docID, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.DeliveryDocument{
		ID:          docID,
		ProjectID:   projectID,
		UploaderID:  id.UserID,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.RecognitionPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish recognition job: %w", err)
	}
	return doc, nil
}

func (uc *RecognitionUseCase) Status(ctx context.Context, id domain.Identity, documentID string) (*domain.DeliveryDocument, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	project, err := uc.projects.GetByID(ctx, doc.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewProject, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "document status", errors.New(d.Reason))
	}
	return doc, nil
}

// SuggestProject proposes the nearest project to the recognized delivery
// address by geodesic distance. Purely advisory: the caller may accept or
// ignore it, and nothing is assigned here.
func (uc *RecognitionUseCase) SuggestProject(ctx context.Context, id domain.Identity, documentID string) (*domain.ProjectSuggestion, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	if doc.Status != domain.RecognitionCompleted {
		return nil, domain.WrapError(domain.ErrPreconditionFailed, "suggest project",
			fmt.Errorf("document recognition status is %s", doc.Status))
	}
	if doc.Recognized == nil || strings.TrimSpace(doc.Recognized.DeliveryAddress) == "" {
		return nil, domain.WrapError(domain.ErrNotFound, "suggest project",
			errors.New("no delivery address was recognized"))
	}

	location, err := uc.geocoder.Geocode(ctx, doc.Recognized.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("geocode delivery address: %w", err)
	}

	projects, err := uc.projects.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var best *domain.ProjectSuggestion
	for i := range projects {
		loc, ok := projects[i].Location()
		if !ok {
			continue
		}
		distance := domain.DistanceKm(location, loc)
		if best == nil || distance < best.DistanceKm {
			best = &domain.ProjectSuggestion{
				Project:    projects[i],
				DistanceKm: distance,
				Address:    doc.Recognized.DeliveryAddress,
				Location:   location,
			}
		}
	}
	if best == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "suggest project",
			errors.New("no project has registered coordinates"))
	}
	return best, nil
}

// Verify converts the recognized (possibly operator-edited) line items into
// delivery rows for the chosen project. Exactly-once per document: the
// repository flips the verified flag conditionally, so a concurrent
// duplicate loses with a conflict instead of double-posting deliveries.
func (uc *RecognitionUseCase) Verify(
	ctx context.Context,
	id domain.Identity,
	documentID, projectID string,
	items []domain.RecognizedItem,
) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionVerifyDocument, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return domain.WrapError(domain.ErrForbidden, "verify document", errors.New(d.Reason))
	}

	if doc.Status != domain.RecognitionCompleted {
		return domain.WrapError(domain.ErrPreconditionFailed, "verify document",
			fmt.Errorf("document recognition status is %s", doc.Status))
	}
	if doc.Verified {
		return domain.WrapError(domain.ErrConflict, "verify document",
			errors.New("document is already verified"))
	}

	if len(items) == 0 && doc.Recognized != nil {
		items = doc.Recognized.Items
	}
	lines := make([]domain.RecognizedItem, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		if item.Quantity <= 0 {
			return domain.WrapError(domain.ErrValidation, "verify document",
				fmt.Errorf("non-positive quantity for %q", item.Name))
		}
		lines = append(lines, item)
	}
	if len(lines) == 0 {
		return domain.WrapError(domain.ErrValidation, "verify document",
			errors.New("no material lines to record"))
	}

	if err := uc.docs.VerifyAndRecordDeliveries(ctx, documentID, projectID, id.UserID, lines, time.Now().UTC()); err != nil {
		return fmt.Errorf("record deliveries: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
