package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

type ChecklistUseCase struct {
	checklists ports.ChecklistRepository
	projects   ports.ProjectRepository
	now        func() time.Time
}

func NewChecklistUseCase(checklists ports.ChecklistRepository, projects ports.ProjectRepository) *ChecklistUseCase {
	return &ChecklistUseCase{
		checklists: checklists,
		projects:   projects,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ChecklistUseCase) Templates(ctx context.Context) ([]domain.ChecklistTemplate, error) {
	templates, err := uc.checklists.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checklist templates: %w", err)
	}
	return templates, nil
}

// Submit records a checklist completion. A daily template submitted twice on
// the same calendar day updates the existing record in place; an opening
// template conflicts while another opening completion is still pending.
func (uc *ChecklistUseCase) Submit(
	ctx context.Context,
	id domain.Identity,
	sub ports.ChecklistSubmission,
) (*domain.ChecklistCompletion, error) {
	tpl, err := uc.checklists.GetTemplate(ctx, sub.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("fetch template: %w", err)
	}
	project, err := uc.projects.GetByID(ctx, sub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}

	action := domain.ActionFillOpeningChecklist
	if tpl.Type == domain.ChecklistDaily {
		action = domain.ActionFillDailyChecklist
	}
	if d := domain.CanPerform(action, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "submit checklist", errors.New(d.Reason))
	}

	if err := validateSubmission(tpl, sub); err != nil {
		return nil, err
	}

	now := uc.now()

	if tpl.Type == domain.ChecklistDaily {
		existing, err := uc.checklists.GetCompletionForDate(ctx, sub.ProjectID, sub.TemplateID, now)
		if err != nil {
			return nil, fmt.Errorf("fetch today's completion: %w", err)
		}
		if existing != nil {
			return uc.updateInPlace(ctx, tpl, existing, sub, now)
		}
	} else {
		pending, err := uc.checklists.PendingOpeningCompletion(ctx, sub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("fetch pending opening completion: %w", err)
		}
		if pending != nil {
			return nil, domain.WrapError(domain.ErrConflict, "submit checklist",
				errors.New("an opening checklist is already awaiting approval"))
		}
	}

	completion := &domain.ChecklistCompletion{
		ID:             uuid.NewString(),
		TemplateID:     sub.TemplateID,
		TemplateType:   tpl.Type,
		ProjectID:      sub.ProjectID,
		CompletedByID:  id.UserID,
		CompletionDate: now,
		ItemsData:      sub.Answers,
		Photos:         sub.Photos,
		Notes:          sub.Notes,
		Geolocation:    sub.Geolocation,
		CompletionRate: domain.CompletionRate(tpl, sub.Answers),
		ApprovalStatus: domain.ApprovalNotRequired,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if tpl.RequiresApproval {
		completion.ApprovalStatus = domain.ApprovalPending
	}

	if err := uc.checklists.CreateCompletion(ctx, completion); err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}
	if completion.ApprovalStatus == domain.ApprovalPending {
		if err := uc.projects.SetPendingChecklist(ctx, sub.ProjectID, true); err != nil {
			return nil, fmt.Errorf("flag pending checklist: %w", err)
		}
	}
	return completion, nil
}

// updateInPlace edits the existing same-day record: same id, recomputed
// rate, approval reset when the template requires re-approval.
func (uc *ChecklistUseCase) updateInPlace(
	ctx context.Context,
	tpl *domain.ChecklistTemplate,
	existing *domain.ChecklistCompletion,
	sub ports.ChecklistSubmission,
	now time.Time,
) (*domain.ChecklistCompletion, error) {
	existing.TemplateType = tpl.Type
	existing.ItemsData = sub.Answers
	existing.Photos = sub.Photos
	existing.Notes = sub.Notes
	if sub.Geolocation != nil {
		existing.Geolocation = sub.Geolocation
	}
	existing.CompletionRate = domain.CompletionRate(tpl, sub.Answers)
	existing.UpdatedAt = now
	if tpl.RequiresApproval {
		existing.ApprovalStatus = domain.ApprovalPending
		existing.ApprovedByID = ""
		existing.ApprovedAt = nil
		existing.RejectionReason = ""
	}

	if err := uc.checklists.UpdateCompletion(ctx, existing); err != nil {
		return nil, fmt.Errorf("update completion: %w", err)
	}
	if existing.ApprovalStatus == domain.ApprovalPending {
		if err := uc.projects.SetPendingChecklist(ctx, existing.ProjectID, true); err != nil {
			return nil, fmt.Errorf("flag pending checklist: %w", err)
		}
	}
	return existing, nil
}

func validateSubmission(tpl *domain.ChecklistTemplate, sub ports.ChecklistSubmission) error {
	if tpl.RequiresInitialization && sub.Geolocation == nil {
		return domain.WrapError(domain.ErrValidation, "submit checklist",
			errors.New("geolocation is required for this checklist"))
	}
	for itemID, answer := range sub.Answers {
		if !domain.ValidAnswer(answer) {
			return domain.WrapError(domain.ErrValidation, "submit checklist",
				fmt.Errorf("invalid answer %q for item %s", answer, itemID))
		}
	}
	for _, item := range tpl.Items {
		if !item.IsRequired {
			continue
		}
		if _, ok := sub.Answers[item.ID]; !ok {
			return domain.WrapError(domain.ErrValidation, "submit checklist",
				fmt.Errorf("required item %s is not answered", item.ID))
		}
	}
	return nil
}

func (uc *ChecklistUseCase) TodayCompletion(
	ctx context.Context,
	id domain.Identity,
	projectID, templateID string,
) (*domain.ChecklistCompletion, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewProject, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "today completion", errors.New(d.Reason))
	}
	completion, err := uc.checklists.GetCompletionForDate(ctx, projectID, templateID, uc.now())
	if err != nil {
		return nil, fmt.Errorf("fetch today's completion: %w", err)
	}
	return completion, nil
}

func (uc *ChecklistUseCase) History(
	ctx context.Context,
	id domain.Identity,
	projectID string,
	checklistType domain.ChecklistType,
) ([]domain.ChecklistCompletion, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewProject, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "completion history", errors.New(d.Reason))
	}
	history, err := uc.checklists.History(ctx, projectID, checklistType)
	if err != nil {
		return nil, fmt.Errorf("fetch completion history: %w", err)
	}
	return history, nil
}
