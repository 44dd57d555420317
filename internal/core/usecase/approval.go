package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

type ApprovalUseCase struct {
	checklists ports.ChecklistRepository
	projects   ports.ProjectRepository
	now        func() time.Time
}

func NewApprovalUseCase(checklists ports.ChecklistRepository, projects ports.ProjectRepository) *ApprovalUseCase {
	return &ApprovalUseCase{
		checklists: checklists,
		projects:   projects,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Review moves a pending completion to approved or rejected. Both outcomes
// are terminal for the record; correction after rejection happens through a
// fresh submission. Approving an opening completion clears the project's
// pending flag so activation becomes eligible; it does not activate the
// project itself.
func (uc *ApprovalUseCase) Review(
	ctx context.Context,
	id domain.Identity,
	completionID string,
	approve bool,
	reason, attachedDocument string,
) (*domain.ChecklistCompletion, error) {
	if d := domain.CanPerform(domain.ActionReviewChecklist, id, nil, false); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "review checklist", errors.New(d.Reason))
	}

	completion, err := uc.checklists.GetCompletion(ctx, completionID)
	if err != nil {
		return nil, fmt.Errorf("fetch completion: %w", err)
	}
	if completion.ApprovalStatus != domain.ApprovalPending {
		return nil, domain.WrapError(domain.ErrConflict, "review checklist",
			fmt.Errorf("completion is %s, not pending", completion.ApprovalStatus))
	}

	status := domain.ApprovalApproved
	if !approve {
		if strings.TrimSpace(reason) == "" {
			return nil, domain.WrapError(domain.ErrValidation, "review checklist",
				errors.New("a rejection reason is required"))
		}
		status = domain.ApprovalRejected
	} else {
		reason = ""
	}

	now := uc.now()
	if err := uc.checklists.SetApproval(ctx, completionID, status, id.UserID, reason, attachedDocument, now); err != nil {
		return nil, fmt.Errorf("record review: %w", err)
	}
	if err := uc.projects.SetPendingChecklist(ctx, completion.ProjectID, false); err != nil {
		return nil, fmt.Errorf("clear pending checklist: %w", err)
	}

	completion.ApprovalStatus = status
	completion.ApprovedByID = id.UserID
	completion.ApprovedAt = &now
	completion.RejectionReason = reason
	completion.AttachedDocument = attachedDocument
	return completion, nil
}
