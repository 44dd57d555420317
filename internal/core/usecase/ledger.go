package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

// DefaultQuantityEpsilon is the tolerance used when comparing consumption
// requests against availability, so exact-boundary reports are not rejected
// by floating-point noise.
const DefaultQuantityEpsilon = 1e-6

type LedgerUseCase struct {
	ledger   ports.LedgerRepository
	projects ports.ProjectRepository
	epsilon  float64
}

func NewLedgerUseCase(ledger ports.LedgerRepository, projects ports.ProjectRepository, epsilon float64) *LedgerUseCase {
	if epsilon <= 0 {
		epsilon = DefaultQuantityEpsilon
	}
	return &LedgerUseCase{ledger: ledger, projects: projects, epsilon: epsilon}
}

func (uc *LedgerUseCase) WorkItems(
	ctx context.Context,
	id domain.Identity,
	projectID string,
	status domain.WorkItemStatus,
) ([]domain.WorkPlanItem, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewProject, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "list work items", errors.New(d.Reason))
	}
	items, err := uc.ledger.ListWorkItems(ctx, projectID, status)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	return items, nil
}

func (uc *LedgerUseCase) AvailableMaterials(
	ctx context.Context,
	id domain.Identity,
	workItemID string,
) ([]domain.AvailableMaterial, error) {
	item, err := uc.ledger.GetWorkItem(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("fetch work item: %w", err)
	}
	project, err := uc.projects.GetByID(ctx, item.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewMaterials, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "available materials", errors.New(d.Reason))
	}
	available, err := uc.ledger.AvailableMaterials(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("available materials: %w", err)
	}
	return available, nil
}

// ReportProgress records a foreman's work report: an optional progress
// update plus material consumption lines. The consumption batch is
// all-or-nothing; the ledger authority re-checks availability under a
// per-(work item, material) lock regardless of any client-side pre-check.
func (uc *LedgerUseCase) ReportProgress(
	ctx context.Context,
	id domain.Identity,
	workItemID string,
	progress *float64,
	lines []domain.ConsumptionLine,
) (*domain.WorkPlanItem, error) {
	item, err := uc.ledger.GetWorkItem(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("fetch work item: %w", err)
	}
	project, err := uc.projects.GetByID(ctx, item.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionReportProgress, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "report progress", errors.New(d.Reason))
	}

	if progress != nil && (*progress < 0 || *progress > 100) {
		return nil, domain.WrapError(domain.ErrValidation, "report progress",
			fmt.Errorf("progress %.1f is outside 0-100", *progress))
	}

	consumption := make([]domain.ConsumptionLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.MaterialID == "" {
			return nil, domain.WrapError(domain.ErrValidation, "report progress",
				errors.New("consumption line is missing material_id"))
		}
		if line.QuantityUsed < 0 {
			return nil, domain.WrapError(domain.ErrValidation, "report progress",
				fmt.Errorf("negative quantity for material %s", line.MaterialID))
		}
		// Zero lines are omitted, not recorded, and are not an error.
		if line.QuantityUsed == 0 {
			continue
		}
		// Duplicate material lines merge, so the availability check always
		// sees the batch total for a material, never a per-line slice of it.
		if i, ok := index[line.MaterialID]; ok {
			consumption[i].QuantityUsed += line.QuantityUsed
			continue
		}
		index[line.MaterialID] = len(consumption)
		consumption = append(consumption, line)
	}

	if len(consumption) > 0 {
		if err := uc.ledger.ReportConsumption(ctx, workItemID, id.UserID, consumption, uc.epsilon); err != nil {
			return nil, fmt.Errorf("report consumption: %w", err)
		}
	}

	if progress != nil {
		item.Progress = *progress
		item.Status = domain.StatusForProgress(*progress)
		if err := uc.ledger.UpdateProgress(ctx, workItemID, item.Progress, item.Status); err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}
	}
	return item, nil
}

func (uc *LedgerUseCase) ProjectBalance(
	ctx context.Context,
	id domain.Identity,
	projectID string,
) ([]domain.MaterialBalance, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewMaterials, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "material balance", errors.New(d.Reason))
	}
	balance, err := uc.ledger.ProjectBalance(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("material balance: %w", err)
	}
	return balance, nil
}
