package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

type ProjectUseCase struct {
	projects   ports.ProjectRepository
	checklists ports.ChecklistRepository
	users      ports.UserDirectory
	geocoder   ports.Geocoder
}

func NewProjectUseCase(
	projects ports.ProjectRepository,
	checklists ports.ChecklistRepository,
	users ports.UserDirectory,
	geocoder ports.Geocoder,
) *ProjectUseCase {
	return &ProjectUseCase{
		projects:   projects,
		checklists: checklists,
		users:      users,
		geocoder:   geocoder,
	}
}

func (uc *ProjectUseCase) Create(
	ctx context.Context,
	id domain.Identity,
	name, address string,
	polygon []domain.Coordinates,
) (*domain.Project, error) {
	if d := domain.CanPerform(domain.ActionCreateProject, id, nil, false); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "create project", errors.New(d.Reason))
	}

	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" {
		return nil, domain.WrapError(domain.ErrValidation, "create project", errors.New("name and address are required"))
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Address:   address,
		Polygon:   polygon,
		Status:    domain.ProjectPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Coordinates power the delivery-address suggestion only; a geocoder
	// outage must not block project creation.
	if uc.geocoder != nil {
		if loc, err := uc.geocoder.Geocode(ctx, address); err == nil {
			project.Latitude = &loc.Latitude
			project.Longitude = &loc.Longitude
		}
	}

	creator := domain.Member{UserID: id.UserID, Email: id.Email, Role: id.Role, AddedAt: now}
	if err := uc.projects.Create(ctx, project, creator); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	project.Members = []domain.Member{creator}
	return project, nil
}

func (uc *ProjectUseCase) AddMember(
	ctx context.Context,
	id domain.Identity,
	projectID, email string,
	role domain.Role,
) error {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionAddMember, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return domain.WrapError(domain.ErrForbidden, "add member", errors.New(d.Reason))
	}

	user, err := uc.users.IdentityByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve member: %w", err)
	}
	// The stored role is authoritative; a mismatching request is a caller
	// mistake, not an escalation path.
	if role != "" && role != user.Role {
		return domain.WrapError(domain.ErrValidation, "add member",
			fmt.Errorf("user %s has role %s, not %s", email, user.Role, role))
	}

	if project.HasMember(user.UserID) {
		return domain.WrapError(domain.ErrConflict, "add member", errors.New("user is already a project member"))
	}
	if user.Role == domain.RoleForeman && project.ForemanAssigned() {
		return domain.WrapError(domain.ErrConflict, "add member", errors.New("project already has a foreman"))
	}

	member := domain.Member{
		UserID:  user.UserID,
		Email:   user.Email,
		Role:    user.Role,
		AddedAt: time.Now().UTC(),
	}
	if err := uc.projects.AddMember(ctx, projectID, member); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// Activate moves a project from pending to active once an opening checklist
// has cleared approval and a foreman is on the project. Re-activating an
// already-active project is a no-op so retried requests stay safe.
func (uc *ProjectUseCase) Activate(ctx context.Context, id domain.Identity, projectID string) (*domain.Project, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if project.Status == domain.ProjectActive {
		return project, nil
	}

	if d := domain.CanPerform(domain.ActionActivateProject, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "activate project", errors.New(d.Reason))
	}

	if !project.ForemanAssigned() {
		return nil, domain.WrapError(domain.ErrPreconditionFailed, "activate project",
			errors.New("no foreman assigned to the project"))
	}

	opening, err := uc.checklists.LatestOpeningCompletion(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch opening completion: %w", err)
	}
	if opening == nil {
		return nil, domain.WrapError(domain.ErrPreconditionFailed, "activate project",
			errors.New("opening checklist has not been submitted"))
	}
	switch opening.ApprovalStatus {
	case domain.ApprovalApproved, domain.ApprovalNotRequired:
	default:
		return nil, domain.WrapError(domain.ErrPreconditionFailed, "activate project",
			fmt.Errorf("opening checklist approval status is %s", opening.ApprovalStatus))
	}

	if err := uc.projects.SetStatus(ctx, projectID, domain.ProjectActive); err != nil {
		return nil, fmt.Errorf("activate project: %w", err)
	}
	project.Status = domain.ProjectActive
	return project, nil
}

func (uc *ProjectUseCase) List(ctx context.Context, id domain.Identity) ([]domain.Project, error) {
	if id.Role == domain.RoleInspector || id.Role == domain.RoleAdmin {
		projects, err := uc.projects.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		return projects, nil
	}
	projects, err := uc.projects.List(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (uc *ProjectUseCase) Get(ctx context.Context, id domain.Identity, projectID string) (*domain.Project, error) {
	project, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if d := domain.CanPerform(domain.ActionViewProject, id, project, project.HasMember(id.UserID)); !d.Allowed {
		return nil, domain.WrapError(domain.ErrForbidden, "get project", errors.New(d.Reason))
	}
	return project, nil
}
