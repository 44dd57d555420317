package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project, creator domain.Member) error {
	polygonJSON, err := json.Marshal(project.Polygon)
	if err != nil {
		return fmt.Errorf("marshal polygon: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO projects (
	id, name, address, latitude, longitude, polygon, status, has_pending_checklist, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		project.ID, project.Name, project.Address, project.Latitude, project.Longitude, polygonJSON,
		string(project.Status), project.HasPendingChecklist, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConflict, "insert project",
				errors.New("a project with this name and address already exists"))
		}
		return fmt.Errorf("insert project: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO project_members (project_id, user_id, email, role, added_at) VALUES ($1,$2,$3,$4,$5)
`, project.ID, creator.UserID, creator.Email, string(creator.Role), creator.AddedAt)
	if err != nil {
		return fmt.Errorf("insert creator member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, address, latitude, longitude, polygon, status, has_pending_checklist, created_at, updated_at
FROM projects
WHERE id = $1
`, id)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch project", fmt.Errorf("project %s", id))
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Members = members
	return project, nil
}

func (r *ProjectRepository) List(ctx context.Context, memberUserID string) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.name, p.address, p.latitude, p.longitude, p.polygon, p.status, p.has_pending_checklist, p.created_at, p.updated_at
FROM projects p
JOIN project_members m ON m.project_id = p.id
WHERE m.user_id = $1
ORDER BY p.created_at DESC
`, memberUserID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *ProjectRepository) ListAll(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, address, latitude, longitude, polygon, status, has_pending_checklist, created_at, updated_at
FROM projects
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list all projects: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID string, member domain.Member) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO project_members (project_id, user_id, email, role, added_at) VALUES ($1,$2,$3,$4,$5)
`, projectID, member.UserID, member.Email, string(member.Role), member.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConflict, "insert member",
				errors.New("user is already a project member"))
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)
`, projectID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (r *ProjectRepository) SetStatus(ctx context.Context, projectID string, status domain.ProjectStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE projects SET status = $2, updated_at = $3 WHERE id = $1
`, projectID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "update project status", fmt.Errorf("project %s", projectID))
	}
	return nil
}

func (r *ProjectRepository) SetPendingChecklist(ctx context.Context, projectID string, pending bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE projects SET has_pending_checklist = $2, updated_at = $3 WHERE id = $1
`, projectID, pending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update pending checklist flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "update pending checklist flag", fmt.Errorf("project %s", projectID))
	}
	return nil
}

func (r *ProjectRepository) members(ctx context.Context, projectID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, email, role, added_at FROM project_members WHERE project_id = $1 ORDER BY added_at
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		var role string
		if err := rows.Scan(&m.UserID, &m.Email, &role, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = domain.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var polygonRaw []byte
	var status string

	err := row.Scan(
		&p.ID, &p.Name, &p.Address, &p.Latitude, &p.Longitude, &polygonRaw,
		&status, &p.HasPendingChecklist, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(polygonRaw) > 0 {
		if err := json.Unmarshal(polygonRaw, &p.Polygon); err != nil {
			return nil, fmt.Errorf("unmarshal polygon: %w", err)
		}
	}
	p.Status = domain.ProjectStatus(status)
	return &p, nil
}

func collectProjects(rows *sql.Rows) ([]domain.Project, error) {
	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}
