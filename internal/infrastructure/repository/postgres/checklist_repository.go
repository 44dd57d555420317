package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

type ChecklistRepository struct {
	db *sql.DB
}

func NewChecklistRepository(db *sql.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) UpsertTemplate(ctx context.Context, tpl *domain.ChecklistTemplate) error {
	itemsJSON, err := json.Marshal(tpl.Items)
	if err != nil {
		return fmt.Errorf("marshal template items: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO checklist_templates (id, type, name, description, requires_approval, requires_initialization, items)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	type = EXCLUDED.type,
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	requires_approval = EXCLUDED.requires_approval,
	requires_initialization = EXCLUDED.requires_initialization,
	items = EXCLUDED.items
`, tpl.ID, string(tpl.Type), tpl.Name, tpl.Description, tpl.RequiresApproval, tpl.RequiresInitialization, itemsJSON)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

func (r *ChecklistRepository) ListTemplates(ctx context.Context) ([]domain.ChecklistTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, type, name, description, requires_approval, requires_initialization, items
FROM checklist_templates
ORDER BY type, name
`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.ChecklistTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

func (r *ChecklistRepository) GetTemplate(ctx context.Context, id string) (*domain.ChecklistTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, type, name, description, requires_approval, requires_initialization, items
FROM checklist_templates
WHERE id = $1
`, id)
	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch template", fmt.Errorf("template %s", id))
		}
		return nil, err
	}
	return tpl, nil
}

func scanTemplate(row rowScanner) (*domain.ChecklistTemplate, error) {
	var tpl domain.ChecklistTemplate
	var tplType string
	var description sql.NullString
	var itemsRaw []byte

	err := row.Scan(&tpl.ID, &tplType, &tpl.Name, &description,
		&tpl.RequiresApproval, &tpl.RequiresInitialization, &itemsRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	if err := json.Unmarshal(itemsRaw, &tpl.Items); err != nil {
		return nil, fmt.Errorf("unmarshal template items: %w", err)
	}
	tpl.Type = domain.ChecklistType(tplType)
	tpl.Description = description.String
	return &tpl, nil
}

const completionColumns = `
id, template_id, project_id, completed_by_id, completion_date, items_data, photos, notes,
geolocation, completion_rate, approval_status, approved_by_id, approved_at, rejection_reason,
attached_document, created_at, updated_at`

func (r *ChecklistRepository) CreateCompletion(ctx context.Context, c *domain.ChecklistCompletion) error {
	itemsJSON, photosJSON, geoJSON, err := marshalCompletionPayloads(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO checklist_completions (`+completionColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`,
		c.ID, c.TemplateID, c.ProjectID, c.CompletedByID, c.CompletionDate, itemsJSON, photosJSON,
		c.Notes, geoJSON, c.CompletionRate, string(c.ApprovalStatus), nullable(c.ApprovedByID),
		c.ApprovedAt, nullable(c.RejectionReason), nullable(c.AttachedDocument), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (r *ChecklistRepository) UpdateCompletion(ctx context.Context, c *domain.ChecklistCompletion) error {
	itemsJSON, photosJSON, geoJSON, err := marshalCompletionPayloads(c)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE checklist_completions
SET items_data = $2, photos = $3, notes = $4, geolocation = $5, completion_rate = $6,
	approval_status = $7, approved_by_id = $8, approved_at = $9, rejection_reason = $10,
	attached_document = $11, updated_at = $12
WHERE id = $1
`,
		c.ID, itemsJSON, photosJSON, c.Notes, geoJSON, c.CompletionRate,
		string(c.ApprovalStatus), nullable(c.ApprovedByID), c.ApprovedAt,
		nullable(c.RejectionReason), nullable(c.AttachedDocument), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "update completion", fmt.Errorf("completion %s", c.ID))
	}
	return nil
}

func (r *ChecklistRepository) GetCompletion(ctx context.Context, id string) (*domain.ChecklistCompletion, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+completionColumns+`
FROM checklist_completions
WHERE id = $1
`, id)
	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch completion", fmt.Errorf("completion %s", id))
		}
		return nil, err
	}
	return c, nil
}

// GetCompletionForDate finds the record for (project, template) on the UTC
// calendar day containing the given moment.
func (r *ChecklistRepository) GetCompletionForDate(ctx context.Context, projectID, templateID string, day time.Time) (*domain.ChecklistCompletion, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	row := r.db.QueryRowContext(ctx, `
SELECT `+completionColumns+`
FROM checklist_completions
WHERE project_id = $1 AND template_id = $2 AND completion_date >= $3 AND completion_date < $4
ORDER BY completion_date DESC
LIMIT 1
`, projectID, templateID, start, end)
	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *ChecklistRepository) PendingOpeningCompletion(ctx context.Context, projectID string) (*domain.ChecklistCompletion, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+completionColumnsPrefixed("c")+`
FROM checklist_completions c
JOIN checklist_templates t ON t.id = c.template_id
WHERE c.project_id = $1 AND t.type = $2 AND c.approval_status = $3
ORDER BY c.completion_date DESC
LIMIT 1
`, projectID, string(domain.ChecklistOpening), string(domain.ApprovalPending))
	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *ChecklistRepository) LatestOpeningCompletion(ctx context.Context, projectID string) (*domain.ChecklistCompletion, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+completionColumnsPrefixed("c")+`
FROM checklist_completions c
JOIN checklist_templates t ON t.id = c.template_id
WHERE c.project_id = $1 AND t.type = $2
ORDER BY c.completion_date DESC
LIMIT 1
`, projectID, string(domain.ChecklistOpening))
	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *ChecklistRepository) History(ctx context.Context, projectID string, checklistType domain.ChecklistType) ([]domain.ChecklistCompletion, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+completionColumnsPrefixed("c")+`
FROM checklist_completions c
JOIN checklist_templates t ON t.id = c.template_id
WHERE c.project_id = $1 AND t.type = $2
ORDER BY c.completion_date DESC
`, projectID, string(checklistType))
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var history []domain.ChecklistCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *c)
	}
	return history, rows.Err()
}

func (r *ChecklistRepository) SetApproval(ctx context.Context, completionID string, status domain.ApprovalStatus, approvedBy, reason, attachedDocument string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE checklist_completions
SET approval_status = $2, approved_by_id = $3, approved_at = $4, rejection_reason = $5,
	attached_document = $6, updated_at = $4
WHERE id = $1
`, completionID, string(status), approvedBy, at, nullable(reason), nullable(attachedDocument))
	if err != nil {
		return fmt.Errorf("record review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "record review", fmt.Errorf("completion %s", completionID))
	}
	return nil
}

func marshalCompletionPayloads(c *domain.ChecklistCompletion) (items, photos, geo []byte, err error) {
	if items, err = json.Marshal(c.ItemsData); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal items data: %w", err)
	}
	if c.Photos == nil {
		photos = []byte("[]")
	} else if photos, err = json.Marshal(c.Photos); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal photos: %w", err)
	}
	if c.Geolocation != nil {
		if geo, err = json.Marshal(c.Geolocation); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal geolocation: %w", err)
		}
	}
	return items, photos, geo, nil
}

func scanCompletion(row rowScanner) (*domain.ChecklistCompletion, error) {
	var c domain.ChecklistCompletion
	var itemsRaw, photosRaw, geoRaw []byte
	var notes, approvedBy, reason, attached sql.NullString
	var status string

	err := row.Scan(
		&c.ID, &c.TemplateID, &c.ProjectID, &c.CompletedByID, &c.CompletionDate,
		&itemsRaw, &photosRaw, &notes, &geoRaw, &c.CompletionRate, &status,
		&approvedBy, &c.ApprovedAt, &reason, &attached, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan completion: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &c.ItemsData); err != nil {
		return nil, fmt.Errorf("unmarshal items data: %w", err)
	}
	if len(photosRaw) > 0 {
		if err := json.Unmarshal(photosRaw, &c.Photos); err != nil {
			return nil, fmt.Errorf("unmarshal photos: %w", err)
		}
	}
	if len(geoRaw) > 0 {
		c.Geolocation = &domain.Coordinates{}
		if err := json.Unmarshal(geoRaw, c.Geolocation); err != nil {
			return nil, fmt.Errorf("unmarshal geolocation: %w", err)
		}
	}
	c.ApprovalStatus = domain.ApprovalStatus(status)
	c.Notes = notes.String
	c.ApprovedByID = approvedBy.String
	c.RejectionReason = reason.String
	c.AttachedDocument = attached.String
	return &c, nil
}

func completionColumnsPrefixed(alias string) string {
	return alias + `.id, ` + alias + `.template_id, ` + alias + `.project_id, ` + alias + `.completed_by_id, ` +
		alias + `.completion_date, ` + alias + `.items_data, ` + alias + `.photos, ` + alias + `.notes, ` +
		alias + `.geolocation, ` + alias + `.completion_rate, ` + alias + `.approval_status, ` +
		alias + `.approved_by_id, ` + alias + `.approved_at, ` + alias + `.rejection_reason, ` +
		alias + `.attached_document, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
