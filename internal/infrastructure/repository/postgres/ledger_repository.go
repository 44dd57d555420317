package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

// LedgerRepository is the material-accounting authority. Deliveries pool at
// the project level; consumption is logged per work item and drains the
// project pool.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ReportConsumption checks and records a consumption batch in one
// transaction. Each (project, material) pair is serialized with an advisory
// xact lock before the availability sums are read, so two concurrent batches
// cannot both pass the check against stale totals. The batch is
// all-or-nothing: one short line rejects every line.
func (r *LedgerRepository) ReportConsumption(ctx context.Context, workItemID, foremanID string, lines []domain.ConsumptionLine, epsilon float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var projectID string
	err = tx.QueryRowContext(ctx, `SELECT project_id FROM work_plan_items WHERE id = $1`, workItemID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrNotFound, "fetch work item", fmt.Errorf("work item %s", workItemID))
		}
		return fmt.Errorf("fetch work item project: %w", err)
	}

	// The check runs against the batch total per material: a batch that
	// splits one material over several lines must not pass line by line.
	requested := make(map[string]float64, len(lines))
	materials := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := requested[line.MaterialID]; !ok {
			materials = append(materials, line.MaterialID)
		}
		requested[line.MaterialID] += line.QuantityUsed
	}
	// Deterministic lock order keeps concurrent batches over overlapping
	// materials from deadlocking.
	sort.Strings(materials)

	for _, materialID := range materials {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, projectID+":"+materialID); err != nil {
			return fmt.Errorf("acquire material lock: %w", err)
		}
	}

	for _, materialID := range materials {
		var delivered, consumed float64
		err = tx.QueryRowContext(ctx, `
SELECT COALESCE(SUM(quantity), 0) FROM material_deliveries WHERE project_id = $1 AND material_id = $2
`, projectID, materialID).Scan(&delivered)
		if err != nil {
			return fmt.Errorf("sum deliveries: %w", err)
		}
		err = tx.QueryRowContext(ctx, `
SELECT COALESCE(SUM(c.quantity_used), 0)
FROM consumption_log c
JOIN work_plan_items w ON w.id = c.work_item_id
WHERE w.project_id = $1 AND c.material_id = $2
`, projectID, materialID).Scan(&consumed)
		if err != nil {
			return fmt.Errorf("sum consumption: %w", err)
		}

		available := delivered - consumed
		if requested[materialID]-available > epsilon {
			name, unit := r.materialLabel(ctx, tx, materialID)
			return &domain.InsufficientMaterialError{
				MaterialID: materialID,
				Material:   name,
				Unit:       unit,
				Requested:  requested[materialID],
				Available:  available,
			}
		}
	}

	now := time.Now().UTC()
	for _, line := range lines {
		_, err = tx.ExecContext(ctx, `
INSERT INTO consumption_log (id, work_item_id, material_id, quantity_used, foreman_id, consumed_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, uuid.NewString(), workItemID, line.MaterialID, line.QuantityUsed, foremanID, now)
		if err != nil {
			return fmt.Errorf("insert consumption: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *LedgerRepository) materialLabel(ctx context.Context, tx *sql.Tx, materialID string) (name, unit string) {
	_ = tx.QueryRowContext(ctx, `SELECT name, unit FROM materials WHERE id = $1`, materialID).Scan(&name, &unit)
	return name, unit
}

func (r *LedgerRepository) AvailableMaterials(ctx context.Context, workItemID string) ([]domain.AvailableMaterial, error) {
	rows, err := r.db.QueryContext(ctx, `
WITH item AS (
	SELECT project_id FROM work_plan_items WHERE id = $1
), delivered AS (
	SELECT material_id, SUM(quantity) AS total
	FROM material_deliveries
	WHERE project_id = (SELECT project_id FROM item)
	GROUP BY material_id
), consumed AS (
	SELECT cl.material_id, SUM(cl.quantity_used) AS total
	FROM consumption_log cl
	JOIN work_plan_items w ON w.id = cl.work_item_id
	WHERE w.project_id = (SELECT project_id FROM item)
	GROUP BY cl.material_id
)
SELECT m.id, m.name, m.unit, d.total - COALESCE(c.total, 0) AS available
FROM delivered d
JOIN materials m ON m.id = d.material_id
LEFT JOIN consumed c ON c.material_id = d.material_id
WHERE d.total - COALESCE(c.total, 0) > 0
ORDER BY m.name
`, workItemID)
	if err != nil {
		return nil, fmt.Errorf("list available materials: %w", err)
	}
	defer rows.Close()

	var out []domain.AvailableMaterial
	for rows.Next() {
		var m domain.AvailableMaterial
		if err := rows.Scan(&m.MaterialID, &m.MaterialName, &m.Unit, &m.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("scan available material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) ProjectBalance(ctx context.Context, projectID string) ([]domain.MaterialBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.id, m.name, m.unit,
	COALESCE(d.total, 0) AS delivered,
	COALESCE(c.total, 0) AS consumed
FROM materials m
LEFT JOIN (
	SELECT material_id, SUM(quantity) AS total
	FROM material_deliveries
	WHERE project_id = $1
	GROUP BY material_id
) d ON d.material_id = m.id
LEFT JOIN (
	SELECT cl.material_id, SUM(cl.quantity_used) AS total
	FROM consumption_log cl
	JOIN work_plan_items w ON w.id = cl.work_item_id
	WHERE w.project_id = $1
	GROUP BY cl.material_id
) c ON c.material_id = m.id
WHERE d.total IS NOT NULL OR c.total IS NOT NULL
ORDER BY m.name
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("project balance: %w", err)
	}
	defer rows.Close()

	var out []domain.MaterialBalance
	for rows.Next() {
		var b domain.MaterialBalance
		if err := rows.Scan(&b.MaterialID, &b.MaterialName, &b.Unit, &b.Delivered, &b.Consumed); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		b.Available = b.Delivered - b.Consumed
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) GetWorkItem(ctx context.Context, id string) (*domain.WorkPlanItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, name, planned_quantity, unit, start_date, end_date, progress, status
FROM work_plan_items
WHERE id = $1
`, id)
	item, err := scanWorkItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch work item", fmt.Errorf("work item %s", id))
		}
		return nil, err
	}

	required, err := r.requiredMaterials(ctx, id)
	if err != nil {
		return nil, err
	}
	item.RequiredMaterials = required
	return item, nil
}

func (r *LedgerRepository) ListWorkItems(ctx context.Context, projectID string, status domain.WorkItemStatus) ([]domain.WorkPlanItem, error) {
	query := `
SELECT id, project_id, name, planned_quantity, unit, start_date, end_date, progress, status
FROM work_plan_items
WHERE project_id = $1`
	args := []any{projectID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var items []domain.WorkPlanItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *LedgerRepository) UpdateProgress(ctx context.Context, workItemID string, progress float64, status domain.WorkItemStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE work_plan_items SET progress = $2, status = $3 WHERE id = $1
`, workItemID, progress, string(status))
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "update progress", fmt.Errorf("work item %s", workItemID))
	}
	return nil
}

func (r *LedgerRepository) requiredMaterials(ctx context.Context, workItemID string) ([]domain.RequiredMaterial, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT rm.material_id, m.name, m.unit, rm.planned_quantity
FROM required_materials rm
JOIN materials m ON m.id = rm.material_id
WHERE rm.work_item_id = $1
ORDER BY m.name
`, workItemID)
	if err != nil {
		return nil, fmt.Errorf("list required materials: %w", err)
	}
	defer rows.Close()

	var required []domain.RequiredMaterial
	for rows.Next() {
		var rm domain.RequiredMaterial
		if err := rows.Scan(&rm.MaterialID, &rm.MaterialName, &rm.Unit, &rm.PlannedQuantity); err != nil {
			return nil, fmt.Errorf("scan required material: %w", err)
		}
		required = append(required, rm)
	}
	return required, rows.Err()
}

func scanWorkItem(row rowScanner) (*domain.WorkPlanItem, error) {
	var item domain.WorkPlanItem
	var unit sql.NullString
	var status string

	err := row.Scan(&item.ID, &item.ProjectID, &item.Name, &item.PlannedQuantity,
		&unit, &item.StartDate, &item.EndDate, &item.Progress, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan work item: %w", err)
	}
	item.Unit = unit.String
	item.Status = domain.WorkItemStatus(status)
	return &item, nil
}
