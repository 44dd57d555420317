package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.DeliveryDocument) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO delivery_documents (
	id, project_id, uploader_id, filename, mime_type, storage_path, status, error_message, verified, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.ProjectID, doc.UploaderID, doc.Filename, doc.MimeType, doc.StoragePath,
		string(doc.Status), doc.Error, doc.Verified, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.DeliveryDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, uploader_id, filename, mime_type, storage_path, status, recognized,
	error_message, verified, verified_by_id, verified_at, created_at, updated_at
FROM delivery_documents
WHERE id = $1
`, id)

	var doc domain.DeliveryDocument
	var status string
	var recognizedRaw []byte
	var errMessage, verifiedBy sql.NullString

	err := row.Scan(
		&doc.ID, &doc.ProjectID, &doc.UploaderID, &doc.Filename, &doc.MimeType, &doc.StoragePath,
		&status, &recognizedRaw, &errMessage, &doc.Verified, &verifiedBy, &doc.VerifiedAt,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if len(recognizedRaw) > 0 {
		doc.Recognized = &domain.RecognizedData{}
		if err := json.Unmarshal(recognizedRaw, doc.Recognized); err != nil {
			return nil, fmt.Errorf("unmarshal recognized data: %w", err)
		}
	}
	doc.Status = domain.RecognitionStatus(status)
	doc.Error = errMessage.String
	doc.VerifiedByID = verifiedBy.String
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.RecognitionStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE delivery_documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "update document status", fmt.Errorf("document %s", id))
	}
	return nil
}

func (r *DocumentRepository) SaveRecognized(ctx context.Context, id string, data *domain.RecognizedData) error {
	recognizedJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal recognized data: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE delivery_documents
SET recognized = $2, updated_at = $3
WHERE id = $1
`, id, recognizedJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save recognized data: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.WrapError(domain.ErrNotFound, "save recognized data", fmt.Errorf("document %s", id))
	}
	return nil
}

// VerifyAndRecordDeliveries flips the verified flag and writes the delivery
// rows in one transaction. The conditional update is the exactly-once gate:
// of two concurrent calls only one matches verified = FALSE, the loser gets
// a conflict and no delivery is double-posted.
func (r *DocumentRepository) VerifyAndRecordDeliveries(ctx context.Context, documentID, projectID, verifierID string, items []domain.RecognizedItem, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
UPDATE delivery_documents
SET verified = TRUE, verified_by_id = $2, verified_at = $3, updated_at = $3
WHERE id = $1 AND verified = FALSE
`, documentID, verifierID, at)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM delivery_documents WHERE id = $1)`, documentID).Scan(&exists); err != nil {
			return fmt.Errorf("check document: %w", err)
		}
		if !exists {
			return domain.WrapError(domain.ErrNotFound, "verify document", fmt.Errorf("document %s", documentID))
		}
		return domain.WrapError(domain.ErrConflict, "verify document",
			errors.New("document is already verified"))
	}

	for _, item := range items {
		materialID, err := ensureMaterial(ctx, tx, item.Name, item.Unit)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO material_deliveries (id, project_id, document_id, material_id, quantity, delivered_at, recorded_by_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, uuid.NewString(), projectID, documentID, materialID, item.Quantity, at, verifierID)
		if err != nil {
			return fmt.Errorf("insert delivery: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ensureMaterial resolves a material by its recognized name, creating the
// catalog row on first sight. Units follow the latest delivery note.
func ensureMaterial(ctx context.Context, tx *sql.Tx, name, unit string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
INSERT INTO materials (id, name, unit) VALUES ($1,$2,$3)
ON CONFLICT (name) DO UPDATE SET unit = EXCLUDED.unit
RETURNING id
`, uuid.NewString(), name, unit).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("ensure material %q: %w", name, err)
	}
	return id, nil
}
