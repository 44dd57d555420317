package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

// UserRepository resolves identities from the users table. Tokens are
// opaque strings issued out of band and stored alongside the account.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) IdentityByToken(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "resolve token", errors.New("empty token"))
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, role FROM users WHERE api_token = $1
`, token)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "resolve token", errors.New("unknown token"))
		}
		return nil, err
	}
	return id, nil
}

func (r *UserRepository) IdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, role FROM users WHERE email = $1
`, email)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "resolve user", fmt.Errorf("user %s", email))
		}
		return nil, err
	}
	return id, nil
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var id domain.Identity
	var role string
	if err := row.Scan(&id.UserID, &id.Email, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	id.Role = domain.Role(role)
	return &id, nil
}
