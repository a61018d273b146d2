package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/secureface/secureface/internal/store"
)

// UserRepository provides PostgreSQL-backed identity storage. It satisfies
// the same contract as store.IdentityStore.
type UserRepository struct {
	pool *Pool
}

func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByEmail looks up an enrolled record case-insensitively.
// Returns (nil, nil) when the email is unknown.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*store.UserRecord, error) {
	query := `
		SELECT id, email, name, phone, pin, face_reference, enrolled_at
		FROM users
		WHERE email_normalized = $1
	`

	var rec store.UserRecord
	err := r.pool.QueryRow(ctx, query, store.NormalizeEmail(email)).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.Phone,
		&rec.PIN,
		&rec.FaceReference,
		&rec.EnrolledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &rec, nil
}

// Register inserts a new enrolled record. A unique index on the normalized
// email enforces the single-enrollment rule at the database level.
func (r *UserRepository) Register(ctx context.Context, rec *store.UserRecord) error {
	query := `
		INSERT INTO users (id, email, email_normalized, name, phone, pin, face_reference, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Email,
		store.NormalizeEmail(rec.Email),
		rec.Name,
		rec.Phone,
		rec.PIN,
		rec.FaceReference,
		rec.EnrolledAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}
