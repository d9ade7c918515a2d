package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"qr-dine/internal/domain"
)

type SessionRepositoryInterface interface {
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	SetStatus(ctx context.Context, id string, status domain.SessionStatus) error
	Touch(ctx context.Context, id string, at time.Time) error
}

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) SessionRepositoryInterface {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, table_number, shop_id, status, created_at, expires_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.TableNumber, s.ShopID, string(s.Status), s.CreatedAt, s.ExpiresAt, s.LastActivityAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", translateErr(err))
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	var status string
	err := r.db.QueryRow(ctx, `
		SELECT id, table_number, shop_id, status, created_at, expires_at, last_activity_at
		FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.TableNumber, &s.ShopID, &status, &s.CreatedAt, &s.ExpiresAt, &s.LastActivityAt)
	if err != nil {
		return domain.Session{}, translateErr(err)
	}
	s.Status = domain.SessionStatus(status)
	return s, nil
}

func (r *SessionRepository) SetStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE sessions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE sessions SET last_activity_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
