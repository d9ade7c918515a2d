package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"qr-dine/internal/common/logger"
	"qr-dine/internal/domain"
	"qr-dine/internal/repository"
)

var tableNumberRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type SessionServiceInterface interface {
	Create(ctx context.Context, tableNumber, shopID string, ttlHours int) (domain.Session, error)
	// Get returns the session regardless of expiry; Validate is the
	// strict variant used before any cart or order mutation.
	Get(ctx context.Context, id string) (domain.Session, error)
	Validate(ctx context.Context, id string) (domain.Session, error)
	Touch(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
}

type SessionService struct {
	repo       repository.SessionRepositoryInterface
	defaultTTL time.Duration
	lg         *logger.Logger
}

func NewSessionService(repo repository.SessionRepositoryInterface, defaultTTLHours int, lg *logger.Logger) SessionServiceInterface {
	if defaultTTLHours <= 0 {
		defaultTTLHours = 2
	}
	return &SessionService{
		repo:       repo,
		defaultTTL: time.Duration(defaultTTLHours) * time.Hour,
		lg:         lg,
	}
}

func (s *SessionService) Create(ctx context.Context, tableNumber, shopID string, ttlHours int) (domain.Session, error) {
	if !tableNumberRe.MatchString(tableNumber) {
		return domain.Session{}, fmt.Errorf("table number %q: %w", tableNumber, domain.ErrInvalidTableNumber)
	}
	if strings.TrimSpace(shopID) == "" {
		return domain.Session{}, fmt.Errorf("shop id is required: %w", domain.ErrValidation)
	}
	ttl := s.defaultTTL
	if ttlHours > 0 {
		ttl = time.Duration(ttlHours) * time.Hour
	}

	now := time.Now().UTC()
	sess := domain.Session{
		ID:             newSessionID(tableNumber, now),
		TableNumber:    tableNumber,
		ShopID:         shopID,
		Status:         domain.SessionActive,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	s.lg.Info("session_created", map[string]any{
		"session_id": sess.ID, "table_number": tableNumber, "shop_id": shopID,
		"expires_at": sess.ExpiresAt,
	})
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	// A session past its TTL reads as expired even before Validate has
	// persisted the flip; reads must never show a stale active status.
	if sess.Status == domain.SessionActive && time.Now().UTC().After(sess.ExpiresAt) {
		sess.Status = domain.SessionExpired
	}
	return sess, nil
}

func (s *SessionService) Validate(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Status != domain.SessionActive {
		return domain.Session{}, fmt.Errorf("session %s is %s: %w", id, sess.Status, domain.ErrSessionExpired)
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		// Lazy expiry: flip the row on first detection.
		if err := s.repo.SetStatus(ctx, id, domain.SessionExpired); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.lg.Error("session_expire_failed", err, map[string]any{"session_id": id})
		}
		return domain.Session{}, fmt.Errorf("session %s expired at %s: %w", id, sess.ExpiresAt, domain.ErrSessionExpired)
	}
	return sess, nil
}

// Touch bumps the activity timestamp only. It never extends the TTL
// and is safe to call repeatedly.
func (s *SessionService) Touch(ctx context.Context, id string) error {
	return s.repo.Touch(ctx, id, time.Now().UTC())
}

// Complete marks the session finished. Idempotent.
func (s *SessionService) Complete(ctx context.Context, id string) error {
	if err := s.repo.SetStatus(ctx, id, domain.SessionCompleted); err != nil {
		return err
	}
	s.lg.Info("session_completed", map[string]any{"session_id": id})
	return nil
}

// newSessionID embeds the table number and creation time for
// debuggability; nothing parses the id back apart.
func newSessionID(tableNumber string, now time.Time) string {
	return fmt.Sprintf("SES_%s_%s_%s", tableNumber, now.Format("20060102150405"), uuid.NewString()[:8])
}
