package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/session"
	"github.com/frahmantamala/workforce-console/internal/session"
	"gorm.io/gorm"
)

// SessionRepository keeps sessions in the sessions table. Refresh and revoke
// are single conditional UPDATEs so they never race through a read.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) session.Store {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, rec *session.Record) error {
	row := toRow(rec)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*session.Record, error) {
	var row sessionDatamodel.Session
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session by token: %w", err)
	}
	return fromRow(&row), nil
}

func (r *SessionRepository) Extend(ctx context.Context, tokenHash string, now, expiresAt time.Time) (*session.Record, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionDatamodel.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", tokenHash, now).
		Update("expires_at", expiresAt)
	if res.Error != nil {
		return nil, fmt.Errorf("extending session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, session.ErrNotFound
	}
	return r.FindByTokenHash(ctx, tokenHash)
}

func (r *SessionRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionDatamodel.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("revoking session: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ? OR revoked_at IS NOT NULL", before).
		Delete(&sessionDatamodel.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func toRow(rec *session.Record) *sessionDatamodel.Session {
	return &sessionDatamodel.Session{
		ID:        rec.ID,
		TokenHash: rec.TokenHash,
		ProfileID: rec.ProfileID,
		Kind:      string(rec.Kind),
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		RevokedAt: rec.RevokedAt,
	}
}

func fromRow(row *sessionDatamodel.Session) *session.Record {
	return &session.Record{
		ID:        row.ID,
		TokenHash: row.TokenHash,
		ProfileID: row.ProfileID,
		Kind:      session.Kind(row.Kind),
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
		RevokedAt: row.RevokedAt,
	}
}
