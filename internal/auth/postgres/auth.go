package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/core/common/dberr"
	profileDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/profile"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements auth.CredentialStore and auth.ProfileDirectory.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindLocalCredentialByUsername(ctx context.Context, username string) (*auth.LocalCredential, error) {
	var row struct {
		profileDatamodel.LocalCredential
		Username string
	}
	err := r.db.WithContext(ctx).
		Table("local_credentials").
		Select("local_credentials.*, profiles.username").
		Joins("JOIN profiles ON profiles.id = local_credentials.profile_id").
		Where("profiles.username = ?", username).
		Take(&row).Error
	if dberr.IsNotFound(err) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting local credential: %w", err)
	}

	return &auth.LocalCredential{
		ProfileID:    row.ProfileID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Algorithm:    auth.Algorithm(row.Algorithm),
		ChangedAt:    row.ChangedAt,
	}, nil
}

func (r *Repository) FindFederatedCredentialBySubject(ctx context.Context, provider, subject string) (*auth.FederatedCredential, error) {
	var row profileDatamodel.FederatedCredential
	err := r.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", provider, subject).
		First(&row).Error
	if dberr.IsNotFound(err) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting federated credential: %w", err)
	}

	return &auth.FederatedCredential{
		ProfileID: row.ProfileID,
		Provider:  row.Provider,
		Subject:   row.Subject,
		Email:     row.Email,
	}, nil
}

func (r *Repository) FindProfileByID(ctx context.Context, id int64) (*profile.Profile, error) {
	var row profileDatamodel.Profile
	err := r.db.WithContext(ctx).First(&row, id).Error
	if dberr.IsNotFound(err) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return ToProfile(&row), nil
}

func (r *Repository) FindProfileByUsername(ctx context.Context, username string) (*profile.Profile, error) {
	var row profileDatamodel.Profile
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if dberr.IsNotFound(err) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile by username: %w", err)
	}
	return ToProfile(&row), nil
}

func (r *Repository) CreateProfile(ctx context.Context, p *profile.Profile) error {
	row := FromProfile(p)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return auth.ErrAlreadyExists
		}
		return fmt.Errorf("creating profile: %w", err)
	}
	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, profileID int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Where("id = ?", profileID).
		Update("last_login_at", at)
	if res.Error != nil {
		return fmt.Errorf("updating last login: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (r *Repository) InsertCredential(ctx context.Context, cred auth.Credential) error {
	var row interface{}
	switch c := cred.(type) {
	case auth.LocalCredential:
		row = &profileDatamodel.LocalCredential{
			ProfileID:    c.ProfileID,
			PasswordHash: c.PasswordHash,
			Algorithm:    string(c.Algorithm),
			ChangedAt:    changedAt(c.ChangedAt),
		}
	case auth.FederatedCredential:
		row = &profileDatamodel.FederatedCredential{
			ProfileID: c.ProfileID,
			Provider:  c.Provider,
			Subject:   c.Subject,
			Email:     c.Email,
		}
	default:
		return fmt.Errorf("unsupported credential type %T", cred)
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return auth.ErrAlreadyExists
		}
		return fmt.Errorf("inserting credential: %w", err)
	}
	return nil
}

// ReplaceLocalCredentialHash swaps the hash in one statement, creating the
// row if the profile had no local credential yet.
func (r *Repository) ReplaceLocalCredentialHash(ctx context.Context, profileID int64, hash string, algorithm auth.Algorithm) error {
	row := &profileDatamodel.LocalCredential{
		ProfileID:    profileID,
		PasswordHash: hash,
		Algorithm:    string(algorithm),
		ChangedAt:    time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "algorithm", "changed_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("replacing local credential: %w", err)
	}
	return nil
}

func changedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func ToProfile(row *profileDatamodel.Profile) *profile.Profile {
	p := &profile.Profile{
		ID:             row.ID,
		TrackingID:     row.TrackingID,
		Username:       row.Username,
		DisplayName:    row.DisplayName,
		Role:           profile.Role(row.Role),
		OrganizationID: row.OrganizationID,
		DepartmentID:   row.DepartmentID,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		LastLoginAt:    row.LastLoginAt,
	}
	if row.Email != nil {
		p.Email = *row.Email
	}
	return p
}

func FromProfile(p *profile.Profile) *profileDatamodel.Profile {
	row := &profileDatamodel.Profile{
		ID:             p.ID,
		TrackingID:     p.TrackingID,
		Username:       p.Username,
		DisplayName:    p.DisplayName,
		Role:           string(p.Role),
		OrganizationID: p.OrganizationID,
		DepartmentID:   p.DepartmentID,
		IsActive:       p.IsActive,
		LastLoginAt:    p.LastLoginAt,
	}
	if p.Email != "" {
		email := p.Email
		row.Email = &email
	}
	return row
}
