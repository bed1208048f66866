package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/workforce-console/internal/auth"
	authPostgres "github.com/frahmantamala/workforce-console/internal/auth/postgres"
	"github.com/frahmantamala/workforce-console/internal/core/common/dberr"
	orgDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/organization"
	profileDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/profile"
	sessionDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/session"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, p *profile.Profile, cred auth.LocalCredential) error {
	row := authPostgres.FromProfile(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return tx.Create(&profileDatamodel.LocalCredential{
			ProfileID:    row.ID,
			PasswordHash: cred.PasswordHash,
			Algorithm:    string(cred.Algorithm),
			ChangedAt:    cred.ChangedAt,
		}).Error
	})
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}

	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*profile.Profile, error) {
	var row profileDatamodel.Profile
	err := r.db.WithContext(ctx).First(&row, id).Error
	if dberr.IsNotFound(err) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return authPostgres.ToProfile(&row), nil
}

func (r *UserRepository) DepartmentInOrganization(ctx context.Context, orgID, deptID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&orgDatamodel.Department{}).
		Where("id = ? AND organization_id = ?", deptID, orgID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("resolving department: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*profile.Profile, error) {
	q := r.db.WithContext(ctx).Model(&profileDatamodel.Profile{})
	if filter.OrganizationID != 0 {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.DepartmentID != 0 {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}

	var rows []profileDatamodel.Profile
	if err := q.Order("id ASC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	out := make([]*profile.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, authPostgres.ToProfile(&rows[i]))
	}
	return out, nil
}

// SetActive is a single-column UPDATE so it never races a read.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("updating user activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", id).Delete(&sessionDatamodel.Session{}).Error; err != nil {
			return fmt.Errorf("deleting sessions: %w", err)
		}
		if err := tx.Where("profile_id = ?", id).Delete(&profileDatamodel.LocalCredential{}).Error; err != nil {
			return fmt.Errorf("deleting local credential: %w", err)
		}
		if err := tx.Where("profile_id = ?", id).Delete(&profileDatamodel.FederatedCredential{}).Error; err != nil {
			return fmt.Errorf("deleting federated credential: %w", err)
		}
		res := tx.Delete(&profileDatamodel.Profile{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}
