package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/workforce-console/internal/core/common/dberr"
	orgDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/organization"
	profileDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/profile"
	"github.com/frahmantamala/workforce-console/internal/organization"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.Repository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org *organization.Organization) error {
	row := &orgDatamodel.Organization{Name: org.Name, CreatedBy: org.CreatedBy}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return organization.ErrNameTaken
		}
		return fmt.Errorf("creating organization: %w", err)
	}
	org.ID = row.ID
	org.CreatedAt = row.CreatedAt
	return nil
}

func (r *OrganizationRepository) GetOrganization(ctx context.Context, id int64) (*organization.Organization, error) {
	var row orgDatamodel.Organization
	err := r.db.WithContext(ctx).First(&row, id).Error
	if dberr.IsNotFound(err) {
		return nil, organization.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return toOrganization(&row), nil
}

func (r *OrganizationRepository) ListOrganizations(ctx context.Context) ([]*organization.Organization, error) {
	var rows []orgDatamodel.Organization
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	out := make([]*organization.Organization, 0, len(rows))
	for i := range rows {
		out = append(out, toOrganization(&rows[i]))
	}
	return out, nil
}

func (r *OrganizationRepository) DeleteOrganization(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members int64
		if err := tx.Model(&profileDatamodel.Profile{}).Where("organization_id = ?", id).Count(&members).Error; err != nil {
			return fmt.Errorf("counting members: %w", err)
		}
		if members > 0 {
			return organization.ErrNotEmpty
		}

		if err := tx.Where("organization_id = ?", id).Delete(&orgDatamodel.Department{}).Error; err != nil {
			return fmt.Errorf("deleting departments: %w", err)
		}
		res := tx.Delete(&orgDatamodel.Organization{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting organization: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return organization.ErrNotFound
		}
		return nil
	})
}

func (r *OrganizationRepository) CreateDepartment(ctx context.Context, dept *organization.Department) error {
	row := &orgDatamodel.Department{OrganizationID: dept.OrganizationID, Name: dept.Name}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return organization.ErrNameTaken
		}
		return fmt.Errorf("creating department: %w", err)
	}
	dept.ID = row.ID
	dept.CreatedAt = row.CreatedAt
	return nil
}

func (r *OrganizationRepository) ListDepartments(ctx context.Context, orgID int64) ([]*organization.Department, error) {
	var rows []orgDatamodel.Department
	if err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	out := make([]*organization.Department, 0, len(rows))
	for _, row := range rows {
		out = append(out, &organization.Department{
			ID:             row.ID,
			OrganizationID: row.OrganizationID,
			Name:           row.Name,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}

// DeleteDepartment resolves the department inside orgID before looking at
// its members, so a department of another organization reads as not found.
func (r *OrganizationRepository) DeleteDepartment(ctx context.Context, orgID, deptID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&orgDatamodel.Department{}).Where("organization_id = ? AND id = ?", orgID, deptID).Count(&owned).Error; err != nil {
			return fmt.Errorf("resolving department: %w", err)
		}
		if owned == 0 {
			return organization.ErrNotFound
		}

		var members int64
		if err := tx.Model(&profileDatamodel.Profile{}).Where("organization_id = ? AND department_id = ?", orgID, deptID).Count(&members).Error; err != nil {
			return fmt.Errorf("counting members: %w", err)
		}
		if members > 0 {
			return organization.ErrNotEmpty
		}

		res := tx.Where("organization_id = ? AND id = ?", orgID, deptID).Delete(&orgDatamodel.Department{})
		if res.Error != nil {
			return fmt.Errorf("deleting department: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return organization.ErrNotFound
		}
		return nil
	})
}

func toOrganization(row *orgDatamodel.Organization) *organization.Organization {
	return &organization.Organization{
		ID:        row.ID,
		Name:      row.Name,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}
}
