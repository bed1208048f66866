// Package organization manages tenants and their departments.
package organization

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("organization not found")
	ErrNameTaken = errors.New("name already taken")
	ErrNotEmpty  = errors.New("organization still has members")
)

type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Department struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

type Repository interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]*Organization, error)
	// DeleteOrganization refuses while profiles still belong to it.
	DeleteOrganization(ctx context.Context, id int64) error

	CreateDepartment(ctx context.Context, dept *Department) error
	ListDepartments(ctx context.Context, orgID int64) ([]*Department, error)
	DeleteDepartment(ctx context.Context, orgID, deptID int64) error
}
