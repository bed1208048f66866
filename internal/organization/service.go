package organization

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
)

type Service struct {
	repo    Repository
	checker authz.Checker
	trail   audit.Recorder
	logger  *slog.Logger
}

func NewService(repo Repository, checker authz.Checker, trail audit.Recorder, logger *slog.Logger) *Service {
	if trail == nil {
		trail = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, checker: checker, trail: trail, logger: logger}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, authz.ErrNotPermitted), errors.Is(err, authz.ErrInactive):
		return audit.ReasonNotPermitted
	case errors.Is(err, ErrNameTaken):
		return audit.ReasonAlreadyExists
	case errors.Is(err, ErrNotFound):
		return audit.ReasonNotFound
	case errors.Is(err, ErrNotEmpty):
		return audit.ReasonNotEmpty
	default:
		return audit.ReasonServiceUnavailable
	}
}

func (s *Service) CreateOrganization(ctx context.Context, caller *profile.Profile, req CreateOrganizationRequest) (*Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	org := &Organization{Name: req.Name, CreatedBy: profile.Int64Ptr(caller.ID)}
	err := s.checker.Check(ctx, caller, authz.ActionCreateOrganization, authz.ScopeTarget{})
	if err == nil {
		err = s.repo.CreateOrganization(ctx, org)
	}

	e := audit.Event{
		Type:                 audit.EventOrgCreated,
		ActorProfileID:       caller.ID,
		TargetOrganizationID: org.ID,
		Success:              err == nil,
	}
	if err != nil {
		e.FailureReason = reasonFor(err)
		s.trail.Record(ctx, e)
		return nil, err
	}
	s.trail.Record(ctx, e)

	s.logger.InfoContext(ctx, "organization created", "organization_id", org.ID, "name", org.Name, "created_by", caller.ID)
	return org, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, caller *profile.Profile, id int64) error {
	err := s.checker.Check(ctx, caller, authz.ActionDeleteOrganization, authz.ScopeTarget{OrganizationID: id})
	if err == nil {
		err = s.repo.DeleteOrganization(ctx, id)
	}

	e := audit.Event{
		Type:                 audit.EventOrgDeleted,
		ActorProfileID:       caller.ID,
		TargetOrganizationID: id,
		Success:              err == nil,
	}
	if err != nil {
		e.FailureReason = reasonFor(err)
	}
	s.trail.Record(ctx, e)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "organization deleted", "organization_id", id, "deleted_by", caller.ID)
	return nil
}

// ListOrganizations returns every tenant to a caller with all-organization
// scope and only the caller's own otherwise.
func (s *Service) ListOrganizations(ctx context.Context, caller *profile.Profile) ([]*Organization, error) {
	if err := s.checker.Check(ctx, caller, authz.ActionViewOrganization, authz.ScopeTarget{OrganizationID: caller.OrgID()}); err != nil {
		return nil, err
	}

	if scope, _ := authz.VisibleScope(caller, authz.ActionViewOrganization); scope == authz.ScopeAllOrganizations {
		return s.repo.ListOrganizations(ctx)
	}
	org, err := s.repo.GetOrganization(ctx, caller.OrgID())
	if err != nil {
		return nil, err
	}
	return []*Organization{org}, nil
}

func (s *Service) CreateDepartment(ctx context.Context, caller *profile.Profile, orgID int64, req CreateDepartmentRequest) (*Department, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checker.Check(ctx, caller, authz.ActionCreateDepartment, authz.ScopeTarget{OrganizationID: orgID}); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	dept := &Department{OrganizationID: orgID, Name: req.Name}
	if err := s.repo.CreateDepartment(ctx, dept); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "department created", "organization_id", orgID, "department_id", dept.ID, "created_by", caller.ID)
	return dept, nil
}

func (s *Service) ListDepartments(ctx context.Context, caller *profile.Profile, orgID int64) ([]*Department, error) {
	target := authz.ScopeTarget{OrganizationID: orgID, DepartmentID: caller.DeptID()}
	if err := s.checker.Check(ctx, caller, authz.ActionViewDepartments, target); err != nil {
		return nil, err
	}

	depts, err := s.repo.ListDepartments(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if scope, _ := authz.VisibleScope(caller, authz.ActionViewDepartments); scope == authz.ScopeOwnDepartment {
		own := depts[:0]
		for _, d := range depts {
			if d.ID == caller.DeptID() {
				own = append(own, d)
			}
		}
		depts = own
	}
	return depts, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, caller *profile.Profile, orgID, deptID int64) error {
	if err := s.checker.Check(ctx, caller, authz.ActionDeleteDepartment, authz.ScopeTarget{OrganizationID: orgID, DepartmentID: deptID}); err != nil {
		return err
	}
	if err := s.repo.DeleteDepartment(ctx, orgID, deptID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "department deleted", "organization_id", orgID, "department_id", deptID, "deleted_by", caller.ID)
	return nil
}
