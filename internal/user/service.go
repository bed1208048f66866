package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service struct {
	repo        Repository
	credentials CredentialStore
	hasher      *auth.PasswordHasher
	checker     authz.Checker
	trail       audit.Recorder
	logger      *slog.Logger
}

func NewService(repo Repository, credentials CredentialStore, hasher *auth.PasswordHasher, checker authz.Checker, trail audit.Recorder, logger *slog.Logger) *Service {
	if trail == nil {
		trail = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		credentials: credentials,
		hasher:      hasher,
		checker:     checker,
		trail:       trail,
		logger:      logger,
	}
}

// targetOf is the scope target for acting on an existing profile.
func targetOf(p *profile.Profile) authz.ScopeTarget {
	return authz.ScopeTarget{
		OrganizationID: p.OrgID(),
		DepartmentID:   p.DeptID(),
		ProfileID:      p.ID,
	}
}

// Create provisions a profile with a local credential. Tenancy defaults to
// the caller's own organization and department.
func (s *Service) Create(ctx context.Context, caller *profile.Profile, req CreateUserRequest) (*profile.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	role := profile.Role(req.Role)
	orgID := req.OrganizationID
	if orgID == 0 {
		orgID = caller.OrgID()
	}
	deptID := req.DepartmentID
	if deptID == 0 && orgID == caller.OrgID() {
		deptID = caller.DeptID()
	}
	target := authz.ScopeTarget{OrganizationID: orgID, DepartmentID: deptID}

	fail := func(reason string, err error) (*profile.Profile, error) {
		s.trail.Record(ctx, audit.Event{
			Type:                 audit.EventUserCreated,
			ActorProfileID:       caller.ID,
			TargetOrganizationID: orgID,
			Success:              false,
			FailureReason:        reason,
		})
		return nil, err
	}

	if err := s.checker.Check(ctx, caller, authz.ActionCreateUser, target); err != nil {
		return fail(audit.ReasonNotPermitted, err)
	}
	if !authz.MayManage(caller, role) {
		return fail(audit.ReasonNotPermitted, ErrRoleEscalation)
	}
	if deptID != 0 {
		owned, err := s.repo.DepartmentInOrganization(ctx, orgID, deptID)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to resolve department", "department_id", deptID, "error", err)
			return fail(audit.ReasonServiceUnavailable, err)
		}
		if !owned {
			return fail(audit.ReasonNotFound, ErrForeignDepartment)
		}
	}

	p := &profile.Profile{
		TrackingID:     uuid.NewString(),
		Username:       req.Username,
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		Role:           role,
		OrganizationID: profile.Int64Ptr(orgID),
		DepartmentID:   profile.Int64Ptr(deptID),
		IsActive:       true,
	}
	if err := p.Validate(); err != nil {
		return nil, internal.NewValidationFieldError("organization_id", err.Error(), internal.ErrCodeValidationFailed)
	}

	hash, alg, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fail(audit.ReasonServiceUnavailable, fmt.Errorf("hashing password: %w", err))
	}

	cred := auth.LocalCredential{
		Username:     p.Username,
		PasswordHash: hash,
		Algorithm:    alg,
		ChangedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, p, cred); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return fail(audit.ReasonAlreadyExists, err)
		}
		s.logger.ErrorContext(ctx, "failed to create user", "username", p.Username, "error", err)
		return fail(audit.ReasonServiceUnavailable, err)
	}

	s.trail.Record(ctx, audit.Event{
		Type:                 audit.EventUserCreated,
		ActorProfileID:       caller.ID,
		TargetProfileID:      p.ID,
		TargetOrganizationID: orgID,
		Success:              true,
	})
	s.logger.InfoContext(ctx, "user created",
		"profile_id", p.ID,
		"role", p.Role,
		"organization_id", orgID,
		"created_by", caller.ID)

	return p, nil
}

// load fetches the target profile and enforces action on it.
func (s *Service) load(ctx context.Context, caller *profile.Profile, id int64, action authz.Action) (*profile.Profile, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checker.Check(ctx, caller, action, targetOf(target)); err != nil {
		return target, err
	}
	if target.ID != caller.ID && !authz.MayManage(caller, target.Role) {
		return target, ErrRoleEscalation
	}
	return target, nil
}

func (s *Service) Get(ctx context.Context, caller *profile.Profile, id int64) (*profile.Profile, error) {
	if id == caller.ID {
		if err := s.checker.Check(ctx, caller, authz.ActionViewProfile, targetOf(caller)); err != nil {
			return nil, err
		}
		return s.repo.GetByID(ctx, id)
	}
	return s.load(ctx, caller, id, authz.ActionViewUsers)
}

// List returns users visible at the scope the caller holds view_users at.
func (s *Service) List(ctx context.Context, caller *profile.Profile, filter ListFilter) ([]*profile.Profile, error) {
	if err := s.checker.Check(ctx, caller, authz.ActionViewUsers, authz.ScopeTarget{
		OrganizationID: caller.OrgID(),
		DepartmentID:   caller.DeptID(),
	}); err != nil {
		return nil, err
	}

	scope, _ := authz.VisibleScope(caller, authz.ActionViewUsers)
	switch scope {
	case authz.ScopeAllOrganizations:
	case authz.ScopeOwnOrganization:
		filter.OrganizationID = caller.OrgID()
	default:
		filter.OrganizationID = caller.OrgID()
		filter.DepartmentID = caller.DeptID()
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// SetActive flips the activity flag. Live sessions are left alone; the
// authorization engine denies an inactive profile on its next request.
func (s *Service) SetActive(ctx context.Context, caller *profile.Profile, id int64, active bool) (*profile.Profile, error) {
	if id == caller.ID {
		return nil, ErrSelfAction
	}
	target, err := s.load(ctx, caller, id, authz.ActionDeactivateUser)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	target.IsActive = active

	s.logger.InfoContext(ctx, "user activity changed", "profile_id", id, "active", active, "changed_by", caller.ID)
	return target, nil
}

func (s *Service) Delete(ctx context.Context, caller *profile.Profile, id int64) error {
	fail := func(targetOrg int64, reason string, err error) error {
		s.trail.Record(ctx, audit.Event{
			Type:                 audit.EventUserDeleted,
			ActorProfileID:       caller.ID,
			TargetProfileID:      id,
			TargetOrganizationID: targetOrg,
			Success:              false,
			FailureReason:        reason,
		})
		return err
	}

	if id == caller.ID {
		return fail(caller.OrgID(), audit.ReasonNotPermitted, ErrSelfAction)
	}

	target, err := s.load(ctx, caller, id, authz.ActionDeleteUser)
	if errors.Is(err, ErrNotFound) {
		return fail(0, audit.ReasonNotFound, err)
	}
	if err != nil {
		var org int64
		if target != nil {
			org = target.OrgID()
		}
		if errors.Is(err, authz.ErrNotPermitted) || errors.Is(err, authz.ErrInactive) || errors.Is(err, ErrRoleEscalation) {
			return fail(org, audit.ReasonNotPermitted, err)
		}
		return fail(org, audit.ReasonServiceUnavailable, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete user", "profile_id", id, "error", err)
		return fail(target.OrgID(), audit.ReasonServiceUnavailable, err)
	}

	s.trail.Record(ctx, audit.Event{
		Type:                 audit.EventUserDeleted,
		ActorProfileID:       caller.ID,
		TargetProfileID:      id,
		TargetOrganizationID: target.OrgID(),
		Success:              true,
	})
	s.logger.InfoContext(ctx, "user deleted", "profile_id", id, "deleted_by", caller.ID)
	return nil
}

// ChangePassword replaces the local credential hash. Changing one's own
// password needs the current one; administrators resetting another user's
// password need update_user on that user.
func (s *Service) ChangePassword(ctx context.Context, caller *profile.Profile, id int64, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	var target *profile.Profile
	if id == caller.ID {
		if err := s.checker.Check(ctx, caller, authz.ActionChangePassword, targetOf(caller)); err != nil {
			return err
		}
		target = caller
		if err := s.verifyCurrent(ctx, caller, req.CurrentPassword); err != nil {
			return err
		}
	} else {
		var err error
		target, err = s.load(ctx, caller, id, authz.ActionUpdateUser)
		if err != nil {
			return err
		}
	}

	hash, alg, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.credentials.ReplaceLocalCredentialHash(ctx, target.ID, hash, alg); err != nil {
		return fmt.Errorf("replacing password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", "profile_id", target.ID, "changed_by", caller.ID)
	return nil
}

func (s *Service) verifyCurrent(ctx context.Context, caller *profile.Profile, current string) error {
	cred, err := s.credentials.FindLocalCredentialByUsername(ctx, caller.Username)
	if errors.Is(err, auth.ErrNotFound) {
		return ErrNoLocalLogin
	}
	if err != nil {
		return fmt.Errorf("finding credential: %w", err)
	}
	ok, err := s.hasher.Verify(cred.PasswordHash, cred.Algorithm, current)
	if err != nil || !ok {
		return ErrWrongPassword
	}
	return nil
}
