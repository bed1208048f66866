package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/google/uuid"
)

var (
	ErrSuperAdminNotConfigured = errors.New("super admin allow-list is not configured")
	ErrSuperAdminConflict      = errors.New("super admin username is taken by a non super admin profile")
)

// Provisioner creates the designated super admin as a real profile row.
type Provisioner struct {
	directory ProfileDirectory
	security  internal.SecurityConfig
	trail     audit.Recorder
	logger    *slog.Logger
}

func NewProvisioner(directory ProfileDirectory, security internal.SecurityConfig, trail audit.Recorder, logger *slog.Logger) *Provisioner {
	if trail == nil {
		trail = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		directory: directory,
		security:  security,
		trail:     trail,
		logger:    logger,
	}
}

func (p *Provisioner) Configured() bool {
	return p.security.SuperAdminUsername() != ""
}

// Matches reports whether a verified identity is on the super admin allow-list.
func (p *Provisioner) Matches(id *Identity) bool {
	if id == nil {
		return false
	}
	if email := strings.TrimSpace(p.security.SuperAdminEmail); email != "" && strings.EqualFold(email, id.Email) {
		return true
	}
	if u := strings.TrimSpace(p.security.SuperAdminProviderUsername); u != "" && id.Username != "" && u == id.Username {
		return true
	}
	return false
}

// EnsureSuperAdmin returns the super admin profile, creating it on first use.
// It is safe to call repeatedly and concurrently.
func (p *Provisioner) EnsureSuperAdmin(ctx context.Context) (*profile.Profile, error) {
	username := p.security.SuperAdminUsername()
	if username == "" {
		return nil, ErrSuperAdminNotConfigured
	}

	existing, err := p.directory.FindProfileByUsername(ctx, username)
	switch {
	case err == nil:
		return checkSuperAdmin(existing)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("finding super admin: %w", err)
	}

	admin := &profile.Profile{
		TrackingID:  uuid.NewString(),
		Username:    username,
		DisplayName: "Super Administrator",
		Email:       strings.ToLower(strings.TrimSpace(p.security.SuperAdminEmail)),
		Role:        profile.RoleSuperAdmin,
		IsActive:    true,
	}
	if err := p.directory.CreateProfile(ctx, admin); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			existing, ferr := p.directory.FindProfileByUsername(ctx, username)
			if ferr != nil {
				return nil, fmt.Errorf("finding super admin after conflict: %w", ferr)
			}
			return checkSuperAdmin(existing)
		}
		return nil, fmt.Errorf("creating super admin: %w", err)
	}

	p.logger.InfoContext(ctx, "super admin provisioned", "profile_id", admin.ID, "username", admin.Username)
	p.trail.Record(ctx, audit.Event{
		Type:            audit.EventUserCreated,
		TargetProfileID: admin.ID,
		Success:         true,
	})
	return admin, nil
}

func checkSuperAdmin(p *profile.Profile) (*profile.Profile, error) {
	if p.Role != profile.RoleSuperAdmin {
		return nil, ErrSuperAdminConflict
	}
	return p, nil
}
