package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/core/events"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/metrics"
	"github.com/frahmantamala/workforce-console/internal/session"
)

// loginFailure pairs the error a caller may see with the reason only the
// audit trail records.
type loginFailure struct {
	external  error
	reason    string
	profileID int64
	cause     error
}

func (f *loginFailure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %v", f.reason, f.cause)
	}
	return f.reason
}

func fail(external error, reason string, profileID int64, cause error) *loginFailure {
	return &loginFailure{external: external, reason: reason, profileID: profileID, cause: cause}
}

func unavailable(profileID int64, cause error) *loginFailure {
	return fail(ErrServiceUnavailable, audit.ReasonServiceUnavailable, profileID, cause)
}

type Authenticator struct {
	store       CredentialStore
	sessions    SessionIssuer
	hasher      *PasswordHasher
	verifier    IdentityVerifier
	provisioner *Provisioner
	trail       audit.Recorder
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Authenticator)

// WithFederation enables the federated path. Without it every federated
// attempt fails as a provider error.
func WithFederation(verifier IdentityVerifier, provisioner *Provisioner) Option {
	return func(a *Authenticator) {
		a.verifier = verifier
		a.provisioner = provisioner
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(a *Authenticator) { a.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func NewAuthenticator(store CredentialStore, sessions SessionIssuer, hasher *PasswordHasher, trail audit.Recorder, logger *slog.Logger, opts ...Option) *Authenticator {
	if trail == nil {
		trail = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{
		store:     store,
		sessions:  sessions,
		hasher:    hasher,
		trail:     trail,
		publisher: events.Discard{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login authenticates credential/secret and mints a session. Errors are
// always one of ErrInvalidCredentials, ErrNoProfile or ErrServiceUnavailable.
// Exactly one session.login audit record is written per call.
func (a *Authenticator) Login(ctx context.Context, credential, secret string) (*LoginResult, error) {
	kind := Classify(credential)

	var (
		p   *profile.Profile
		err error
	)
	if kind == session.KindFederated {
		p, err = a.authenticateFederated(ctx, credential, secret)
	} else {
		p, err = a.authenticateLocal(ctx, credential, secret)
	}
	if err != nil {
		return nil, a.reject(ctx, kind, err)
	}

	s, err := a.sessions.Create(ctx, p.ID, kind)
	if err != nil {
		return nil, a.reject(ctx, kind, unavailable(p.ID, err))
	}

	now := a.now().UTC()
	if err := a.store.UpdateLastLogin(ctx, p.ID, now); err != nil {
		a.logger.WarnContext(ctx, "failed to record last login", "profile_id", p.ID, "error", err)
	} else {
		p.LastLoginAt = &now
	}

	a.trail.Record(ctx, audit.Event{
		Type:            audit.EventSessionLogin,
		ActorProfileID:  p.ID,
		TargetProfileID: p.ID,
		Success:         true,
	})
	a.metrics.LoginAttempt(string(kind), "success")
	_ = a.publisher.Publish(ctx, events.NewLoginSucceededEvent(p.ID, string(kind)))
	a.logger.InfoContext(ctx, "login succeeded", "profile_id", p.ID, "kind", kind)

	return &LoginResult{Session: s, Profile: p}, nil
}

func (a *Authenticator) reject(ctx context.Context, kind session.Kind, err error) error {
	var f *loginFailure
	if !errors.As(err, &f) {
		f = unavailable(0, err)
	}

	a.trail.Record(ctx, audit.Event{
		Type:            audit.EventSessionLogin,
		TargetProfileID: f.profileID,
		Success:         false,
		FailureReason:   f.reason,
	})
	a.metrics.LoginAttempt(string(kind), f.reason)
	_ = a.publisher.Publish(ctx, events.NewLoginFailedEvent(string(kind), category(f.external)))

	if f.external == ErrServiceUnavailable {
		a.logger.ErrorContext(ctx, "login failed: store unavailable", "kind", kind, "error", f.cause)
	} else {
		a.logger.InfoContext(ctx, "login rejected", "kind", kind, "reason", f.reason)
	}
	return f.external
}

func category(external error) string {
	switch external {
	case ErrNoProfile:
		return "no_profile"
	case ErrServiceUnavailable:
		return "service_unavailable"
	default:
		return "invalid_credentials"
	}
}

func (a *Authenticator) authenticateLocal(ctx context.Context, username, password string) (*profile.Profile, error) {
	cred, err := a.store.FindLocalCredentialByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		a.hasher.DummyVerify(password)
		return nil, fail(ErrInvalidCredentials, audit.ReasonUserNotFound, 0, nil)
	}
	if err != nil {
		return nil, unavailable(0, err)
	}

	ok, err := a.hasher.Verify(cred.PasswordHash, cred.Algorithm, password)
	if err != nil {
		a.logger.ErrorContext(ctx, "stored password hash is unusable", "profile_id", cred.ProfileID, "error", err)
	}
	if !ok {
		return nil, fail(ErrInvalidCredentials, audit.ReasonInvalidPassword, cred.ProfileID, nil)
	}

	p, err := a.store.FindProfileByID(ctx, cred.ProfileID)
	if errors.Is(err, ErrNotFound) {
		return nil, fail(ErrInvalidCredentials, audit.ReasonUserNotFound, cred.ProfileID, nil)
	}
	if err != nil {
		return nil, unavailable(cred.ProfileID, err)
	}
	if !p.IsActive {
		return nil, fail(ErrInvalidCredentials, audit.ReasonInactive, p.ID, ErrInactiveAccount)
	}

	a.upgradeHash(ctx, cred, password)
	return p, nil
}

// upgradeHash replaces a hash made with outdated parameters. Failure only
// logs; the login has already succeeded.
func (a *Authenticator) upgradeHash(ctx context.Context, cred *LocalCredential, password string) {
	if !a.hasher.NeedsRehash(cred.PasswordHash, cred.Algorithm) {
		return
	}
	hash, alg, err := a.hasher.Hash(password)
	if err == nil {
		err = a.store.ReplaceLocalCredentialHash(ctx, cred.ProfileID, hash, alg)
	}
	if err != nil {
		a.logger.WarnContext(ctx, "password hash upgrade failed", "profile_id", cred.ProfileID, "error", err)
		return
	}
	a.logger.InfoContext(ctx, "password hash upgraded", "profile_id", cred.ProfileID, "from", cred.Algorithm, "to", alg)
}

func (a *Authenticator) authenticateFederated(ctx context.Context, email, idToken string) (*profile.Profile, error) {
	if a.verifier == nil {
		return nil, fail(ErrInvalidCredentials, audit.ReasonProviderError, 0, ErrFederationDisabled)
	}

	id, err := a.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fail(ErrInvalidCredentials, audit.ReasonProviderError, 0, err)
	}
	if !strings.EqualFold(strings.TrimSpace(email), id.Email) {
		return nil, fail(ErrInvalidCredentials, audit.ReasonInvalidCredentials, 0, nil)
	}

	p, err := a.resolveFederated(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fail(ErrInvalidCredentials, audit.ReasonInactive, p.ID, ErrInactiveAccount)
	}
	return p, nil
}

// resolveFederated follows an existing link, then the super admin
// allow-list. Anyone else has no profile.
func (a *Authenticator) resolveFederated(ctx context.Context, id *Identity) (*profile.Profile, error) {
	cred, err := a.store.FindFederatedCredentialBySubject(ctx, id.Provider, id.Subject)
	switch {
	case err == nil:
		p, err := a.store.FindProfileByID(ctx, cred.ProfileID)
		if errors.Is(err, ErrNotFound) {
			return nil, fail(ErrNoProfile, audit.ReasonNoProfile, cred.ProfileID, nil)
		}
		if err != nil {
			return nil, unavailable(cred.ProfileID, err)
		}
		return p, nil
	case !errors.Is(err, ErrNotFound):
		return nil, unavailable(0, err)
	}

	if a.provisioner == nil || !a.provisioner.Matches(id) {
		return nil, fail(ErrNoProfile, audit.ReasonNoProfile, 0, nil)
	}

	p, err := a.provisioner.EnsureSuperAdmin(ctx)
	if err != nil {
		if errors.Is(err, ErrSuperAdminConflict) {
			return nil, fail(ErrNoProfile, audit.ReasonNoProfile, 0, err)
		}
		return nil, unavailable(0, err)
	}

	link := FederatedCredential{
		ProfileID: p.ID,
		Provider:  id.Provider,
		Subject:   id.Subject,
		Email:     id.Email,
	}
	if err := a.store.InsertCredential(ctx, link); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return nil, unavailable(p.ID, err)
	}
	a.logger.InfoContext(ctx, "federated identity linked", "profile_id", p.ID, "provider", id.Provider)
	return p, nil
}
