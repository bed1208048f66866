// Package auth authenticates federated and local credentials and turns
// either into the same kind of session.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/session"
)

// Errors returned to login callers. Nothing finer than these leaves the package.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoProfile          = errors.New("no profile provisioned for identity")
	ErrServiceUnavailable = errors.New("identity service unavailable")
)

// Errors used internally and by stores.
var (
	ErrInactiveAccount = errors.New("account is inactive")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
)

// Classify decides the credential scheme from the shape of the credential
// alone. Anything with an address form local@domain is federated.
func Classify(credential string) session.Kind {
	at := strings.IndexByte(credential, '@')
	if at > 0 && at < len(credential)-1 && strings.Count(credential, "@") == 1 {
		return session.KindFederated
	}
	return session.KindLocal
}

// Credential is one of LocalCredential or FederatedCredential.
type Credential interface {
	Kind() session.Kind
}

// LocalCredential never leaves the credential store boundary except to be
// verified.
type LocalCredential struct {
	ProfileID    int64
	Username     string
	PasswordHash string
	Algorithm    Algorithm
	ChangedAt    time.Time
}

func (LocalCredential) Kind() session.Kind { return session.KindLocal }

type FederatedCredential struct {
	ProfileID int64
	Provider  string
	Subject   string
	Email     string
}

func (FederatedCredential) Kind() session.Kind { return session.KindFederated }

// CredentialStore is the persistence boundary for credentials and the
// profiles they resolve to. Every write is row-atomic.
type CredentialStore interface {
	FindLocalCredentialByUsername(ctx context.Context, username string) (*LocalCredential, error)
	FindFederatedCredentialBySubject(ctx context.Context, provider, subject string) (*FederatedCredential, error)
	FindProfileByID(ctx context.Context, id int64) (*profile.Profile, error)
	UpdateLastLogin(ctx context.Context, profileID int64, at time.Time) error
	InsertCredential(ctx context.Context, cred Credential) error
	ReplaceLocalCredentialHash(ctx context.Context, profileID int64, hash string, algorithm Algorithm) error
}

// ProfileDirectory is the subset of profile persistence used for
// provisioning.
type ProfileDirectory interface {
	FindProfileByUsername(ctx context.Context, username string) (*profile.Profile, error)
	CreateProfile(ctx context.Context, p *profile.Profile) error
}

// SessionIssuer mints sessions after a successful credential check.
type SessionIssuer interface {
	Create(ctx context.Context, profileID int64, kind session.Kind) (*session.Session, error)
}

type LoginResult struct {
	Session *session.Session
	Profile *profile.Profile
}
