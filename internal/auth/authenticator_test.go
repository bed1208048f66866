package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/session"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("Authenticator", func() {
	var (
		store    *memoryStore
		sessions *fakeSessions
		trail    *recordingTrail
		hasher   *PasswordHasher
		authn    *Authenticator
		ctx      context.Context
		logger   *slog.Logger
	)

	orgID := profile.Int64Ptr(7)

	addLocalUser := func(username, password string, active bool) *profile.Profile {
		p := store.addProfile(&profile.Profile{
			Username:       username,
			DisplayName:    username,
			Role:           profile.RoleEmployee,
			OrganizationID: orgID,
			IsActive:       active,
		})
		hash, alg, err := hasher.Hash(password)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		store.addLocal(p, hash, alg)
		return p
	}

	ginkgo.BeforeEach(func() {
		var err error
		store = newMemoryStore()
		sessions = &fakeSessions{}
		trail = &recordingTrail{}
		hasher, err = NewPasswordHasher("bcrypt", bcrypt.MinCost)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		authn = NewAuthenticator(store, sessions, hasher, trail, logger)
		ctx = context.Background()
	})

	ginkgo.Describe("Classify", func() {
		ginkgo.It("treats address shaped credentials as federated", func() {
			gomega.Expect(Classify("alice@example.com")).To(gomega.Equal(session.KindFederated))
		})

		ginkgo.It("treats everything else as local", func() {
			for _, c := range []string{"dave", "@example.com", "alice@", "a@b@c", ""} {
				gomega.Expect(Classify(c)).To(gomega.Equal(session.KindLocal), c)
			}
		})
	})

	ginkgo.Describe("local login", func() {
		ginkgo.It("issues a local session and stamps last login", func() {
			dave := addLocalUser("dave", "correct-horse", true)

			res, err := authn.Login(ctx, "dave", "correct-horse")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Session.Kind).To(gomega.Equal(session.KindLocal))
			gomega.Expect(res.Profile.ID).To(gomega.Equal(dave.ID))
			gomega.Expect(res.Profile.LastLoginAt).NotTo(gomega.BeNil())
			gomega.Expect(store.lastLogin).To(gomega.HaveKey(dave.ID))

			logins := trail.ofType(audit.EventSessionLogin)
			gomega.Expect(logins).To(gomega.HaveLen(1))
			gomega.Expect(logins[0].Success).To(gomega.BeTrue())
			gomega.Expect(logins[0].ActorProfileID).To(gomega.Equal(dave.ID))
			gomega.Expect(logins[0].TargetProfileID).To(gomega.Equal(dave.ID))
		})

		ginkgo.It("gives the same answer for an unknown user and a wrong password", func() {
			addLocalUser("dave", "correct-horse", true)

			_, unknownErr := authn.Login(ctx, "nobody", "correct-horse")
			_, wrongErr := authn.Login(ctx, "dave", "battery-staple")

			gomega.Expect(unknownErr).To(gomega.MatchError(ErrInvalidCredentials))
			gomega.Expect(wrongErr).To(gomega.MatchError(ErrInvalidCredentials))
			gomega.Expect(unknownErr.Error()).To(gomega.Equal(wrongErr.Error()))
			gomega.Expect(sessions.created).To(gomega.BeEmpty())

			logins := trail.ofType(audit.EventSessionLogin)
			gomega.Expect(logins).To(gomega.HaveLen(2))
			gomega.Expect(logins[0].FailureReason).To(gomega.Equal(audit.ReasonUserNotFound))
			gomega.Expect(logins[1].FailureReason).To(gomega.Equal(audit.ReasonInvalidPassword))
		})

		ginkgo.It("rejects an inactive account without revealing why", func() {
			carol := addLocalUser("carol", "correct-horse", false)

			_, err := authn.Login(ctx, "carol", "correct-horse")
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
			gomega.Expect(sessions.created).To(gomega.BeEmpty())

			logins := trail.ofType(audit.EventSessionLogin)
			gomega.Expect(logins).To(gomega.HaveLen(1))
			gomega.Expect(logins[0].Success).To(gomega.BeFalse())
			gomega.Expect(logins[0].FailureReason).To(gomega.Equal(audit.ReasonInactive))
			gomega.Expect(logins[0].TargetProfileID).To(gomega.Equal(carol.ID))
			gomega.Expect(logins[0].ActorProfileID).To(gomega.BeZero())
		})

		ginkgo.It("reports an unreachable store as unavailable", func() {
			addLocalUser("dave", "correct-horse", true)
			store.failWith = errors.New("connection refused")

			_, err := authn.Login(ctx, "dave", "correct-horse")
			gomega.Expect(err).To(gomega.MatchError(ErrServiceUnavailable))

			logins := trail.ofType(audit.EventSessionLogin)
			gomega.Expect(logins).To(gomega.HaveLen(1))
			gomega.Expect(logins[0].FailureReason).To(gomega.Equal(audit.ReasonServiceUnavailable))
		})

		ginkgo.It("reports a session store failure as unavailable", func() {
			addLocalUser("dave", "correct-horse", true)
			sessions.err = errors.New("insert failed")

			_, err := authn.Login(ctx, "dave", "correct-horse")
			gomega.Expect(err).To(gomega.MatchError(ErrServiceUnavailable))
			gomega.Expect(trail.ofType(audit.EventSessionLogin)).To(gomega.HaveLen(1))
		})

		ginkgo.It("upgrades a hash made with an older cost", func() {
			dave := store.addProfile(&profile.Profile{Username: "dave", Role: profile.RoleEmployee, OrganizationID: orgID, IsActive: true})
			weak, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			store.addLocal(dave, string(weak), AlgorithmBcrypt)

			stronger, err := NewPasswordHasher("bcrypt", bcrypt.MinCost+1)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			authn = NewAuthenticator(store, sessions, stronger, trail, logger)

			_, err = authn.Login(ctx, "dave", "correct-horse")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(store.replaced).To(gomega.HaveLen(1))

			cost, err := bcrypt.Cost([]byte(store.local[dave.ID].PasswordHash))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(cost).To(gomega.Equal(bcrypt.MinCost + 1))
		})

		ginkgo.It("still succeeds when the hash upgrade fails", func() {
			dave := store.addProfile(&profile.Profile{Username: "dave", Role: profile.RoleEmployee, OrganizationID: orgID, IsActive: true})
			weak, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
			store.addLocal(dave, string(weak), AlgorithmBcrypt)
			store.failReplace = errors.New("write failed")

			stronger, _ := NewPasswordHasher("bcrypt", bcrypt.MinCost+1)
			authn = NewAuthenticator(store, sessions, stronger, trail, logger)

			res, err := authn.Login(ctx, "dave", "correct-horse")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Session).NotTo(gomega.BeNil())
		})
	})

	ginkgo.Describe("federated login", func() {
		var (
			verifier    *fakeVerifier
			provisioner *Provisioner
			security    internal.SecurityConfig
		)

		identity := func(sub, email string) *Identity {
			return &Identity{Provider: "https://idp.example.com", Subject: sub, Email: email}
		}

		ginkgo.BeforeEach(func() {
			verifier = &fakeVerifier{}
			security = internal.SecurityConfig{SuperAdminEmail: "root@example.com"}
			provisioner = NewProvisioner(store, security, trail, logger)
			authn = NewAuthenticator(store, sessions, hasher, trail, logger, WithFederation(verifier, provisioner))
		})

		ginkgo.It("follows an existing link to its profile", func() {
			alice := store.addProfile(&profile.Profile{Username: "alice", Role: profile.RoleManager, OrganizationID: orgID, IsActive: true})
			gomega.Expect(store.InsertCredential(ctx, FederatedCredential{
				ProfileID: alice.ID, Provider: "https://idp.example.com", Subject: "sub-alice", Email: "alice@example.com",
			})).To(gomega.Succeed())
			verifier.identity = identity("sub-alice", "alice@example.com")

			res, err := authn.Login(ctx, "Alice@Example.com", "id-token")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Profile.ID).To(gomega.Equal(alice.ID))
			gomega.Expect(res.Session.Kind).To(gomega.Equal(session.KindFederated))
		})

		ginkgo.It("provisions and links the allow-listed super admin once", func() {
			verifier.identity = identity("sub-root", "root@example.com")

			first, err := authn.Login(ctx, "root@example.com", "id-token")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(first.Profile.Role).To(gomega.Equal(profile.RoleSuperAdmin))
			gomega.Expect(first.Profile.Username).To(gomega.Equal("root"))

			second, err := authn.Login(ctx, "root@example.com", "id-token")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(second.Profile.ID).To(gomega.Equal(first.Profile.ID))
			gomega.Expect(store.createProfile).To(gomega.Equal(1))
			gomega.Expect(store.federated).To(gomega.HaveLen(1))

			gomega.Expect(trail.ofType(audit.EventUserCreated)).To(gomega.HaveLen(1))
			gomega.Expect(trail.ofType(audit.EventSessionLogin)).To(gomega.HaveLen(2))
		})

		ginkgo.It("returns NoProfile for a valid identity nobody provisioned", func() {
			verifier.identity = identity("sub-eve", "eve@example.com")

			_, err := authn.Login(ctx, "eve@example.com", "id-token")
			gomega.Expect(err).To(gomega.MatchError(ErrNoProfile))
			gomega.Expect(sessions.created).To(gomega.BeEmpty())

			logins := trail.ofType(audit.EventSessionLogin)
			gomega.Expect(logins).To(gomega.HaveLen(1))
			gomega.Expect(logins[0].FailureReason).To(gomega.Equal(audit.ReasonNoProfile))
		})

		ginkgo.It("hides provider failures behind invalid credentials", func() {
			verifier.err = ErrIdentityRejected

			_, err := authn.Login(ctx, "eve@example.com", "bad-token")
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
			gomega.Expect(trail.ofType(audit.EventSessionLogin)[0].FailureReason).To(gomega.Equal(audit.ReasonProviderError))
		})

		ginkgo.It("rejects a token issued for a different address", func() {
			verifier.identity = identity("sub-root", "root@example.com")

			_, err := authn.Login(ctx, "mallory@example.com", "id-token")
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
			gomega.Expect(store.createProfile).To(gomega.BeZero())
		})

		ginkgo.It("rejects a linked but inactive profile", func() {
			bob := store.addProfile(&profile.Profile{Username: "bob", Role: profile.RoleEmployee, OrganizationID: orgID, IsActive: false})
			_ = store.InsertCredential(ctx, FederatedCredential{ProfileID: bob.ID, Provider: "https://idp.example.com", Subject: "sub-bob", Email: "bob@example.com"})
			verifier.identity = identity("sub-bob", "bob@example.com")

			_, err := authn.Login(ctx, "bob@example.com", "id-token")
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
			gomega.Expect(trail.ofType(audit.EventSessionLogin)[0].FailureReason).To(gomega.Equal(audit.ReasonInactive))
		})

		ginkgo.It("fails closed when federation is not configured", func() {
			authn = NewAuthenticator(store, sessions, hasher, trail, logger)

			_, err := authn.Login(ctx, "root@example.com", "id-token")
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
		})
	})
})
