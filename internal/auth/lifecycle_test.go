package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/session"
	sessionRedis "github.com/frahmantamala/workforce-console/internal/session/redis"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// These run the authenticator against the real session manager on a
// miniredis-backed store.
var _ = ginkgo.Describe("Login lifecycle", func() {
	var (
		store    *memoryStore
		manager  *session.Manager
		hasher   *PasswordHasher
		authn    *Authenticator
		trail    *recordingTrail
		logger   *slog.Logger
		ctx      context.Context
		orgID    = profile.Int64Ptr(3)
		deptID   = profile.Int64Ptr(30)
		password = "correct-horse"
	)

	addUser := func(username, pw string, role profile.Role) *profile.Profile {
		p := store.addProfile(&profile.Profile{
			Username:       username,
			DisplayName:    username,
			Role:           role,
			OrganizationID: orgID,
			DepartmentID:   deptID,
			IsActive:       true,
		})
		hash, alg, err := hasher.Hash(pw)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		store.addLocal(p, hash, alg)
		return p
	}

	setActive := func(id int64, active bool) {
		store.mu.Lock()
		defer store.mu.Unlock()
		store.profiles[id].IsActive = active
	}

	ginkgo.BeforeEach(func() {
		mr, err := miniredis.Run()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		ginkgo.DeferCleanup(mr.Close)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		ginkgo.DeferCleanup(client.Close)

		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		trail = &recordingTrail{}
		manager = session.NewManager(sessionRedis.NewSessionStore(client), time.Hour, trail, logger)
		store = newMemoryStore()
		hasher, err = NewPasswordHasher("bcrypt", bcrypt.MinCost)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		authn = NewAuthenticator(store, manager, hasher, trail, logger)
		ctx = context.Background()
	})

	ginkgo.It("cannot tell an unknown username from a wrong password", func() {
		const accounts = 12
		for i := 0; i < accounts; i++ {
			addUser(fmt.Sprintf("member%02d", i), fmt.Sprintf("secret-%02d-pass", i), profile.RoleEmployee)
		}

		for i := 0; i < accounts; i++ {
			existing := fmt.Sprintf("member%02d", i)
			missing := fmt.Sprintf("absent%02d", i)
			realSecret := fmt.Sprintf("secret-%02d-pass", i)

			attempts := map[string]error{}
			_, attempts["wrong password"] = authn.Login(ctx, existing, "not-"+realSecret)
			_, attempts["password suffix"] = authn.Login(ctx, existing, realSecret+"-x")
			_, attempts["unknown user"] = authn.Login(ctx, missing, realSecret)
			_, attempts["unknown user, wrong password"] = authn.Login(ctx, missing, "not-"+realSecret)

			for name, err := range attempts {
				gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials), "%s/%s", existing, name)
				gomega.Expect(loginError(err)).To(gomega.Equal(loginError(attempts["unknown user"])), "%s/%s", existing, name)
			}
		}

		for _, e := range trail.ofType(audit.EventSessionLogin) {
			gomega.Expect(e.Success).To(gomega.BeFalse())
		}
	})

	ginkgo.It("rejects a secret that only shares its first 72 bytes with the password", func() {
		long := strings.Repeat("k", 72)
		addUser("longpass", long, profile.RoleEmployee)

		_, err := authn.Login(ctx, "longpass", long+"WRONG-SUFFIX")
		gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))

		_, err = authn.Login(ctx, "longpass", long)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	ginkgo.It("gives concurrent logins of one user distinct sessions", func() {
		dave := addUser("dave", password, profile.RoleEmployee)

		const parallel = 2
		var wg sync.WaitGroup
		results := make([]*LoginResult, parallel)
		errs := make([]error, parallel)
		for i := 0; i < parallel; i++ {
			wg.Add(1)
			go func(i int) {
				defer ginkgo.GinkgoRecover()
				defer wg.Done()
				results[i], errs[i] = authn.Login(ctx, "dave", password)
			}(i)
		}
		wg.Wait()

		for i := 0; i < parallel; i++ {
			gomega.Expect(errs[i]).NotTo(gomega.HaveOccurred())
			gomega.Expect(results[i].Profile.ID).To(gomega.Equal(dave.ID))
		}
		gomega.Expect(results[0].Session.ID).NotTo(gomega.Equal(results[1].Session.ID))
		gomega.Expect(results[0].Session.Token).NotTo(gomega.Equal(results[1].Session.Token))

		for _, res := range results {
			s, err := manager.Validate(ctx, res.Session.Token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(s.ProfileID).To(gomega.Equal(dave.ID))
		}
	})

	ginkgo.It("keeps sessions of a deactivated profile valid but denies every action", func() {
		pat := addUser("pat", password, profile.RoleManager)

		first, err := authn.Login(ctx, "pat", password)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		second, err := authn.Login(ctx, "pat", password)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		guard := authz.NewGuard(logger, nil, nil)
		h := NewHandler(authn, manager, store, logger)
		router := chi.NewRouter()
		router.With(h.AuthMiddleware, guard.Require(authz.ActionViewUsers, authz.CallerTenant)).
			Get("/users", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

		call := func(token string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		gomega.Expect(call(first.Session.Token).Code).To(gomega.Equal(http.StatusOK))

		setActive(pat.ID, false)

		for _, res := range []*LoginResult{first, second} {
			s, err := manager.Validate(ctx, res.Session.Token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(s.ID).To(gomega.Equal(res.Session.ID))

			current, err := store.FindProfileByID(ctx, pat.ID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			decision := authz.Authorize(current, authz.ActionViewUsers, authz.ScopeTarget{
				OrganizationID: current.OrgID(),
				DepartmentID:   current.DeptID(),
			})
			gomega.Expect(decision.Err()).To(gomega.MatchError(authz.ErrInactive))

			rec := call(res.Session.Token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("NOT_PERMITTED"))
		}
	})
})
