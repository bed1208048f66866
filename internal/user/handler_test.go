package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubService struct {
	created   *profile.Profile
	err       error
	deletedID int64
}

func (s *stubService) Create(_ context.Context, _ *profile.Profile, req user.CreateUserRequest) (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &profile.Profile{ID: 9, Username: req.Username, Role: profile.Role(req.Role), IsActive: true}
	return s.created, nil
}

func (s *stubService) Get(context.Context, *profile.Profile, int64) (*profile.Profile, error) {
	return nil, s.err
}

func (s *stubService) List(context.Context, *profile.Profile, user.ListFilter) ([]*profile.Profile, error) {
	return []*profile.Profile{{ID: 1, Username: "eli"}}, s.err
}

func (s *stubService) SetActive(_ context.Context, _ *profile.Profile, id int64, active bool) (*profile.Profile, error) {
	return &profile.Profile{ID: id, IsActive: active}, s.err
}

func (s *stubService) Delete(_ context.Context, _ *profile.Profile, id int64) error {
	s.deletedID = id
	return s.err
}

func (s *stubService) ChangePassword(context.Context, *profile.Profile, int64, user.ChangePasswordRequest) error {
	return s.err
}

var _ = Describe("Handler", func() {
	var (
		svc    *stubService
		router chi.Router
		caller *profile.Profile
	)

	BeforeEach(func() {
		svc = &stubService{}
		caller = &profile.Profile{ID: 1, Role: profile.RoleOrgAdmin, OrganizationID: profile.Int64Ptr(1), IsActive: true}
		h := user.NewHandler(svc, nil)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithProfile(r.Context(), caller)))
			})
		})
		router.Get("/users", h.ListUsers)
		router.Post("/users", h.CreateUser)
		router.Delete("/users/{id}", h.DeleteUser)
		router.Patch("/users/{id}/active", h.SetActive)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("creates a user", func() {
		rec := do(http.MethodPost, "/users", `{"username":"newbie","password":"correct-horse","role":"employee"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var resp user.UserResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Username).To(Equal("newbie"))
	})

	It("maps authorization denials to 403", func() {
		svc.err = authz.ErrNotPermitted
		rec := do(http.MethodDelete, "/users/5", "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("NOT_PERMITTED"))
	})

	It("maps inactive callers to the same 403", func() {
		svc.err = authz.ErrInactive
		rec := do(http.MethodDelete, "/users/5", "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("NOT_PERMITTED"))
	})

	It("maps a missing user to 404", func() {
		svc.err = user.ErrNotFound
		rec := do(http.MethodDelete, "/users/5", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects a malformed id", func() {
		rec := do(http.MethodDelete, "/users/abc", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(svc.deletedID).To(BeZero())
	})

	It("requires the active flag", func() {
		rec := do(http.MethodPatch, "/users/5/active", `{}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPatch, "/users/5/active", `{"active":false}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("lists users", func() {
		rec := do(http.MethodGet, "/users?limit=5", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp user.ListResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Users).To(HaveLen(1))
		Expect(resp.Limit).To(Equal(5))
	})
})
