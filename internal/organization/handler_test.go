package organization_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/organization"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubOrgService struct {
	err         error
	deletedOrg  int64
	deletedDept int64
	listedOrg   int64
}

func (s *stubOrgService) CreateOrganization(_ context.Context, _ *profile.Profile, req organization.CreateOrganizationRequest) (*organization.Organization, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &organization.Organization{ID: 3, Name: req.Name}, nil
}

func (s *stubOrgService) DeleteOrganization(_ context.Context, _ *profile.Profile, id int64) error {
	s.deletedOrg = id
	return s.err
}

func (s *stubOrgService) ListOrganizations(context.Context, *profile.Profile) ([]*organization.Organization, error) {
	return []*organization.Organization{{ID: 1, Name: "Acme"}}, s.err
}

func (s *stubOrgService) CreateDepartment(_ context.Context, _ *profile.Profile, orgID int64, req organization.CreateDepartmentRequest) (*organization.Department, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &organization.Department{ID: 7, OrganizationID: orgID, Name: req.Name}, nil
}

func (s *stubOrgService) ListDepartments(_ context.Context, _ *profile.Profile, orgID int64) ([]*organization.Department, error) {
	s.listedOrg = orgID
	return []*organization.Department{}, s.err
}

func (s *stubOrgService) DeleteDepartment(_ context.Context, _ *profile.Profile, _, deptID int64) error {
	s.deletedDept = deptID
	return s.err
}

var _ = Describe("Handler", func() {
	var (
		svc    *stubOrgService
		router chi.Router
		caller *profile.Profile
	)

	BeforeEach(func() {
		svc = &stubOrgService{}
		caller = &profile.Profile{ID: 1, Role: profile.RoleSuperAdmin, IsActive: true}
		h := organization.NewHandler(svc, nil)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if caller != nil {
					r = r.WithContext(internal.ContextWithProfile(r.Context(), caller))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/organizations", h.ListOrganizations)
		router.Post("/organizations", h.CreateOrganization)
		router.Delete("/organizations/{id}", h.DeleteOrganization)
		router.Get("/organizations/{id}/departments", h.ListDepartments)
		router.Post("/organizations/{id}/departments", h.CreateDepartment)
		router.Delete("/organizations/{id}/departments/{deptID}", h.DeleteDepartment)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("creates an organization", func() {
		rec := do(http.MethodPost, "/organizations", `{"name":"Globex"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var org organization.Organization
		Expect(json.Unmarshal(rec.Body.Bytes(), &org)).To(Succeed())
		Expect(org.Name).To(Equal("Globex"))
	})

	It("rejects unauthenticated requests", func() {
		caller = nil
		rec := do(http.MethodGet, "/organizations", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps a duplicate name to 409", func() {
		svc.err = organization.ErrNameTaken
		rec := do(http.MethodPost, "/organizations", `{"name":"Acme"}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("refuses to delete an organization with members", func() {
		svc.err = organization.ErrNotEmpty
		rec := do(http.MethodDelete, "/organizations/4", "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(svc.deletedOrg).To(Equal(int64(4)))
	})

	It("maps denials to 403", func() {
		svc.err = authz.ErrNotPermitted
		rec := do(http.MethodDelete, "/organizations/4", "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("NOT_PERMITTED"))
	})

	It("creates and deletes departments under the organization in the path", func() {
		rec := do(http.MethodPost, "/organizations/2/departments", `{"name":"Ops"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var dept organization.Department
		Expect(json.Unmarshal(rec.Body.Bytes(), &dept)).To(Succeed())
		Expect(dept.OrganizationID).To(Equal(int64(2)))

		rec = do(http.MethodDelete, "/organizations/2/departments/7", "")
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(svc.deletedDept).To(Equal(int64(7)))
	})

	It("rejects a malformed department id", func() {
		rec := do(http.MethodDelete, "/organizations/2/departments/x", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(svc.deletedDept).To(BeZero())
	})

	It("lists departments", func() {
		rec := do(http.MethodGet, "/organizations/9/departments", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.listedOrg).To(Equal(int64(9)))
	})
})
