package authz_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/events"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/metrics"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.published = append(p.published, e)
	return nil
}

var _ = ginkgo.Describe("Guard", func() {
	var (
		guard     *authz.Guard
		m         *metrics.Metrics
		publisher *recordingPublisher
		router    chi.Router
		caller    *profile.Profile
	)

	ginkgo.BeforeEach(func() {
		m = metrics.New(prometheus.NewRegistry())
		publisher = &recordingPublisher{}
		guard = authz.NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil)), m, publisher)
		caller = newProfile(3, profile.RoleManager, orgO1, deptD1)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if caller != nil {
					r = r.WithContext(internal.ContextWithProfile(r.Context(), caller))
				}
				next.ServeHTTP(w, r)
			})
		})
		ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
		router.With(guard.Require(authz.ActionViewOrganization, authz.OrganizationParam("id"))).Get("/orgs/{id}", ok)
		router.With(guard.Require(authz.ActionViewProfile, authz.Self)).Get("/me", ok)
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	ginkgo.It("passes allowed requests through", func() {
		rec := serve(http.MethodGet, "/orgs/1")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(testutil.ToFloat64(m.AuthzDecisions.WithLabelValues("view_organization", "allow"))).To(gomega.Equal(1.0))
	})

	ginkgo.It("rejects other tenants with NOT_PERMITTED and notifies", func() {
		rec := serve(http.MethodGet, "/orgs/2")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeNotPermitted)))
		gomega.Expect(publisher.published).To(gomega.HaveLen(1))
		gomega.Expect(publisher.published[0].EventType()).To(gomega.Equal(events.EventTypeAccessDenied))
	})

	ginkgo.It("answers inactive profiles the same way as any denial", func() {
		caller.IsActive = false

		rec := serve(http.MethodGet, "/me")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeNotPermitted)))
	})

	ginkgo.It("rejects requests without a principal", func() {
		caller = nil

		rec := serve(http.MethodGet, "/me")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("rejects malformed organization ids", func() {
		rec := serve(http.MethodGet, "/orgs/abc")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.Describe("Handler", func() {
		var h *authz.Handler

		ginkgo.BeforeEach(func() {
			h = authz.NewHandler(guard)
			router.Post("/decisions", h.Decide)
			router.Get("/grants", h.Grants)
		})

		ginkgo.It("evaluates a decision for the caller", func() {
			body := `{"action":"create_user","target":{"organization_id":1,"department_id":12}}`
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/decisions", strings.NewReader(body)))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"allowed":false`))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"reason":"not_permitted"`))
		})

		ginkgo.It("rejects unknown actions", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/decisions", strings.NewReader(`{"action":"fly"}`)))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("lists the caller's grants with scope names", func() {
			rec := serve(http.MethodGet, "/grants")

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`{"action":"create_user","scope":"own_department"}`))
		})
	})
})
