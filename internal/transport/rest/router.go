package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/metrics"
	"github.com/frahmantamala/workforce-console/internal/organization"
	"github.com/frahmantamala/workforce-console/internal/transport"
	"github.com/frahmantamala/workforce-console/internal/transport/middleware"
	"github.com/frahmantamala/workforce-console/internal/transport/swagger"
	"github.com/frahmantamala/workforce-console/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers is everything the router mounts. Nil handlers leave their routes
// unregistered.
type Handlers struct {
	Auth          *auth.Handler
	Authz         *authz.Handler
	Users         *user.Handler
	Organizations *organization.Handler
	Health        *HealthHandler
	Guard         *authz.Guard
	LoginLimiter  *middleware.RateLimiter
	Metrics       *metrics.Metrics
	MetricsPath   string
	Docs          *swagger.Docs
}

type RouterOptions struct {
	AllowedOrigins string
	// TrustedProxies decides whose X-Forwarded-For is believed. Nil trusts nobody.
	TrustedProxies *middleware.ProxyTrust
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts RouterOptions, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.ClientMetadata(opts.TrustedProxies))
	router.Use(h.Metrics.Instrument)

	if h.Metrics != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, h.Metrics.Handler())
	}

	if h.Docs != nil {
		router.Get("/openapi.yml", h.Docs.ServeSpec)
		router.Handle("/swagger/*", h.Docs.UI())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			login := http.HandlerFunc(h.Auth.Login)
			if h.LoginLimiter != nil {
				ar.With(h.LoginLimiter.Middleware(base, opts.TrustedProxies)).Post("/login", login)
			} else {
				ar.Post("/login", login)
			}
			ar.Post("/logout", h.Auth.Logout)
			ar.Post("/refresh", h.Auth.Refresh)
			ar.With(h.Auth.AuthMiddleware).Get("/me", h.Auth.Me)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Authz != nil {
				pr.Get("/authz/grants", h.Authz.Grants)
				pr.Post("/authz/decisions", h.Authz.Decide)
			}

			if h.Users != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Post("/", h.Users.CreateUser)
					ur.Get("/", h.Users.ListUsers)
					ur.Get("/{id}", h.Users.GetUser)
					ur.Delete("/{id}", h.Users.DeleteUser)
					ur.Patch("/{id}/active", h.Users.SetActive)
					ur.Put("/{id}/password", h.Users.ChangePassword)
				})
			}

			if h.Organizations != nil {
				pr.Route("/organizations", func(or chi.Router) {
					or.Post("/", h.Organizations.CreateOrganization)
					or.Get("/", h.Organizations.ListOrganizations)
					or.Delete("/{id}", h.Organizations.DeleteOrganization)

					or.Route("/{id}/departments", func(dr chi.Router) {
						if h.Guard != nil {
							dr.Use(h.Guard.Require(authz.ActionViewDepartments, organizationOfCaller))
						}
						dr.Post("/", h.Organizations.CreateDepartment)
						dr.Get("/", h.Organizations.ListDepartments)
						dr.Delete("/{deptID}", h.Organizations.DeleteDepartment)
					})
				})
			}
		})
	})
}

// organizationOfCaller targets the URL organization at the caller's own
// department, so anyone outside that organization is turned away before the
// department handlers run.
func organizationOfCaller(r *http.Request, caller *profile.Profile) (authz.ScopeTarget, error) {
	target, err := authz.OrganizationParam("id")(r, caller)
	if err != nil {
		return target, err
	}
	target.DepartmentID = caller.DeptID()
	return target, nil
}
