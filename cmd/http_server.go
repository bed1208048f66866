package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/events"
	"github.com/frahmantamala/workforce-console/internal/metrics"
	"github.com/frahmantamala/workforce-console/internal/organization"
	orgpg "github.com/frahmantamala/workforce-console/internal/organization/postgres"
	"github.com/frahmantamala/workforce-console/internal/session"
	"github.com/frahmantamala/workforce-console/internal/transport"
	"github.com/frahmantamala/workforce-console/internal/transport/middleware"
	"github.com/frahmantamala/workforce-console/internal/transport/rest"
	"github.com/frahmantamala/workforce-console/internal/transport/swagger"
	"github.com/frahmantamala/workforce-console/internal/user"
	userpg "github.com/frahmantamala/workforce-console/internal/user/postgres"
	"github.com/frahmantamala/workforce-console/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	Stores   *stores
	Router   *chi.Mux
	Bus      *events.EventBus
	Sessions *session.Manager
	Limiter  *middleware.RateLimiter
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	background, stopBackground := context.WithCancel(context.Background())
	go deps.Sessions.RunSweeper(background, deps.Config.Session.SweepInterval)
	go deps.Limiter.RunCleanup(background)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "session_store", deps.Config.Session.Store)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		stopBackground()
		if err := deps.Bus.Drain(ctx); err != nil {
			deps.Logger.Warn("event bus drain incomplete", "error", err)
		}
		deps.Stores.Close()
	case err := <-serverErrChan:
		stopBackground()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Observability.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	bus := events.NewEventBus(lg)
	events.SubscribeNotificationLog(bus, lg)

	trail := newTrail(st, lg, m)
	sessions := session.NewManager(newSessionStore(cfg, st), cfg.Security.SessionTTL, trail, lg, session.WithMetrics(m))

	hasher, err := auth.NewPasswordHasher(cfg.Security.HashAlgorithm, cfg.Security.HashCostFactor)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to build password hasher: %w", err)
	}

	credentials, provisioner := newProvisioner(cfg, st, trail, lg)
	if provisioner.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := provisioner.EnsureSuperAdmin(ctx)
		cancel()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to provision super admin: %w", err)
		}
	}

	authOpts := []auth.Option{auth.WithPublisher(bus), auth.WithMetrics(m)}
	if cfg.Federation.Enabled() {
		verifier, err := auth.NewJWTVerifier(cfg.Federation)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to build federated verifier: %w", err)
		}
		authOpts = append(authOpts, auth.WithFederation(verifier, provisioner))
	}
	authenticator := auth.NewAuthenticator(credentials, sessions, hasher, trail, lg, authOpts...)

	guard := authz.NewGuard(lg, m, bus)

	userService := user.NewService(userpg.NewUserRepository(st.Gorm), credentials, hasher, guard, trail, lg)
	orgService := organization.NewService(orgpg.NewOrganizationRepository(st.Gorm), guard, trail, lg)

	docs, err := swagger.Load(context.Background())
	if err != nil {
		st.Close()
		return nil, err
	}

	components := map[string]rest.Pinger{"postgres": st.DB}
	if st.Redis != nil {
		components["redis"] = rest.PingFunc(func(ctx context.Context) error { return st.Redis.Ping(ctx).Err() })
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute)
	proxies, err := middleware.ParseProxyTrust(cfg.Server.TrustedProxies)
	if err != nil {
		st.Close()
		return nil, err
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:          auth.NewHandler(authenticator, sessions, credentials, lg),
		Authz:         authz.NewHandler(guard),
		Users:         user.NewHandler(userService, lg),
		Organizations: organization.NewHandler(orgService, lg),
		Health:        rest.NewHealthHandler(transport.NewBaseHandler(lg), components),
		Guard:         guard,
		LoginLimiter:  limiter,
		Metrics:       m,
		MetricsPath:   cfg.Observability.Metrics.Path,
		Docs:          docs,
	}, rest.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: proxies,
	}, lg)

	return &Dependencies{
		Config:   cfg,
		Stores:   st,
		Router:   router,
		Bus:      bus,
		Sessions: sessions,
		Limiter:  limiter,
		Logger:   lg,
	}, nil
}
