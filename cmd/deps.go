package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/audit"
	auditpg "github.com/frahmantamala/workforce-console/internal/audit/postgres"
	"github.com/frahmantamala/workforce-console/internal/auth"
	authpg "github.com/frahmantamala/workforce-console/internal/auth/postgres"
	"github.com/frahmantamala/workforce-console/internal/metrics"
	"github.com/frahmantamala/workforce-console/internal/session"
	sessionpg "github.com/frahmantamala/workforce-console/internal/session/postgres"
	sessionredis "github.com/frahmantamala/workforce-console/internal/session/redis"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stores holds the connections every subcommand shares. gorm rides on the
// sqlx pool so there is one set of postgres connections per process.
type stores struct {
	DB    *sqlx.DB
	Gorm  *gorm.DB
	Redis *goredis.Client
}

func (s *stores) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}
}

func openStores(cfg *internal.Config) (*stores, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	s := &stores{DB: db, Gorm: gdb}

	if cfg.Session.Store == "redis" {
		s.Redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.Redis.Ping(context.Background()).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}

	return s, nil
}

// initDB opens the pgx backed pool.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func newSessionStore(cfg *internal.Config, s *stores) session.Store {
	if cfg.Session.Store == "redis" {
		return sessionredis.NewSessionStore(s.Redis)
	}
	return sessionpg.NewSessionRepository(s.Gorm)
}

func newTrail(s *stores, lg *slog.Logger, m *metrics.Metrics) *audit.Trail {
	return audit.NewTrail(auditpg.NewStore(s.DB), lg, m)
}

func newProvisioner(cfg *internal.Config, s *stores, trail audit.Recorder, lg *slog.Logger) (*authpg.Repository, *auth.Provisioner) {
	repo := authpg.NewRepository(s.Gorm)
	return repo, auth.NewProvisioner(repo, cfg.Security, trail, lg)
}
