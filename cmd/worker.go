package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/workforce-console/internal/session"
	"github.com/frahmantamala/workforce-console/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background maintenance loops that run outside the HTTP server.`,
}

var sessionWorkerCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Sweep expired and revoked sessions",
	Long:  `Delete expired and revoked session rows every sweep interval until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSessionWorker()
	},
}

var (
	sweepInterval time.Duration
	sweepOnce     bool
)

func startSessionWorker() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	st, err := openStores(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open stores: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	sessions := session.NewManager(newSessionStore(cfg, st), cfg.Security.SessionTTL, newTrail(st, lg, nil), lg)

	if sweepOnce {
		n, err := sessions.Sweep(context.Background())
		if err != nil {
			lg.Error("session sweep failed", "error", err)
			os.Exit(1)
		}
		lg.Info("session sweep complete", "deleted", n)
		return
	}

	interval := cfg.Session.SweepInterval
	if sweepInterval > 0 {
		interval = sweepInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("session worker is running. Press Ctrl+C to stop.", "interval", interval, "store", cfg.Session.Store)
	sessions.RunSweeper(ctx, interval)
	lg.Info("session worker stopped")
}

func init() {
	sessionWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "sweep interval (overrides config)")
	sessionWorkerCmd.Flags().BoolVar(&sweepOnce, "once", false, "sweep once and exit")

	workerCmd.AddCommand(sessionWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
