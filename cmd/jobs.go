package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

var (
	workerMode bool
)

type jobFunc func(s *services, ctx context.Context) error

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fulfill stale pending orders the gateway reports as paid",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			reconcileJob,
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Cancel pending orders past the payment window and release their stock",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			expirePendingJob,
		)
	},
}

var expireInviteCodesCmd = &cobra.Command{
	Use:   "invite-codes",
	Short: "Mark unused invite codes past their expiry as expired",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_invite_codes",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpireInviteCodesInterval },
			expireInviteCodesJob,
		)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(expireCmd)
	expireCmd.AddCommand(expirePendingCmd)
	expireCmd.AddCommand(expireInviteCodesCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func reconcileJob(s *services, ctx context.Context) error {
	return s.orders.RunReconcileBatch(ctx)
}

func expirePendingJob(s *services, ctx context.Context) error {
	return s.orders.RunExpirePendingBatch(ctx)
}

func expireInviteCodesJob(s *services, ctx context.Context) error {
	return s.inviteCodes.RunExpireBatch(ctx)
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn jobFunc,
) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), svc, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(svc, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	svc *services,
	fn jobFunc,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(svc, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(svc, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
