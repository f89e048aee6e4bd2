package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run every lifecycle job on its cron schedule",
	Run:   runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

type scheduledJob struct {
	name string
	spec string
	fn   jobFunc
}

func scheduledJobs(cfg *config.Config) []scheduledJob {
	return []scheduledJob{
		{name: "reconcile", spec: cfg.Jobs.ReconcileSchedule, fn: reconcileJob},
		{name: "expire_pending", spec: cfg.Jobs.ExpirePendingSchedule, fn: expirePendingJob},
		{name: "expire_invite_codes", spec: cfg.Jobs.ExpireInviteCodesSchedule, fn: expireInviteCodesJob},
	}
}

func runSchedule(_ *cobra.Command, _ []string) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler, err := newScheduler(scheduledJobs(cfg), func(job scheduledJob) func() {
		return func() {
			runJob(job.name, func() error { return job.fn(svc, ctx) })
		}
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure scheduler")
	}

	scheduler.Start()
	logrus.WithField("jobs", len(scheduler.Entries())).Info("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Scheduler shutdown requested")

	cancel()
	<-scheduler.Stop().Done()
	logrus.Info("Scheduler stopped")
}

// newScheduler registers every job with a non-empty spec. Specs carry a
// leading seconds field.
func newScheduler(jobs []scheduledJob, run func(job scheduledJob) func()) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	for _, job := range jobs {
		if job.spec == "" {
			logrus.WithField("job", job.name).Warn("Job has no schedule, skipping")
			continue
		}
		if _, err := scheduler.AddFunc(job.spec, run(job)); err != nil {
			return nil, fmt.Errorf("job %s: invalid schedule %q: %w", job.name, job.spec, err)
		}
	}
	return scheduler, nil
}
