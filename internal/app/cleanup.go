/**
 * @description
 * Cron scheduler for maintenance jobs. The only job today is the
 * verification-code retention sweep: codes are correctness-irrelevant once
 * consumed or expired, and rows older than the retention window are purged
 * nightly.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sunupay/ledger-service/internal/store"
)

const codeRetention = 7 * 24 * time.Hour

// Scheduler manages the ledger's cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	repo     store.Repository
	schedule string
}

// NewScheduler creates a scheduler running the cleanup on the given cron
// expression.
func NewScheduler(repo store.Repository, schedule string) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{cron: c, repo: repo, schedule: schedule}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.purgeExpiredCodes); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule code cleanup job\" error=%v", err)
	} else {
		log.Printf("level=info component=scheduler msg=\"scheduled code cleanup job\" schedule=%q", s.schedule)
	}
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeExpiredCodes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-codeRetention)
	deleted, err := s.repo.DeleteVerificationCodesBefore(ctx, cutoff)
	if err != nil {
		log.Printf("level=error component=scheduler msg=\"code cleanup failed\" error=%v", err)
		return
	}
	log.Printf("level=info component=scheduler msg=\"code cleanup completed\" deleted=%d cutoff=%s", deleted, cutoff.Format(time.RFC3339))
}
