// Package scheduler triggers batch runs on a cron schedule. Each trigger is
// one bounded pass; nothing long-lived runs between triggers.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/hogehogetakumi/edinet-value-screener/internal/pipeline"
	"github.com/hogehogetakumi/edinet-value-screener/internal/report"
	"github.com/hogehogetakumi/edinet-value-screener/internal/store"
)

// Scheduler manages the daily screening task.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Store    store.Store
	CSVPath  string
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, st store.Store, csvPath string) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: p,
		Store:    st,
		CSVPath:  csvPath,
		Ctx:      ctx,
	}
}

// Register registers the daily screening task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the screening task immediately (manual trigger / run-once mode).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	log.Println("[INFO] running screening batch")
	summary, err := s.Pipeline.Run(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] screening batch: %v", err)
		if summary == nil {
			return
		}
	}
	log.Printf("[INFO] %s", report.FormatRunSummary(summary))
	if s.Pipeline.Tracker != nil {
		log.Printf("[INFO] %s", report.FormatPendingEntries(s.Pipeline.Tracker.Entries()))
	}

	if s.CSVPath != "" {
		if err := report.WriteLatestCSV(s.Ctx, s.Store, s.CSVPath); err != nil {
			log.Printf("[ERROR] export csv: %v", err)
		} else {
			log.Printf("[INFO] exported latest signals to %s", s.CSVPath)
		}
	}
}
