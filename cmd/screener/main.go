package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hogehogetakumi/edinet-value-screener/internal/classifier"
	"github.com/hogehogetakumi/edinet-value-screener/internal/config"
	"github.com/hogehogetakumi/edinet-value-screener/internal/pending"
	"github.com/hogehogetakumi/edinet-value-screener/internal/pipeline"
	"github.com/hogehogetakumi/edinet-value-screener/internal/scheduler"
	"github.com/hogehogetakumi/edinet-value-screener/internal/source"
	"github.com/hogehogetakumi/edinet-value-screener/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] edinet-value-screener starting...")

	once := flag.Bool("once", false, "run a single screening batch and exit")
	flag.Parse()

	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store
	var st store.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite store failed, using in-memory: %v", err)
			st = store.NewMemoryStore()
		} else {
			st = ss
			defer ss.Close()
		}
	} else {
		st = store.NewMemoryStore()
	}

	// Init filing source
	var src source.Source
	if cfg.Source.InboxDir != "" {
		src = source.NewDirSource(cfg.Source.InboxDir)
	} else {
		src = source.NewHTTPSource(cfg.Source.BaseURL, cfg.Source.APIKey, cfg.Source.DaysBack)
	}
	log.Printf("[INFO] filing source: %s", src.Name())

	// Init pending tracker
	tracker, err := pending.NewTracker(cfg.Run.PendingStateFile)
	if err != nil {
		log.Fatalf("[FATAL] init pending tracker: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	th := classifier.NewThresholds(cfg.Screening.RedMargin, cfg.Screening.YellowMargin, cfg.Screening.AccrualFractionK)
	p := pipeline.New(src, st, tracker, th, cfg.Run.ConcurrencyLimit)
	sched := scheduler.NewScheduler(ctx, p, st, cfg.Export.CSVPath)

	if *once {
		log.Println("[INFO] run-once mode")
		sched.RunNow()
		return
	}

	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing screening batch now")
		go sched.RunNow()
	}

	log.Println("[INFO] edinet-value-screener is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] edinet-value-screener stopped")
}
