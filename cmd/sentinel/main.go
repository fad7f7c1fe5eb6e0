package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"DowSentinel/internal/analyzer"
	"DowSentinel/internal/collector"
	"DowSentinel/internal/config"
	"DowSentinel/internal/notifier"
	"DowSentinel/internal/recorder"
	"DowSentinel/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] DowSentinel starting...")

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

	// Init collector
	fetcher := collector.NewBybitFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.DataSource.RateLimit, cfg.DataSource.MaxRetries)
	log.Printf("[INFO] data source: %s (%s)", fetcher.Name(), cfg.DataSource.Category)
	cache := &collector.Cache{
		Dir:       cfg.Analysis.DataDir,
		Category:  cfg.DataSource.Category,
		Retention: cfg.Analysis.Retention,
	}
	col := collector.NewCollector(fetcher, cache, cfg.DataSource.Limit)

	// Init analyzer
	am := analyzer.NewManager(cfg.Analysis.OutputDir, cfg.Analysis.Period, cfg.Analysis.Retention, cfg.Analysis.FullRecompute)

	// Init notifier
	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		log.Println("[WARN] telegram not configured, notifications disabled")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		log.Println("[INFO] database.sqlite_path not set, run history disabled")
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, col, am, n, rec, cfg.DataSource.Category, cfg.Targets)

	if os.Getenv("RUN_ONCE") == "true" {
		if failed := sched.RunNow(); failed > 0 {
			log.Printf("[ERROR] %d of %d targets failed", failed, len(cfg.Targets))
			rec.Close()
			os.Exit(1)
		}
		return
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, analysing now")
		go sched.RunNow()
	}

	log.Printf("[INFO] DowSentinel is running (%d targets, cron %q). Press Ctrl+C to stop.", len(cfg.Targets), cfg.Schedule.Cron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] DowSentinel stopped")
}
