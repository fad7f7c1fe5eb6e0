package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"DowSentinel/internal/analyzer"
	"DowSentinel/internal/model"
	"DowSentinel/internal/notifier"
	"DowSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Collector supplies the candle series of a target.
type Collector interface {
	Collect(ctx context.Context, target model.Target) (*model.PriceSeries, error)
}

// Scheduler runs the collect → analyze → record → notify cycle for every target.
type Scheduler struct {
	Cron      *cron.Cron
	Collector Collector
	Analyzer  *analyzer.Manager
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Targets   []model.Target
	Category  string
	Ctx       context.Context

	runMu     sync.Mutex
	fetchMu   sync.Mutex
	fetchedAt map[model.Target]time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col Collector, am *analyzer.Manager, n notifier.Notifier, rec recorder.Recorder, category string, targets []model.Target) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Analyzer:  am,
		Notifier:  n,
		Recorder:  rec,
		Targets:   targets,
		Category:  category,
		Ctx:       ctx,
		fetchedAt: make(map[model.Target]time.Time, len(targets)),
	}
}

// Register adds the analysis run to the cron table.
func (s *Scheduler) Register(cronExpr string) error {
	if _, err := s.Cron.AddFunc(cronExpr, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
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
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow analyses every target once. It returns the number of failed targets.
func (s *Scheduler) RunNow() int {
	return s.RunTargets(s.Targets)
}

// RunTargets analyses the given targets in order. Runs never overlap, so a trend table
// has a single writer at a time. It returns the number of failed targets.
func (s *Scheduler) RunTargets(targets []model.Target) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	failed := 0
	for _, target := range targets {
		if s.Ctx.Err() != nil {
			return failed
		}
		if err := s.runTarget(target); err != nil {
			log.Printf("[ERROR] %s: %v", target, err)
			failed++
		}
	}
	return failed
}

func (s *Scheduler) runTarget(target model.Target) error {
	series, err := s.Collector.Collect(s.Ctx, target)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	res, err := s.Analyzer.Analyze(series)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	s.fetchMu.Lock()
	s.fetchedAt[target] = res.FetchedAt
	s.fetchMu.Unlock()

	run := &recorder.RunEvent{
		ID:         recorder.NewRunID(),
		Symbol:     target.Symbol,
		Interval:   target.Interval,
		Mode:       string(res.Mode),
		FetchedAt:  res.FetchedAt,
		Candles:    res.Candles,
		Swings:     res.Swings,
		NewRecords: len(res.Fresh),
		Regime:     res.Regime.String(),
	}
	if last, ok := res.Last(); ok && last.Classified() {
		run.Conversion, run.Target = last.Conversion, last.Target
	}
	if err := s.Recorder.RecordRun(run); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}

	for _, c := range res.Changes {
		if err := s.Recorder.RecordRegimeChange(&recorder.RegimeChangeEvent{
			RunID:      run.ID,
			Symbol:     target.Symbol,
			Interval:   target.Interval,
			OpenTime:   c.OpenTime,
			From:       c.From.String(),
			To:         c.To.String(),
			Price:      c.Price,
			Conversion: c.Conversion,
			Target:     c.Target,
		}); err != nil {
			log.Printf("[ERROR] record regime change: %v", err)
		}
	}

	// A cold run replays the whole history; only its latest transition is news.
	changes := res.Changes
	if res.Mode == analyzer.ModeCold && len(changes) > 1 {
		changes = changes[len(changes)-1:]
	}
	for _, c := range changes {
		s.trySend(notifier.FormatRegimeChange(target, c))
	}
	return nil
}

// Status returns the latest persisted record of the given targets.
func (s *Scheduler) Status(targets []model.Target) []notifier.StatusLine {
	lines := make([]notifier.StatusLine, 0, len(targets))
	for _, target := range targets {
		last, found, err := s.Analyzer.Latest(s.Category, target)
		if err != nil {
			log.Printf("[WARN] %s status: %v", target, err)
		}
		s.fetchMu.Lock()
		fetched := s.fetchedAt[target]
		s.fetchMu.Unlock()
		lines = append(lines, notifier.StatusLine{Target: target, Last: last, Found: found, FetchedAt: fetched})
	}
	return lines
}

// selectTargets returns the configured targets whose symbol is among args, or all of them when
// args is empty. Unknown symbols are returned separately.
func (s *Scheduler) selectTargets(args []string) (selected []model.Target, unknown []string) {
	if len(args) == 0 {
		return s.Targets, nil
	}
	for _, arg := range args {
		symbol := strings.ToUpper(arg)
		matched := false
		for _, t := range s.Targets {
			if t.Symbol == symbol {
				selected = append(selected, t)
				matched = true
			}
		}
		if !matched {
			unknown = append(unknown, symbol)
		}
	}
	return selected, unknown
}

// HandleCommand answers a chat command. /status and /run take optional symbols.
func (s *Scheduler) HandleCommand(cmd notifier.Command) string {
	switch cmd.Name {
	case "查看趋势", "/status":
		targets, unknown := s.selectTargets(cmd.Args)
		if len(unknown) > 0 {
			return fmt.Sprintf("❓ 未配置的标的: %s", strings.Join(unknown, ", "))
		}
		return notifier.FormatStatus(s.Status(targets))
	case "立即分析", "/run":
		targets, unknown := s.selectTargets(cmd.Args)
		if len(unknown) > 0 {
			return fmt.Sprintf("❓ 未配置的标的: %s", strings.Join(unknown, ", "))
		}
		go func() {
			if failed := s.RunTargets(targets); failed > 0 {
				s.trySend(fmt.Sprintf("❌ %d 个标的分析失败，详见日志", failed))
			}
		}()
		return fmt.Sprintf("⏳ 分析已开始 (%d 个标的)", len(targets))
	default:
		return "可用命令:\n• 查看趋势 (/status [SYMBOL...])\n• 立即分析 (/run [SYMBOL...])"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
