package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"paper-tracker/metrics"
	"paper-tracker/schedule"
)

const sweepKey = "missed-sweep"

// MissedSweeper ist der Teil des PaperService, den der Sweeper braucht.
type MissedSweeper interface {
	SweepMissed(ctx context.Context) (int, error)
}

// Sweeper startet den Missed-Sweep periodisch über cron. Auslöser innerhalb des Debounce-Fensters
// werden zu einem Lauf zusammengefasst.
type Sweeper struct {
	Target   MissedSweeper
	Logger   *zap.Logger
	Schedule string
	Timeout  time.Duration

	debouncer *schedule.Debouncer
	cron      *cron.Cron
}

// NewSweeper erstellt einen Sweeper, gestartet wird er mit Start.
func NewSweeper(target MissedSweeper, logger *zap.Logger, spec string, debounce time.Duration) *Sweeper {
	return &Sweeper{
		Target:    target,
		Logger:    logger,
		Schedule:  spec,
		Timeout:   2 * time.Minute,
		debouncer: schedule.NewDebouncer(debounce),
	}
}

// Start registriert den Cron-Job und führt sofort einen ersten Lauf aus.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Schedule, func() {
		s.RunLogged(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	go s.RunLogged(ctx)
	return nil
}

// Stop beendet den Cron-Scheduler und wartet auf laufende Jobs.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Run führt einen Sweep aus, sofern im Fenster noch keiner lief. ran=false heißt übersprungen.
func (s *Sweeper) Run(ctx context.Context) (marked int, ran bool, err error) {
	val, ran, err := s.debouncer.DoValue(ctx, sweepKey, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.Timeout)
		defer cancel()
		return s.Target.SweepMissed(ctx)
	})
	marked, _ = val.(int)
	return marked, ran, err
}

// RunLogged ist Run für Cron: Fehler werden nur geloggt.
func (s *Sweeper) RunLogged(ctx context.Context) {
	marked, ran, err := s.Run(ctx)
	switch {
	case err != nil:
		metrics.SweepRuns.WithLabelValues("error").Inc()
		s.Logger.Error("Missed sweep failed", zap.Error(err))
	case !ran:
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		s.Logger.Debug("Missed sweep skipped, ran recently")
	default:
		metrics.SweepRuns.WithLabelValues("ok").Inc()
		if marked > 0 {
			s.Logger.Info("Missed sweep completed", zap.Int("marked", marked))
		}
	}
}
