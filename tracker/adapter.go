// Package tracker ist die Client-Seite: eine lokale Sicht auf die Papers, die nach jedem
// erfolgreichen Kommando neu vom Server geladen wird.
package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"paper-tracker/lifecycle"
	"paper-tracker/models"
	"paper-tracker/schedule"
)

const (
	loadKey  = "load"
	sweepKey = "sweep"
)

// Adapter hält die lokale Sicht und kapselt jede Zustandsänderung als Request + Refresh.
type Adapter struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	papers   []models.Paper
	loadedAt time.Time

	debouncer *schedule.Debouncer
	cron      *cron.Cron
}

// Option konfiguriert einen Adapter.
type Option func(*Adapter)

// WithClock ersetzt die Uhr für Überfällig- und Missed-Berechnungen.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithDebounce setzt das Fenster, in dem Load und Sweep zusammengefasst werden.
func WithDebounce(window time.Duration) Option {
	return func(a *Adapter) { a.debouncer = schedule.NewDebouncer(window) }
}

func NewAdapter(backend Backend, log *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		backend:   backend,
		log:       log,
		now:       time.Now,
		debouncer: schedule.NewDebouncer(30 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Papers liefert eine Kopie der lokalen Sicht.
func (a *Adapter) Papers() []models.Paper {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Paper, len(a.papers))
	copy(out, a.papers)
	return out
}

// ByStatus filtert die lokale Sicht nach Status, Reihenfolge bleibt erhalten.
func (a *Adapter) ByStatus(status models.Status) []models.Paper {
	var out []models.Paper
	for _, p := range a.Papers() {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// Overdue meldet, ob für p der Überfällig-Hinweis angezeigt wird.
func (a *Adapter) Overdue(p models.Paper) bool {
	return lifecycle.ShowOverdue(p, a.now())
}

// LoadedAt ist der Zeitpunkt des letzten erfolgreichen Refresh.
func (a *Adapter) LoadedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadedAt
}

// Refresh ersetzt die lokale Sicht vollständig durch den Serverstand. Bei Fehlern bleibt sie unverändert.
func (a *Adapter) Refresh(ctx context.Context) error {
	papers, err := a.backend.List(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.papers = papers
	a.loadedAt = a.now()
	a.mu.Unlock()
	return nil
}

// Load ist ein gebündelter Refresh für den Start: gleichzeitige Aufrufe teilen sich einen Request.
func (a *Adapter) Load(ctx context.Context) error {
	_, err := a.debouncer.Do(ctx, loadKey, a.Refresh)
	return err
}

// Add legt ein Paper an.
func (a *Adapter) Add(ctx context.Context, in NewPaper) (*models.Paper, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.PDFLink) == "" || in.Deadline == "" {
		return nil, &models.ValidationError{Message: "name, pdf_link and deadline are required"}
	}
	if in.Status == "" {
		in.Status = models.StatusCurrent
	}
	if !lifecycle.ValidInitial(in.Status) {
		return nil, &models.ValidationError{Field: "status", Message: "initial status must be current or future"}
	}
	p, err := a.backend.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return p, a.Refresh(ctx)
}

// StoreForLater verschiebt ein Paper nach future.
func (a *Adapter) StoreForLater(ctx context.Context, id string) error {
	return a.move(ctx, id, models.StatusFuture)
}

// MoveToCurrent holt ein Paper aus future in die aktuelle Review.
func (a *Adapter) MoveToCurrent(ctx context.Context, id string) error {
	return a.move(ctx, id, models.StatusCurrent)
}

// Resume nimmt ein verpasstes Paper wieder auf.
func (a *Adapter) Resume(ctx context.Context, id string) error {
	return a.move(ctx, id, models.StatusCurrent)
}

func (a *Adapter) move(ctx context.Context, id string, to models.Status) error {
	if err := a.backend.SetStatus(ctx, id, to); err != nil {
		return err
	}
	return a.Refresh(ctx)
}

// Complete schließt ein Paper ab. Eine Datei mit nicht unterstütztem Typ wird stillschweigend
// verworfen, dann ist eine Zusammenfassung Pflicht.
func (a *Adapter) Complete(ctx context.Context, id, summary string, file *lifecycle.Upload) error {
	if file != nil && !lifecycle.AcceptedContentType(file.ContentType) {
		a.log.Debug("dropping review file with unsupported type",
			zap.String("paper_id", id), zap.String("content_type", file.ContentType))
		file = nil
	}
	c, err := lifecycle.PrepareCompletion(summary, file)
	if err != nil {
		return err
	}
	trimmed := ""
	if c.Summary != nil {
		trimmed = *c.Summary
	}
	if err := a.backend.Complete(ctx, id, trimmed, c.File); err != nil {
		return err
	}
	return a.Refresh(ctx)
}

// Remove löscht ein Paper samt Review-Datei.
func (a *Adapter) Remove(ctx context.Context, id string) error {
	if err := a.backend.Delete(ctx, id); err != nil {
		return err
	}
	return a.Refresh(ctx)
}

// SweepMissed prüft die lokale Sicht und lässt den Server nur dann markieren, wenn es
// Kandidaten gibt. Ohne Kandidaten passiert nichts.
func (a *Adapter) SweepMissed(ctx context.Context) (int, error) {
	ids := lifecycle.SelectMissed(a.Papers(), a.now())
	if len(ids) == 0 {
		return 0, nil
	}
	marked, err := a.backend.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	return marked, a.Refresh(ctx)
}

// Start lädt die Sicht einmalig und registriert den periodischen Sweep.
func (a *Adapter) Start(ctx context.Context, spec string) error {
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(spec, func() { a.tick(ctx) }); err != nil {
		return err
	}
	if err := a.Load(ctx); err != nil {
		return err
	}
	a.cron.Start()
	go a.tick(ctx)
	return nil
}

// Stop beendet den Scheduler.
func (a *Adapter) Stop() {
	if a.cron == nil {
		return
	}
	<-a.cron.Stop().Done()
}

func (a *Adapter) tick(ctx context.Context) {
	var marked int
	ran, err := a.debouncer.Do(ctx, sweepKey, func(ctx context.Context) error {
		var err error
		marked, err = a.SweepMissed(ctx)
		return err
	})
	switch {
	case err != nil:
		a.log.Warn("client missed sweep failed", zap.Error(err))
	case ran && marked > 0:
		a.log.Info("client missed sweep", zap.Int("marked", marked))
	}
}
