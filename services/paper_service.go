package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"paper-tracker/lifecycle"
	"paper-tracker/metrics"
	"paper-tracker/models"
	"paper-tracker/repositories"
	"paper-tracker/storage"
)

// PaperService führt die Befehle auf Papers aus: Lifecycle prüfen, Datensatz und Datei speichern.
type PaperService struct {
	Repo       repositories.PaperRepository
	Blobs      storage.BlobStore
	Logger     *zap.Logger
	PresignTTL time.Duration
	Now        func() time.Time
}

// NewPaperService erstellt eine neue Instanz des PaperService.
func NewPaperService(repo repositories.PaperRepository, blobs storage.BlobStore, logger *zap.Logger, presignTTL time.Duration) *PaperService {
	return &PaperService{
		Repo:       repo,
		Blobs:      blobs,
		Logger:     logger,
		PresignTTL: presignTTL,
		Now:        time.Now,
	}
}

// CreatePaperInput sind die Pflichtfelder beim Anlegen.
type CreatePaperInput struct {
	Name     string `json:"name"`
	PDFLink  string `json:"pdf_link"`
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
}

// UpdateInput ist ein PATCH: alle Felder optional.
type UpdateInput struct {
	Status  *models.Status
	Summary *string
	File    *lifecycle.Upload
}

// PaperView ist ein Paper mit dem berechneten Überfällig-Flag für die Anzeige.
type PaperView struct {
	models.Paper
	Overdue bool `json:"overdue"`
}

func (s *PaperService) View(p models.Paper) PaperView {
	return PaperView{Paper: p, Overdue: lifecycle.ShowOverdue(p, s.Now())}
}

func (s *PaperService) List(ctx context.Context) ([]models.Paper, error) {
	return s.Repo.List(ctx)
}

func (s *PaperService) Get(ctx context.Context, id string) (*models.Paper, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *PaperService) Create(ctx context.Context, in CreatePaperInput) (*models.Paper, error) {
	name := strings.TrimSpace(in.Name)
	link := strings.TrimSpace(in.PDFLink)
	if name == "" || link == "" || in.Deadline == "" || in.Status == "" {
		return nil, &models.ValidationError{Message: "missing required fields"}
	}
	deadline, err := models.ParseDate(in.Deadline)
	if err != nil {
		return nil, &models.ValidationError{Field: "deadline", Message: "expected YYYY-MM-DD"}
	}
	status := models.Status(in.Status)
	if !lifecycle.ValidInitial(status) {
		return nil, &models.ValidationError{Field: "status", Message: "must be current or future"}
	}

	paper := &models.Paper{
		ID:        uuid.NewString(),
		Name:      name,
		PDFLink:   link,
		Deadline:  deadline,
		Status:    status,
		DateAdded: models.NewDate(s.Now()),
	}
	if err := s.Repo.Create(ctx, paper); err != nil {
		s.Logger.Error("Failed to create paper", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	metrics.PapersCreated.Inc()
	s.Logger.Info("Paper created", zap.String("id", paper.ID), zap.String("status", string(status)))
	return paper, nil
}

// MoveToFuture: "store for later" aus current oder missed.
func (s *PaperService) MoveToFuture(ctx context.Context, id string) (*models.Paper, error) {
	return s.command(ctx, id, models.StatusFuture, lifecycle.TriggerStoreForLater)
}

// MoveToCurrent: "move to current review" aus future.
func (s *PaperService) MoveToCurrent(ctx context.Context, id string) (*models.Paper, error) {
	return s.command(ctx, id, models.StatusCurrent, lifecycle.TriggerMoveToCurrent)
}

// Resume holt ein verpasstes Paper zurück nach current.
func (s *PaperService) Resume(ctx context.Context, id string) (*models.Paper, error) {
	return s.command(ctx, id, models.StatusCurrent, lifecycle.TriggerResume)
}

// SetStatus führt einen beliebigen zulässigen Benutzerwechsel aus.
func (s *PaperService) SetStatus(ctx context.Context, id string, to models.Status) (*models.Paper, error) {
	return s.command(ctx, id, to, "")
}

func (s *PaperService) command(ctx context.Context, id string, to models.Status, want lifecycle.Trigger) (*models.Paper, error) {
	paper, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	trigger, err := lifecycle.Transition(paper.Status, to)
	if err == nil && want != "" && trigger != want {
		err = &models.TransitionError{From: paper.Status, To: to}
	}
	if err != nil {
		return nil, err
	}

	patch := models.PaperPatch{Status: &to}
	if err := s.Repo.Update(ctx, id, patch); err != nil {
		s.Logger.Error("Failed to update paper status", zap.String("id", id), zap.String("to", string(to)), zap.Error(err))
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(paper.Status), string(to)).Inc()
	s.Logger.Info("Paper status changed",
		zap.String("id", id),
		zap.String("from", string(paper.Status)),
		zap.String("to", string(to)),
		zap.String("trigger", string(trigger)))

	updated := patch.Apply(*paper)
	return &updated, nil
}

// Complete schließt ein Review ab. Ohne getrimmte Zusammenfassung und ohne Datei wird nichts
// gelesen oder geschrieben. Scheitert das Speichern nach dem Upload, wird die Datei wieder gelöscht.
func (s *PaperService) Complete(ctx context.Context, id, summary string, file *lifecycle.Upload) (*models.Paper, error) {
	completion, err := lifecycle.PrepareCompletion(summary, file)
	if err != nil {
		return nil, err
	}
	paper, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := completion.CheckFrom(paper.Status); err != nil {
		return nil, err
	}

	var artifact *models.ReviewArtifact
	if completion.File != nil {
		artifact, err = s.upload(ctx, id, completion.File)
		if err != nil {
			return nil, err
		}
	}

	patch := completion.Patch(artifact)
	if err := s.Repo.Update(ctx, id, patch); err != nil {
		s.Logger.Error("Failed to store completed review", zap.String("id", id), zap.Error(err))
		if artifact != nil {
			if derr := s.Blobs.Delete(ctx, artifact.Key); derr != nil {
				s.Logger.Warn("Failed to remove orphaned review file", zap.String("key", artifact.Key), zap.Error(derr))
			}
		}
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(paper.Status), string(models.StatusCompleted)).Inc()
	s.Logger.Info("Review completed",
		zap.String("id", id),
		zap.Bool("summary", completion.Summary != nil),
		zap.Bool("review_file", artifact != nil))

	updated := patch.Apply(*paper)
	return &updated, nil
}

func (s *PaperService) upload(ctx context.Context, id string, file *lifecycle.Upload) (*models.ReviewArtifact, error) {
	key := storage.ReviewKey(id, file.Name, s.Now())
	url, err := s.Blobs.Put(ctx, key, file.Data, file.ContentType)
	if err != nil {
		metrics.ReviewUploads.WithLabelValues(file.ContentType, "error").Inc()
		s.Logger.Error("Review file upload failed", zap.String("id", id), zap.String("key", key), zap.Error(err))
		return nil, &models.BlobError{Op: "put", Key: key, Err: err}
	}
	metrics.ReviewUploads.WithLabelValues(file.ContentType, "ok").Inc()
	return &models.ReviewArtifact{
		Name:        file.Name,
		URL:         url,
		ContentType: file.ContentType,
		Key:         key,
	}, nil
}

// Update verteilt einen PATCH auf Abschluss oder Statuswechsel.
func (s *PaperService) Update(ctx context.Context, id string, in UpdateInput) (*models.Paper, error) {
	completing := in.Summary != nil || in.File != nil || (in.Status != nil && *in.Status == models.StatusCompleted)
	switch {
	case completing && in.Status != nil && *in.Status != models.StatusCompleted:
		return nil, &models.ValidationError{Field: "status", Message: "summary and review file are only accepted with status completed"}
	case completing:
		summary := ""
		if in.Summary != nil {
			summary = *in.Summary
		}
		return s.Complete(ctx, id, summary, in.File)
	case in.Status != nil:
		if !in.Status.Valid() {
			return nil, &models.ValidationError{Field: "status", Message: "unknown status " + string(*in.Status)}
		}
		return s.SetStatus(ctx, id, *in.Status)
	}
	return nil, &models.ValidationError{Message: "nothing to update"}
}

// Delete entfernt zuerst die Review-Datei (falls vorhanden) und dann den Datensatz.
func (s *PaperService) Delete(ctx context.Context, id string) error {
	paper, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if paper.ReviewFile != nil {
		if err := s.Blobs.Delete(ctx, paper.ReviewFile.Key); err != nil {
			s.Logger.Error("Failed to delete review file", zap.String("id", id), zap.String("key", paper.ReviewFile.Key), zap.Error(err))
			return &models.BlobError{Op: "delete", Key: paper.ReviewFile.Key, Err: err}
		}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		s.Logger.Error("Failed to delete paper", zap.String("id", id), zap.Error(err))
		return err
	}
	metrics.PapersDeleted.Inc()
	s.Logger.Info("Paper deleted", zap.String("id", id), zap.Bool("had_review_file", paper.ReviewFile != nil))
	return nil
}

// SweepMissed setzt alle aktuellen Papers, deren Deadline mehr als eine Woche zurückliegt, auf missed.
// Einzelne Fehler brechen den Lauf nicht ab, sie werden gesammelt zurückgegeben.
func (s *PaperService) SweepMissed(ctx context.Context) (int, error) {
	current, err := s.Repo.ListByStatus(ctx, models.StatusCurrent)
	if err != nil {
		return 0, err
	}
	ids := lifecycle.SelectMissed(current, s.Now())
	if len(ids) == 0 {
		return 0, nil
	}

	missed := models.StatusMissed
	var errs error
	marked := 0
	for _, id := range ids {
		if err := s.Repo.Update(ctx, id, models.PaperPatch{Status: &missed}); err != nil {
			s.Logger.Error("Sweep failed to mark paper as missed", zap.String("id", id), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		marked++
		metrics.StatusTransitions.WithLabelValues(string(models.StatusCurrent), string(missed)).Inc()
	}
	metrics.SweepMarked.Add(float64(marked))
	s.Logger.Info("Missed sweep finished", zap.Int("eligible", len(ids)), zap.Int("marked", marked))
	return marked, errs
}

// ReviewDownloadURL liefert einen signierten Link auf die Review-Datei.
func (s *PaperService) ReviewDownloadURL(ctx context.Context, id string) (string, error) {
	paper, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if paper.ReviewFile == nil {
		return "", &models.NotFoundError{Resource: "review file", ID: id}
	}
	url, err := s.Blobs.PresignGet(ctx, paper.ReviewFile.Key, s.PresignTTL)
	if err != nil {
		return "", &models.BlobError{Op: "presign", Key: paper.ReviewFile.Key, Err: err}
	}
	return url, nil
}
