// Package lifecycle enthält die reine Entscheidungslogik für Statuswechsel von Papers.
// Nichts hier blockiert oder greift auf Speicher zu.
package lifecycle

import (
	"mime"
	"strings"
	"time"

	"paper-tracker/models"
)

// MissedGrace ist die Frist nach der Deadline, ab der ein aktuelles Paper als verpasst gilt.
const MissedGrace = 7 * 24 * time.Hour

// Trigger benennt die Benutzeraktion hinter einem Statuswechsel.
type Trigger string

const (
	TriggerStoreForLater Trigger = "store for later"
	TriggerMoveToCurrent Trigger = "move to current review"
	TriggerResume        Trigger = "resume"
	TriggerComplete      Trigger = "complete review"
	TriggerSweep         Trigger = "automatic sweep"
)

type edge struct {
	from, to models.Status
}

// Erlaubte Übergänge. completed hat keine ausgehenden Kanten.
var transitions = map[edge]Trigger{
	{models.StatusCurrent, models.StatusFuture}:    TriggerStoreForLater,
	{models.StatusFuture, models.StatusCurrent}:    TriggerMoveToCurrent,
	{models.StatusMissed, models.StatusFuture}:     TriggerStoreForLater,
	{models.StatusMissed, models.StatusCurrent}:    TriggerResume,
	{models.StatusCurrent, models.StatusCompleted}: TriggerComplete,
	{models.StatusMissed, models.StatusCompleted}:  TriggerComplete,
	{models.StatusCurrent, models.StatusMissed}:    TriggerSweep,
}

// ValidInitial meldet, ob ein Paper mit diesem Status angelegt werden darf.
func ValidInitial(s models.Status) bool {
	return s == models.StatusCurrent || s == models.StatusFuture
}

// TriggerFor liefert die Aktion, die from -> to auslöst.
func TriggerFor(from, to models.Status) (Trigger, bool) {
	t, ok := transitions[edge{from, to}]
	return t, ok
}

// CanTransition meldet, ob from -> to laut Tabelle zulässig ist (inklusive Sweep und Abschluss).
func CanTransition(from, to models.Status) bool {
	_, ok := TriggerFor(from, to)
	return ok
}

// Transition prüft einen expliziten Benutzerwechsel. Abschluss und Sweep haben eigene Wege,
// weil sie zusätzliche Vorbedingungen bzw. keinen Benutzer-Trigger haben.
func Transition(from, to models.Status) (Trigger, error) {
	t, ok := TriggerFor(from, to)
	if !ok || t == TriggerComplete || t == TriggerSweep {
		return "", &models.TransitionError{From: from, To: to}
	}
	return t, nil
}

// IsOverdue ist das reine Anzeige-Prädikat: die Deadline ist überschritten.
func IsOverdue(deadline models.Date, now time.Time) bool {
	return now.After(deadline.Time)
}

// IsMissedEligible meldet, ob die Deadline mehr als MissedGrace zurückliegt.
func IsMissedEligible(deadline models.Date, now time.Time) bool {
	return now.After(deadline.Add(MissedGrace))
}

// ShowOverdue ist das Flag für aktuelle Papers, die überfällig, aber noch nicht verpasst sind.
func ShowOverdue(p models.Paper, now time.Time) bool {
	return p.Status == models.StatusCurrent && IsOverdue(p.Deadline, now)
}

// SelectMissed liefert die IDs aller aktuellen Papers, die der Sweep auf missed setzen muss.
func SelectMissed(papers []models.Paper, now time.Time) []string {
	var ids []string
	for _, p := range papers {
		if p.Status == models.StatusCurrent && IsMissedEligible(p.Deadline, now) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Sweep wendet die Missed-Regel auf eine Kopie der Liste an. Zweimal angewandt ändert sich nichts mehr.
func Sweep(papers []models.Paper, now time.Time) []models.Paper {
	out := make([]models.Paper, len(papers))
	for i, p := range papers {
		if p.Status == models.StatusCurrent && IsMissedEligible(p.Deadline, now) {
			p.Status = models.StatusMissed
		}
		out[i] = p
	}
	return out
}

// Akzeptierte Dateitypen für Review-Dateien.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeText = "text/plain"
)

// AcceptedContentType prüft den MIME-Typ ohne Parameter wie charset.
func AcceptedContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(ct))
	}
	switch mediaType {
	case ContentTypePDF, ContentTypeDOCX, ContentTypeText:
		return true
	}
	return false
}

// Upload ist eine zum Hochladen bereitgestellte Review-Datei.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Completion ist ein geprüfter Abschluss. Summary ist nil, wenn nur eine Datei geliefert wurde.
type Completion struct {
	Summary *string
	File    *Upload
}

// PrepareCompletion prüft die Eingaben eines Abschlusses, bevor irgendetwas gelesen oder
// gespeichert wird: getrimmte Zusammenfassung oder Datei müssen vorhanden sein.
func PrepareCompletion(summary string, file *Upload) (Completion, error) {
	if file != nil && !AcceptedContentType(file.ContentType) {
		return Completion{}, &models.ValidationError{Field: "review_file", Message: "unsupported content type " + file.ContentType}
	}
	trimmed := strings.TrimSpace(summary)
	if trimmed == "" && file == nil {
		return Completion{}, &models.ValidationError{Field: "summary", Message: "summary or review file required"}
	}
	c := Completion{File: file}
	if trimmed != "" {
		c.Summary = &trimmed
	}
	return c, nil
}

// CheckFrom prüft, ob ein Paper im Status from abgeschlossen werden darf.
func (c Completion) CheckFrom(from models.Status) error {
	if t, ok := TriggerFor(from, models.StatusCompleted); !ok || t != TriggerComplete {
		return &models.TransitionError{From: from, To: models.StatusCompleted}
	}
	return nil
}

// Patch übersetzt den Abschluss in ein Merge-Update. artifact ist das Ergebnis des Uploads.
func (c Completion) Patch(artifact *models.ReviewArtifact) models.PaperPatch {
	status := models.StatusCompleted
	return models.PaperPatch{
		Status:     &status,
		Summary:    c.Summary,
		ReviewFile: artifact,
	}
}
