package models

import "fmt"

// Status ist die Lebenszyklus-Phase eines Papers.
type Status string

const (
	StatusCurrent   Status = "current"
	StatusFuture    Status = "future"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
)

// AllStatuses in Anzeige-Reihenfolge.
var AllStatuses = []Status{StatusCurrent, StatusFuture, StatusCompleted, StatusMissed}

func (s Status) Valid() bool {
	switch s {
	case StatusCurrent, StatusFuture, StatusCompleted, StatusMissed:
		return true
	}
	return false
}

// ParseStatus prüft einen Status-String.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}
	}
	return s, nil
}
