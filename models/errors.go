package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition wird für unzulässige Statuswechsel zurückgegeben.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError: fehlende Pflichtfelder oder unvollständiger Abschluss. Keine Zustandsänderung.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError: die Ziel-ID existiert nicht.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TransitionError beschreibt einen abgelehnten Statuswechsel.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StoreError kapselt Fehler der Datenbank.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// BlobError kapselt Fehler des Objektspeichers.
type BlobError struct {
	Op  string
	Key string
	Err error
}

func (e *BlobError) Error() string { return fmt.Sprintf("blob %s %s: %v", e.Op, e.Key, e.Err) }
func (e *BlobError) Unwrap() error { return e.Err }

// IsNotFound meldet, ob err (oder ein gewrappter Fehler) ein NotFoundError ist.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation meldet, ob err ein ValidationError ist.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
