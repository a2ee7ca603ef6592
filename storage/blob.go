package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// BlobStore speichert Review-Dateien unter einem Schlüssel.
type BlobStore interface {
	// Put speichert data und gibt die öffentliche URL zurück.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete entfernt das Objekt. Ein fehlendes Objekt ist kein Fehler.
	Delete(ctx context.Context, key string) error
	// PresignGet erzeugt einen zeitlich begrenzten Download-Link.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ReviewPrefix ist das Verzeichnis aller Dateien eines Papers.
func ReviewPrefix(paperID string) string {
	return "reviews/" + paperID + "/"
}

// ReviewKey baut den Schlüssel reviews/<id>/<millis>_<name>. Der Zeitstempel verhindert Kollisionen
// bei gleichem Dateinamen.
func ReviewKey(paperID, filename string, now time.Time) string {
	return fmt.Sprintf("%s%d_%s", ReviewPrefix(paperID), now.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename entfernt Pfadanteile und Steuerzeichen aus einem Upload-Namen.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if cleaned == "" || cleaned == "." || cleaned == "/" || cleaned == ".." {
		return "review"
	}
	return cleaned
}

func objectURL(endpoint, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint, "/"), bucket, key)
}
