package models

import (
	"time"

	"gorm.io/gorm"
)

// Paper repräsentiert ein wissenschaftliches Paper, dessen Review verfolgt wird.
type Paper struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string `json:"name" gorm:"not null"`
	PDFLink   string `json:"pdf_link" gorm:"column:pdf_link;type:text;not null"`
	Deadline  Date   `json:"deadline" gorm:"type:date;not null"`
	Status    Status `json:"status" gorm:"size:16;index;not null"`
	DateAdded Date   `json:"date_added" gorm:"type:date;not null"`

	// Nur bei abgeschlossenem Review gesetzt
	Summary    *string         `json:"summary,omitempty" gorm:"type:text"`
	ReviewFile *ReviewArtifact `json:"review_file,omitempty" gorm:"-"`

	// Spalten hinter ReviewFile, werden über die Hooks synchronisiert
	ReviewFileName *string `json:"-" gorm:"column:review_file_name"`
	ReviewFileURL  *string `json:"-" gorm:"column:review_file_url;type:text"`
	ReviewFileType *string `json:"-" gorm:"column:review_file_type"`
	ReviewFileKey  *string `json:"-" gorm:"column:review_file_key;type:text"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Paper) TableName() string { return "papers" }

// ReviewArtifact beschreibt eine hochgeladene Review-Datei. Entweder vollständig vorhanden oder gar nicht.
type ReviewArtifact struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"type"`
	Key         string `json:"-"`
}

// Columns liefert die Spaltenwerte des Artefakts für ein Merge-Update.
func (a *ReviewArtifact) Columns() map[string]interface{} {
	return map[string]interface{}{
		"review_file_name": a.Name,
		"review_file_url":  a.URL,
		"review_file_type": a.ContentType,
		"review_file_key":  a.Key,
	}
}

func (p *Paper) BeforeSave(tx *gorm.DB) error {
	if p.ReviewFile == nil {
		p.ReviewFileName, p.ReviewFileURL, p.ReviewFileType, p.ReviewFileKey = nil, nil, nil, nil
		return nil
	}
	f := *p.ReviewFile
	p.ReviewFileName, p.ReviewFileURL, p.ReviewFileType, p.ReviewFileKey = &f.Name, &f.URL, &f.ContentType, &f.Key
	return nil
}

func (p *Paper) AfterFind(tx *gorm.DB) error {
	p.syncReviewFile()
	return nil
}

func (p *Paper) syncReviewFile() {
	if p.ReviewFileName == nil || p.ReviewFileURL == nil || p.ReviewFileType == nil || p.ReviewFileKey == nil {
		p.ReviewFile = nil
		return
	}
	p.ReviewFile = &ReviewArtifact{
		Name:        *p.ReviewFileName,
		URL:         *p.ReviewFileURL,
		ContentType: *p.ReviewFileType,
		Key:         *p.ReviewFileKey,
	}
}

// PaperPatch enthält die Felder eines Merge-Updates. Nil-Felder bleiben unverändert.
type PaperPatch struct {
	Status     *Status
	Summary    *string
	ReviewFile *ReviewArtifact
}

// Empty meldet, ob der Patch keine Änderung enthält.
func (p PaperPatch) Empty() bool {
	return p.Status == nil && p.Summary == nil && p.ReviewFile == nil
}

// Apply wendet den Patch auf eine Kopie des Papers an.
func (p PaperPatch) Apply(paper Paper) Paper {
	if p.Status != nil {
		paper.Status = *p.Status
	}
	if p.Summary != nil {
		s := *p.Summary
		paper.Summary = &s
	}
	if p.ReviewFile != nil {
		f := *p.ReviewFile
		paper.ReviewFile = &f
	}
	return paper
}

// Columns übersetzt den Patch in die zu aktualisierenden Spalten.
func (p PaperPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Summary != nil {
		cols["summary"] = *p.Summary
	}
	if p.ReviewFile != nil {
		for k, v := range p.ReviewFile.Columns() {
			cols[k] = v
		}
	}
	return cols
}
