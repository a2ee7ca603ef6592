package repositories

import (
	"context"
	"errors"
	"time"

	"paper-tracker/models"

	"gorm.io/gorm"
)

// PaperRepository ist der persistente Paper-Store.
type PaperRepository interface {
	Create(ctx context.Context, paper *models.Paper) error
	List(ctx context.Context) ([]models.Paper, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.Paper, error)
	GetByID(ctx context.Context, id string) (*models.Paper, error)
	// Update ist ein Merge-Update: nur die gesetzten Felder des Patches werden geschrieben.
	Update(ctx context.Context, id string, patch models.PaperPatch) error
	Delete(ctx context.Context, id string) error
}

type paperRepository struct {
	db *gorm.DB
}

func NewPaperRepository(db *gorm.DB) PaperRepository {
	return &paperRepository{db: db}
}

// Migrate legt die Tabelle an bzw. ergänzt fehlende Spalten.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Paper{})
}

func (r *paperRepository) Create(ctx context.Context, paper *models.Paper) error {
	if err := r.db.WithContext(ctx).Create(paper).Error; err != nil {
		return &models.StoreError{Op: "create", Err: err}
	}
	return nil
}

func (r *paperRepository) List(ctx context.Context) ([]models.Paper, error) {
	var papers []models.Paper
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&papers).Error; err != nil {
		return nil, &models.StoreError{Op: "list", Err: err}
	}
	return papers, nil
}

func (r *paperRepository) ListByStatus(ctx context.Context, status models.Status) ([]models.Paper, error) {
	var papers []models.Paper
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at desc").
		Find(&papers).Error
	if err != nil {
		return nil, &models.StoreError{Op: "list by status", Err: err}
	}
	return papers, nil
}

func (r *paperRepository) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	var paper models.Paper
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Resource: "paper", ID: id}
	}
	if err != nil {
		return nil, &models.StoreError{Op: "get", Err: err}
	}
	return &paper, nil
}

func (r *paperRepository) Update(ctx context.Context, id string, patch models.PaperPatch) error {
	cols := patch.Columns()
	cols["updated_at"] = time.Now()

	// Hooks würden die Review-Spalten des leeren Models mitschreiben
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Paper{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return &models.StoreError{Op: "update", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &models.NotFoundError{Resource: "paper", ID: id}
	}
	return nil
}

func (r *paperRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Paper{})
	if res.Error != nil {
		return &models.StoreError{Op: "delete", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &models.NotFoundError{Resource: "paper", ID: id}
	}
	return nil
}
