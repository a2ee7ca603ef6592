// Package testutil enthält In-Memory-Varianten von Paper-Store und Objektspeicher für Tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"paper-tracker/models"
)

// MemRepo implementiert repositories.PaperRepository im Speicher.
type MemRepo struct {
	mu        sync.Mutex
	papers    map[string]models.Paper
	Calls     int
	UpdateErr error
	// OnUpdate läuft vor jedem Update, für Race-Szenarien
	OnUpdate func(id string)
}

// NewMemRepo legt einen Store mit den gegebenen Papers an. Ohne CreatedAt bekommen sie aufsteigende Zeitstempel.
func NewMemRepo(papers ...models.Paper) *MemRepo {
	r := &MemRepo{papers: map[string]models.Paper{}}
	for i, p := range papers {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
		}
		r.papers[p.ID] = p
	}
	return r
}

func (r *MemRepo) Create(ctx context.Context, paper *models.Paper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	paper.CreatedAt = time.Now()
	r.papers[paper.ID] = *paper
	return nil
}

func (r *MemRepo) List(ctx context.Context) ([]models.Paper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	out := make([]models.Paper, 0, len(r.papers))
	for _, p := range r.papers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemRepo) ListByStatus(ctx context.Context, status models.Status) ([]models.Paper, error) {
	all, _ := r.List(ctx)
	var out []models.Paper
	for _, p := range all {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemRepo) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	p, ok := r.papers[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "paper", ID: id}
	}
	return &p, nil
}

func (r *MemRepo) Update(ctx context.Context, id string, patch models.PaperPatch) error {
	if r.OnUpdate != nil {
		r.OnUpdate(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.UpdateErr != nil {
		return &models.StoreError{Op: "update", Err: r.UpdateErr}
	}
	p, ok := r.papers[id]
	if !ok {
		return &models.NotFoundError{Resource: "paper", ID: id}
	}
	r.papers[id] = patch.Apply(p)
	return nil
}

func (r *MemRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if _, ok := r.papers[id]; !ok {
		return &models.NotFoundError{Resource: "paper", ID: id}
	}
	delete(r.papers, id)
	return nil
}

// Paper liefert den gespeicherten Stand ohne Zähler zu erhöhen.
func (r *MemRepo) Paper(id string) models.Paper {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.papers[id]
}

// MemBlobs implementiert storage.BlobStore im Speicher und protokolliert Put/Delete.
type MemBlobs struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	Puts    []string
	Deletes []string
	PutErr  error
}

func NewMemBlobs() *MemBlobs {
	return &MemBlobs{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (b *MemBlobs) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Puts = append(b.Puts, key)
	if b.PutErr != nil {
		return "", b.PutErr
	}
	b.Objects[key] = data
	b.Types[key] = contentType
	return "https://blob.test/paper-reviews/" + key, nil
}

func (b *MemBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deletes = append(b.Deletes, key)
	delete(b.Objects, key)
	return nil
}

func (b *MemBlobs) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, ok := b.Objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://blob.test/signed/" + key + "?ttl=" + ttl.String(), nil
}

// CallCount liest Calls unter dem Lock, für Tests mit echtem HTTP-Server.
func (r *MemRepo) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls
}
