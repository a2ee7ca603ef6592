package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"paper-tracker/lifecycle"
	"paper-tracker/models"
)

// NewPaper sind die Felder beim Anlegen über die API.
type NewPaper struct {
	Name     string        `json:"name"`
	PDFLink  string        `json:"pdf_link"`
	Deadline string        `json:"deadline"`
	Status   models.Status `json:"status"`
}

// Backend ist der autoritative Paper-Store aus Sicht des Clients.
type Backend interface {
	List(ctx context.Context) ([]models.Paper, error)
	Create(ctx context.Context, in NewPaper) (*models.Paper, error)
	SetStatus(ctx context.Context, id string, status models.Status) error
	Complete(ctx context.Context, id, summary string, file *lifecycle.Upload) error
	Delete(ctx context.Context, id string) error
	// Sweep lässt den Server verpasste Papers markieren und liefert deren Anzahl.
	Sweep(ctx context.Context) (int, error)
}

// HTTPBackend spricht die REST-API des Servers.
type HTTPBackend struct {
	BaseURL string
	APIKey  string
	Token   string
	Client  *http.Client
}

func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *HTTPBackend) List(ctx context.Context) ([]models.Paper, error) {
	var papers []models.Paper
	if err := b.doJSON(ctx, http.MethodGet, "/papers", nil, &papers); err != nil {
		return nil, err
	}
	return papers, nil
}

func (b *HTTPBackend) Create(ctx context.Context, in NewPaper) (*models.Paper, error) {
	var paper models.Paper
	if err := b.doJSON(ctx, http.MethodPost, "/papers", in, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (b *HTTPBackend) SetStatus(ctx context.Context, id string, status models.Status) error {
	body := map[string]models.Status{"status": status}
	return b.doJSON(ctx, http.MethodPatch, "/papers/"+url.PathEscape(id), body, nil)
}

// Complete sendet wie das Formular im Browser ein multipart-PATCH mit status, summary und reviewFile.
func (b *HTTPBackend) Complete(ctx context.Context, id, summary string, file *lifecycle.Upload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("status", string(models.StatusCompleted)); err != nil {
		return err
	}
	if summary != "" {
		if err := w.WriteField("summary", summary); err != nil {
			return err
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="reviewFile"; filename=%q`, file.Name))
		h.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(file.Data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return b.do(ctx, http.MethodPatch, "/papers/"+url.PathEscape(id), &buf, w.FormDataContentType(), nil)
}

func (b *HTTPBackend) Delete(ctx context.Context, id string) error {
	return b.doJSON(ctx, http.MethodDelete, "/papers/"+url.PathEscape(id), nil, nil)
}

func (b *HTTPBackend) Sweep(ctx context.Context) (int, error) {
	var resp struct {
		Marked int `json:"marked"`
	}
	if err := b.doJSON(ctx, http.MethodPost, "/papers/sweep", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Marked, nil
}

func (b *HTTPBackend) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return b.do(ctx, method, path, body, contentType, out)
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if b.APIKey != "" {
		req.Header.Set("X-API-KEY", b.APIKey)
	}
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return &models.StoreError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(method+" "+path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.StoreError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeError übersetzt die Fehlerantwort des Servers zurück in die Fehlerarten aus models.
func decodeError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &models.ValidationError{Message: msg}
	case http.StatusNotFound:
		return &models.NotFoundError{Resource: "paper", ID: msg}
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", models.ErrInvalidTransition, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: unauthorized", op)
	}
	return &models.StoreError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
}
