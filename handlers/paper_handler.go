package handlers

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-tracker/lifecycle"
	"paper-tracker/models"
	"paper-tracker/services"
)

const reviewFileField = "reviewFile"

// PaperHandler stellt die REST-Endpunkte für Papers bereit.
type PaperHandler struct {
	svc      *services.PaperService
	sweeper  *services.Sweeper
	log      *zap.Logger
	maxBytes int64
}

func NewPaperHandler(svc *services.PaperService, sweeper *services.Sweeper, log *zap.Logger, maxUploadBytes int64) *PaperHandler {
	return &PaperHandler{svc: svc, sweeper: sweeper, log: log, maxBytes: maxUploadBytes}
}

// Register hängt die Routen an die (bereits authentifizierte) Gruppe.
func (h *PaperHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/sweep", h.Sweep)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/future", h.MoveToFuture)
	rg.POST("/:id/current", h.MoveToCurrent)
	rg.POST("/:id/resume", h.Resume)
	rg.POST("/:id/complete", h.Complete)
	rg.GET("/:id/review", h.DownloadReview)
}

func (h *PaperHandler) List(c *gin.Context) {
	papers, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	views := make([]services.PaperView, 0, len(papers))
	for _, p := range papers {
		views = append(views, h.svc.View(p))
	}
	c.JSON(http.StatusOK, views)
}

func (h *PaperHandler) Get(c *gin.Context) {
	paper, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.View(*paper))
}

func (h *PaperHandler) Create(c *gin.Context) {
	var in services.CreatePaperInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	paper, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, h.svc.View(*paper))
}

type updateBody struct {
	Status  *string `json:"status"`
	Summary *string `json:"summary"`
}

// Update ist der Merge-PATCH: JSON oder multipart mit status, summary und reviewFile.
func (h *PaperHandler) Update(c *gin.Context) {
	in, err := h.bindUpdate(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	paper, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.View(*paper))
}

func (h *PaperHandler) bindUpdate(c *gin.Context) (services.UpdateInput, error) {
	var in services.UpdateInput
	var body updateBody

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
		if v, ok := c.GetPostForm("status"); ok && v != "" {
			body.Status = &v
		}
		// Formulare schicken leere Felder mit, leer heißt nicht gesetzt
		if v, ok := c.GetPostForm("summary"); ok && v != "" {
			body.Summary = &v
		}
		file, err := h.readUpload(c)
		if err != nil {
			return in, err
		}
		in.File = file
	} else if err := c.ShouldBindJSON(&body); err != nil {
		return in, &models.ValidationError{Message: "invalid request body"}
	}

	if body.Status != nil {
		s, err := models.ParseStatus(*body.Status)
		if err != nil {
			return in, err
		}
		in.Status = &s
	}
	in.Summary = body.Summary
	return in, nil
}

func (h *PaperHandler) readUpload(c *gin.Context) (*lifecycle.Upload, error) {
	header, err := c.FormFile(reviewFileField)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, &models.ValidationError{Field: reviewFileField, Message: err.Error()}
	}
	if header.Size > h.maxBytes {
		return nil, &models.ValidationError{Field: reviewFileField, Message: fmt.Sprintf("file larger than %d bytes", h.maxBytes)}
	}
	data, err := readMultipartFile(header)
	if err != nil {
		return nil, &models.ValidationError{Field: reviewFileField, Message: err.Error()}
	}
	return &lifecycle.Upload{
		Name:        header.Filename,
		ContentType: uploadContentType(header, data),
		Data:        data,
	}, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// uploadContentType nimmt den Typ des Formularteils, sonst die Endung, sonst den Inhalt.
func uploadContentType(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func (h *PaperHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Paper deleted"})
}

func (h *PaperHandler) MoveToFuture(c *gin.Context) {
	h.respondPaper(c)(h.svc.MoveToFuture(c.Request.Context(), c.Param("id")))
}

func (h *PaperHandler) MoveToCurrent(c *gin.Context) {
	h.respondPaper(c)(h.svc.MoveToCurrent(c.Request.Context(), c.Param("id")))
}

func (h *PaperHandler) Resume(c *gin.Context) {
	h.respondPaper(c)(h.svc.Resume(c.Request.Context(), c.Param("id")))
}

// Complete akzeptiert dieselben Formate wie Update, der Status ist implizit completed.
func (h *PaperHandler) Complete(c *gin.Context) {
	in, err := h.bindUpdate(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	summary := ""
	if in.Summary != nil {
		summary = *in.Summary
	}
	h.respondPaper(c)(h.svc.Complete(c.Request.Context(), c.Param("id"), summary, in.File))
}

func (h *PaperHandler) DownloadReview(c *gin.Context) {
	url, err := h.svc.ReviewDownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// Sweep stößt den Missed-Sweep an; innerhalb des Debounce-Fensters wird nur gemeldet, dass er lief.
func (h *PaperHandler) Sweep(c *gin.Context) {
	marked, ran, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ran": ran, "marked": marked})
}

func (h *PaperHandler) respondPaper(c *gin.Context) func(*models.Paper, error) {
	return func(paper *models.Paper, err error) {
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, h.svc.View(*paper))
	}
}
