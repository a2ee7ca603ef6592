package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-tracker/models"
)

// statusFor bildet die Fehlerarten auf HTTP-Status ab.
func statusFor(err error) int {
	var (
		ve *models.ValidationError
		nf *models.NotFoundError
		be *models.BlobError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &be):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		// Interna nicht nach außen geben
		msg = http.StatusText(status)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
