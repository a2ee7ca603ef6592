package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"paper-tracker/middleware"
)

// NewRouter baut die gin-Engine mit allen Routen. /healthz, /metrics und /auth/token sind offen.
func NewRouter(papers *PaperHandler, auth *middleware.Authenticator, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(log), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/auth/token", NewAuthHandler(auth).Token)

	rg := router.Group("/papers")
	rg.Use(middleware.RequireAuth(auth))
	papers.Register(rg)

	return router
}
