// Package api wires the quizhook HTTP routes.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/quizhook/api/handler"
	"github.com/use-agent/quizhook/api/middleware"
	"github.com/use-agent/quizhook/config"
	"github.com/use-agent/quizhook/preview"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	Inspect: Auth (if enabled) → RateLimit
//
// The quiz webhook authenticates with the quiz secret in its body, and the
// health endpoint stays open so monitoring checks always work.
func NewRouter(v handler.Visitor, sub handler.Submitter, stats handler.StatsReporter, pv *preview.Renderer, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.POST("/api/quiz-webhook", handler.QuizWebhook(v, sub, cfg.Quiz.Secret))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(stats, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/inspect", handler.Inspect(v, pv))

	return r
}
