package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"video-insight/cmd/api/handlers"
	"video-insight/cmd/api/middleware"
	"video-insight/cmd/api/services"
)

// HealthChecker 는 저장소 연결 확인용이다. nil 이면 항상 ok.
type HealthChecker func(ctx context.Context) error

func New(svc *services.AnalysisService, health HealthChecker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), middleware.RequestLoggingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.POST("/analyses", handlers.SubmitAnalysisHandler(svc))
		api.GET("/analyses", handlers.FindAnalysisHandler(svc))
		api.GET("/analyses/:id", handlers.GetAnalysisHandler(svc))
		api.POST("/analyses/:id/audio", handlers.RequestAudioHandler(svc))
		api.GET("/analyses/:id/audio", handlers.GetAudioHandler(svc))
	}

	return r
}

// WithCORS 는 허용 origin 목록으로 엔진을 감싼다. 목록이 비어 있으면 모든 origin 을 허용한다.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}
	if len(allowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.New(opts).Handler(h)
}
