package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"clipshare/internal/config"
	"clipshare/internal/middleware"
	"clipshare/internal/modules/video"
	"clipshare/internal/pkg/jwt"
	"clipshare/internal/pkg/logger"
)

// Deps are the wired components the router serves.
type Deps struct {
	DB       *gorm.DB
	Videos   *video.Handler
	Verifier middleware.TokenVerifier
	Logger   logger.Logger
	Gatherer prometheus.Gatherer
}

func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.ErrorLogger(d.Logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		status := "up"
		code := http.StatusOK
		if d.DB != nil {
			if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status})
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	videos := r.Group("/api/videos")
	protected := videos.Group("", middleware.JWTAuth(d.Verifier))
	d.Videos.RegisterRoutes(videos, protected)

	return r
}

// NewVerifier builds the bearer verifier from config.
func NewVerifier(cfg *config.Config) *jwt.Service {
	return jwt.New(cfg.JWT.Secret, cfg.JWT.TTL)
}
