package router

import (
	"log/slog"
	"time"

	"PasteBox/internal/handler"
	"PasteBox/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the router.
type Options struct {
	CORSOrigins []string
	Issuer      *utils.TokenIssuer
	Health      map[string]handler.Pinger
	Logger      *slog.Logger
}

// InitRouter builds API routes.
func InitRouter(h *handler.Handler, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), metricsMiddleware())
	corsCfg := cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", handler.Health(opts.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/f/:code", h.ResolveOwned)
	r.GET("/g/:code", h.ResolveGuest)

	api := r.Group("/api")
	{
		api.POST("/guest/upload", h.UploadGuest)

		links := api.Group("/links/:ns/:code")
		{
			links.GET("", h.ResolveLink)
			links.POST("/verify", h.VerifyPassword)
			links.POST("/download", h.Download)
		}

		auth := api.Group("")
		auth.Use(utils.AuthMiddleware(opts.Issuer))

		file := auth.Group("/files")
		{
			file.POST("/upload", h.UploadOwned)
			file.GET("", h.ListFiles)
			file.GET("/search", h.SearchFiles)
			file.POST("/expiry/reconcile", h.ReconcileExpiry)
			file.GET("/:id", h.FileDetails)
			file.GET("/:id/downloads", h.DownloadCount)
			file.PATCH("/:id/status", h.SetStatus)
			file.PATCH("/:id/expiry", h.SetExpiry)
			file.PUT("/:id/password", h.SetPassword)
			file.DELETE("/:id", h.DeleteFile)
			file.POST("/:id/short-code", h.RegenerateShortCode)
			file.POST("/:id/share", h.ShareByEmail)
			file.GET("/:id/qr", h.QRCode)
		}
	}
	return r
}
