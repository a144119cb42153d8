package app

import (
	"database/sql"
	"log/slog"

	"todotracker/internal/config"
	"todotracker/internal/handlers"
	"todotracker/internal/metrics"
	"todotracker/internal/middleware"
	"todotracker/internal/repo"
	"todotracker/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"

	_ "todotracker/docs"
)

const apiBasePath = "/api/v1"

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, db *sql.DB, m *metrics.Metrics, clock repo.Clock) {
	r.Use(middleware.RequestID(), middleware.Logger(slog.Default()))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/", rootHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	todoRepo := repo.NewSQLTodoRepo(db, clock)
	todoSvc := service.NewTodoService(todoRepo, clock)
	handlers.Register(r.Group(apiBasePath), handlers.NewTodoHandler(todoSvc))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Todo API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  apiBasePath + "/health",
			"metrics": "/metrics",
			"api":     apiBasePath,
		})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}
