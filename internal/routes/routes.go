package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
)

// NewRouter builds the engine with request logging and panic recovery.
func NewRouter(
	secret []byte,
	taskHandler *handlers.TaskHandler,
	viewHandler *handlers.ViewHandler,
	preferencesHandler *handlers.PreferencesHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	return SetupRoutes(r, secret, taskHandler, viewHandler, preferencesHandler)
}

func SetupRoutes(
	r *gin.Engine,
	secret []byte,
	taskHandler *handlers.TaskHandler,
	viewHandler *handlers.ViewHandler,
	preferencesHandler *handlers.PreferencesHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ---- protected
	r.Use(middleware.AuthMiddleware(secret))

	tasks := r.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("", taskHandler.Create)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.POST("/:id/transition", taskHandler.Transition)
		tasks.POST("/:id/advance", taskHandler.Advance)
	}

	r.GET("/board", viewHandler.Board)
	r.GET("/calendar", viewHandler.Calendar)
	r.GET("/analytics", viewHandler.Analytics)
	r.GET("/export", viewHandler.Export)
	r.POST("/import", viewHandler.Import)

	prefs := r.Group("/preferences")
	{
		prefs.GET("", preferencesHandler.Get)
		prefs.PUT("", preferencesHandler.Put)
	}

	return r
}
