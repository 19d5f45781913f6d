package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the gin router exposing health, readiness, metrics, and a
// plugin-status summary, grounded on configuration/internal/api/router.go's
// SetupRouter shape.
func (app *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", app.handleHealth)
	router.GET("/ready", app.handleReady)

	if app.Config.Metrics.Enabled {
		router.GET(app.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", app.handleStatus)
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (app *App) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "tradecore"})
}

func (app *App) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// handleStatus reports the sample plugins' lifecycle view: per-plugin
// state plus the current timestamp in Unix nanoseconds, the thinnest slice of
// configuration/internal/api's configuration-listing endpoint applied to
// plugin state instead of config records.
func (app *App) handleStatus(c *gin.Context) {
	statuses := map[string]string{
		app.dataPlugin.Metadata().ID:      app.dataPlugin.State().String(),
		app.executionPlugin.Metadata().ID: app.executionPlugin.State().String(),
		app.riskPlugin.Metadata().ID:      app.riskPlugin.State().String(),
		app.strategyPlugin.Metadata().ID:  app.strategyPlugin.State().String(),
		app.monitorPlugin.Metadata().ID:   app.monitorPlugin.State().String(),
	}
	c.JSON(http.StatusOK, gin.H{
		"plugins":   statuses,
		"timestamp": time.Now().UnixNano(),
	})
}
