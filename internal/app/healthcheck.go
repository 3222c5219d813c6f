package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// startHealthcheckServer runs the health check HTTP server until ctx is
// cancelled.
func (a *App) startHealthcheckServer(ctx context.Context, port int) {
	a.logger.Debug("Configuring health check server.")
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", c.Request.RemoteAddr, "path", c.Request.URL.Path)
		c.String(http.StatusOK, "OK\n")
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Health check server shutdown failed", "error", err)
		}
	}()
}
