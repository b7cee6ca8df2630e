// Package http exposes the chat registry over HTTP: a WebSocket endpoint
// for clients and a small REST surface for admin tooling.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wireline/chatrelay/internal/chat"
	"github.com/wireline/chatrelay/internal/config"
)

// NewServer builds the HTTP server with all routes registered.
func NewServer(reg *chat.Registry, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(reg, cfg.PullInterval, logger)))

	admin := NewAdminHandlers(reg, logger)
	api := router.Group("/api")
	api.GET("/clients", admin.ListClients)
	api.GET("/channels", admin.ListChannels)
	api.POST("/broadcast", admin.Broadcast)
	api.POST("/whisper", admin.Whisper)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
