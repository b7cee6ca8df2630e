package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wireline/chatrelay/internal/chat"
)

// AdminHandlers provides the REST endpoints gameplay and ops tooling use
// to inspect the registry and send server-attributed messages.
type AdminHandlers struct {
	reg *chat.Registry
	log *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(reg *chat.Registry, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{reg: reg, log: logger}
}

// ClientResponse describes one connected client.
type ClientResponse struct {
	ID   uint16 `json:"id"`
	Nick string `json:"nick"`
}

// ChannelsResponse lists the currently active channels.
type ChannelsResponse struct {
	Channels []string `json:"channels"`
}

// BroadcastRequest is the body for POST /api/broadcast.
type BroadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

// WhisperRequest is the body for POST /api/whisper.
type WhisperRequest struct {
	Nick string `json:"nick" binding:"required"`
	Text string `json:"text" binding:"required"`
}

// StatusResponse acknowledges a successful admin action.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListClients handles GET /api/clients.
func (h *AdminHandlers) ListClients(c *gin.Context) {
	roster := h.reg.Roster()

	clients := make([]ClientResponse, 0, len(roster))
	for id, nick := range roster {
		clients = append(clients, ClientResponse{ID: uint16(id), Nick: nick})
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })

	c.JSON(http.StatusOK, clients)
}

// ListChannels handles GET /api/channels.
func (h *AdminHandlers) ListChannels(c *gin.Context) {
	channels := h.reg.ActiveChannels()
	if channels == nil {
		channels = []string{}
	}
	sort.Strings(channels)

	c.JSON(http.StatusOK, ChannelsResponse{Channels: channels})
}

// Broadcast handles POST /api/broadcast, sending server-attributed text to
// every connected client. Command text is rejected: the server identity has
// no queue for a command response to land in.
func (h *AdminHandlers) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if isCommandText(req.Text) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "command text not allowed"})
		return
	}

	h.reg.AdminBroadcast(req.Text)
	h.log.Info().Str("text", req.Text).Msg("admin broadcast sent")
	c.JSON(http.StatusOK, StatusResponse{Status: "sent"})
}

// Whisper handles POST /api/whisper, sending server-attributed text to the
// client owning the nickname.
func (h *AdminHandlers) Whisper(c *gin.Context) {
	var req WhisperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if isCommandText(req.Text) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "command text not allowed"})
		return
	}

	if _, ok := h.reg.WhisperNick(chat.ServerConnectionID, req.Nick, req.Text); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no such nick"})
		return
	}

	h.log.Info().Str("nick", req.Nick).Msg("admin whisper sent")
	c.JSON(http.StatusOK, StatusResponse{Status: "sent"})
}

// isCommandText reports whether the registry would intercept the text as a
// command rather than route it.
func isCommandText(text string) bool {
	return strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "//")
}
