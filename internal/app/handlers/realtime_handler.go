package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/domain/services"
	"github.com/terrawatt/terrawatt/internal/realtime"
)

// RealtimeHandler upgrades authenticated HTTP requests into task messaging
// sessions. Browsers cannot set headers on websocket dials, so the credential
// arrives as a query parameter instead of a bearer header.
type RealtimeHandler struct {
	*BaseHandler
	hub         *realtime.Hub
	authService services.AuthService
	userRepo    repositories.UserRepository
	upgrader    websocket.Upgrader
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(hub *realtime.Hub, authService services.AuthService, userRepo repositories.UserRepository, allowedOrigins []string, cfg *HandlerConfig) *RealtimeHandler {
	return &RealtimeHandler{
		BaseHandler: NewBaseHandler(cfg),
		hub:         hub,
		authService: authService,
		userRepo:    userRepo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes registers the websocket endpoint
func (h *RealtimeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.Connect)
}

// Connect authenticates the token, upgrades the connection and serves it
// until the socket dies.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.RespondUnauthorized(c, "Token query parameter is required")
		return
	}

	authUser, err := h.authService.ValidateToken(token)
	if err != nil {
		h.RespondUnauthorized(c, "Token validation failed")
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), authUser.Email)
	if err != nil {
		h.RespondUnauthorized(c, "User not found in system")
		return
	}
	if !user.IsActive {
		h.RespondUnauthorized(c, "User account is inactive")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	client := realtime.NewClient(h.hub, conn, user.ID)
	client.Serve(c.Request.Context())
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no origin.
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
