package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_coordination_system/internal/config"
	v1 "github.com/shenikar/emergency_coordination_system/internal/handler/http/v1"
	"github.com/shenikar/emergency_coordination_system/internal/realtime"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Разрешает подключения с любого домена. В продакшене настроить!
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	dispatcher *realtime.Dispatcher
	logger     *logrus.Logger
	cfg        *config.Config
}

func NewHandler(dispatcher *realtime.Dispatcher, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterRoutes регистрирует маршрут WebSocket
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", h.ServeWebSocket)
}

// ServeWebSocket проверяет токен и повышает HTTP-соединение до WebSocket.
// Аутентификация до upgrade: анонимных сессий в реестре не бывает.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
		return
	}

	identity, err := v1.ParseIdentity(token, h.cfg.JWTSecret)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid websocket token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection")
		return
	}

	session := &wsSession{
		id:         uuid.NewString(),
		identity:   identity,
		conn:       conn,
		send:       make(chan realtime.Event, 256),
		dispatcher: h.dispatcher,
		logger:     h.logger,
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": session.id,
		"user_id":    identity.UserID,
		"role":       identity.Role,
	}).Info("Websocket session connected")

	session.run()
}

// bearerToken достает JWT из заголовка Authorization или параметра token.
// Браузерные клиенты не могут выставить заголовок на WebSocket подключении.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return c.Query("token")
}
