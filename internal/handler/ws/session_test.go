package ws

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shenikar/emergency_coordination_system/internal/config"
	v1 "github.com/shenikar/emergency_coordination_system/internal/handler/http/v1"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/shenikar/emergency_coordination_system/internal/realtime"
	"github.com/shenikar/emergency_coordination_system/internal/realtime/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestSession создает сессию без живого сокета: handleFrame не трогает conn
func newTestSession(t *testing.T, identity models.Identity) (*wsSession, *mocks.MockIncidentCoordinator) {
	ctrl := gomock.NewController(t)
	coordinator := mocks.NewMockIncidentCoordinator(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	dispatcher := realtime.NewDispatcher(realtime.NewRoomRegistry(), coordinator, logger)

	session := &wsSession{
		id:         "s1",
		identity:   identity,
		send:       make(chan realtime.Event, 16),
		dispatcher: dispatcher,
		logger:     logger,
	}
	return session, coordinator
}

func frame(t *testing.T, event string, payload any) inboundFrame {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return inboundFrame{Event: event, Data: data}
}

// drain возвращает все события, стоящие в очереди отправки
func drain(s *wsSession) []realtime.Event {
	var events []realtime.Event
	for {
		select {
		case ev := <-s.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestHandleFrame_JoinIncident(t *testing.T) {
	session, _ := newTestSession(t, models.Identity{UserID: "r1", Role: models.RoleResponder, LguCode: "kidapawan"})

	session.handleFrame(frame(t, realtime.ActionJoinIncident, map[string]string{"incident_id": "inc-1"}))

	// Вход в комнату без ошибок и без рассылки
	assert.Empty(t, drain(session))
	assert.Equal(t, 1, session.dispatcher.Registry().Count(realtime.RoomIncident("inc-1")))
}

func TestHandleFrame_JoinForeignLGU(t *testing.T) {
	session, _ := newTestSession(t, models.Identity{UserID: "r1", Role: models.RoleResponder, LguCode: "kidapawan"})

	session.handleFrame(frame(t, realtime.ActionJoinLGU, map[string]string{"lgu_code": "davao"}))

	// Чужая очередь LGU: отправителю возвращается событие error
	events := drain(session)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventError, events[0].Name)
	assert.Equal(t, 0, session.dispatcher.Registry().Count(realtime.RoomLGU("davao")))
}

func TestHandleFrame_UnknownEvent(t *testing.T) {
	session, _ := newTestSession(t, models.Identity{UserID: "u1", Role: models.RoleUser, LguCode: "kidapawan"})

	session.handleFrame(inboundFrame{Event: "markAsRead", Data: []byte(`{}`)})

	events := drain(session)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventError, events[0].Name)
}

func TestHandleFrame_MalformedPayload(t *testing.T) {
	session, _ := newTestSession(t, models.Identity{UserID: "u1", Role: models.RoleUser, LguCode: "kidapawan"})

	session.handleFrame(inboundFrame{Event: realtime.ActionSendMessage, Data: []byte(`{"text": 42`)})

	events := drain(session)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventError, events[0].Name)
}

func TestSend_AfterClose(t *testing.T) {
	session, _ := newTestSession(t, models.Identity{UserID: "u1", Role: models.RoleUser, LguCode: "kidapawan"})

	session.closeSend()
	session.closeSend() // Повторное закрытие безопасно

	err := session.Send(realtime.Event{Name: realtime.EventNewMessage})
	require.Error(t, err)
}

func TestServeWebSocket_MissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	handler := NewHandler(realtime.NewDispatcher(realtime.NewRoomRegistry(), nil, logger), logger, &config.Config{JWTSecret: "secret"})

	router := gin.New()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServeWebSocket_TokenFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	secret := "secret"
	handler := NewHandler(realtime.NewDispatcher(realtime.NewRoomRegistry(), nil, logger), logger, &config.Config{JWTSecret: secret})

	router := gin.New()
	handler.RegisterRoutes(router)

	claims := v1.IdentityClaims{
		UserID: "u1",
		Role:   string(models.RoleUser),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	// Валидный токен проходит проверку: запрос без заголовков Upgrade
	// отклоняется уже апгрейдером, а не аутентификацией
	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
