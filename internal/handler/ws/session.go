package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/shenikar/emergency_coordination_system/internal/realtime"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// inboundFrame - входящий кадр протокола: имя события и полезная нагрузка
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsSession - живое WebSocket подключение, реализует realtime.Session.
// Исходящие события идут через буферизованный канал send: запись в сокет
// выполняет только writePump.
type wsSession struct {
	id         string
	identity   models.Identity
	conn       *websocket.Conn
	send       chan realtime.Event
	dispatcher *realtime.Dispatcher
	logger     *logrus.Logger

	mu     sync.Mutex
	closed bool
}

func (s *wsSession) ID() string                { return s.id }
func (s *wsSession) Identity() models.Identity { return s.identity }

// Send ставит событие в очередь отправки. Переполненный буфер означает
// отставшего клиента: событие отбрасывается, чтобы не блокировать рассылку.
func (s *wsSession) Send(event realtime.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("ws: session %s is closed", s.id)
	}
	select {
	case s.send <- event:
		return nil
	default:
		return fmt.Errorf("ws: session %s send buffer full", s.id)
	}
}

// closeSend закрывает канал отправки ровно один раз
func (s *wsSession) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// run запускает насосы чтения и записи
func (s *wsSession) run() {
	go s.writePump()
	go s.readPump()
}

// sendError возвращает ошибку только этой сессии
func (s *wsSession) sendError(message string) {
	_ = s.Send(realtime.Event{Name: realtime.EventError, Payload: map[string]string{"message": message}})
}

// readPump читает кадры из сокета и передает их диспетчеру.
// При любом выходе сессия снимается со всех комнат.
func (s *wsSession) readPump() {
	defer func() {
		s.dispatcher.Disconnect(s)
		s.closeSend()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).WithField("session_id", s.id).Warn("Unexpected websocket close")
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			s.logger.WithError(err).WithField("session_id", s.id).Warn("Failed to decode inbound frame")
			s.sendError("invalid frame")
			continue
		}

		s.handleFrame(frame)
	}
}

// handleFrame маршрутизирует входящий кадр в операцию диспетчера.
// Неизвестное событие и ошибки операций возвращаются только отправителю.
func (s *wsSession) handleFrame(frame inboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch frame.Event {
	case realtime.ActionJoinIncident:
		var payload struct {
			IncidentID string `json:"incident_id"`
		}
		if err = json.Unmarshal(frame.Data, &payload); err == nil {
			err = s.dispatcher.JoinIncident(s, payload.IncidentID)
		}
	case realtime.ActionJoinLGU:
		var payload struct {
			LguCode string `json:"lgu_code"`
		}
		if err = json.Unmarshal(frame.Data, &payload); err == nil {
			err = s.dispatcher.JoinLGU(s, payload.LguCode)
		}
	case realtime.ActionSendMessage:
		var req realtime.SendMessageRequest
		if err = json.Unmarshal(frame.Data, &req); err == nil {
			err = s.dispatcher.SendMessage(s, req)
		}
	case realtime.ActionStartTyping:
		var req realtime.TypingRequest
		if err = json.Unmarshal(frame.Data, &req); err == nil {
			err = s.dispatcher.StartTyping(s, req)
		}
	case realtime.ActionStopTyping:
		var req realtime.TypingRequest
		if err = json.Unmarshal(frame.Data, &req); err == nil {
			err = s.dispatcher.StopTyping(s, req)
		}
	case realtime.ActionStatusUpdate:
		var req realtime.StatusUpdateRequest
		if err = json.Unmarshal(frame.Data, &req); err == nil {
			_, err = s.dispatcher.StatusUpdate(ctx, s, req)
		}
	case realtime.ActionAssignLGU:
		var req realtime.AssignLGURequest
		if err = json.Unmarshal(frame.Data, &req); err == nil {
			err = s.dispatcher.AssignLGU(ctx, s, req)
		}
	case realtime.ActionGetOnlineUsers:
		var payload struct {
			IncidentID string `json:"incident_id"`
		}
		if err = json.Unmarshal(frame.Data, &payload); err == nil {
			err = s.dispatcher.OnlineUsers(s, payload.IncidentID)
		}
	default:
		err = fmt.Errorf("unknown event %q", frame.Event)
	}

	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": s.id,
			"event":      frame.Event,
		}).Warn("Failed to handle inbound frame")
		s.sendError(err.Error())
	}
}

// writePump пишет события из канала send в сокет и поддерживает ping
func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт читающим насосом, закрываем сокет
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				s.logger.WithError(err).WithField("session_id", s.id).Warn("Failed to encode outbound event")
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
