package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_coordination_system/internal/access"
	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/lifecycle"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/sirupsen/logrus"
)

// IncidentCoordinator - часть сервиса инцидентов, нужная диспетчеру.
// Мутации проходят через машину состояний и подтверждаются хранилищем
// до того, как диспетчер что-либо рассылает.
type IncidentCoordinator interface {
	Transition(ctx context.Context, actor models.Identity, id uuid.UUID, req lifecycle.TransitionRequest) (*models.Incident, []lifecycle.Event, error)
	AssignLgu(ctx context.Context, actor models.Identity, id uuid.UUID, lguCode string) (*models.Incident, error)
}

// Dispatcher - ядро pub/sub: принимает входящие действия клиентов, разрешает
// затронутые комнаты и рассылает исходящие события их подписчикам.
// Конструируется явно в composition root и передается транспортному адаптеру.
type Dispatcher struct {
	registry  *RoomRegistry
	incidents IncidentCoordinator
	logger    *logrus.Logger
}

// NewDispatcher создает диспетчер с собственным реестром комнат
func NewDispatcher(registry *RoomRegistry, incidents IncidentCoordinator, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		incidents: incidents,
		logger:    logger,
	}
}

// Registry возвращает реестр комнат диспетчера
func (d *Dispatcher) Registry() *RoomRegistry { return d.registry }

// JoinIncident подключает сессию к комнате инцидента. Без рассылки.
func (d *Dispatcher) JoinIncident(session Session, incidentID string) error {
	if incidentID == "" {
		return fmt.Errorf("dispatcher: incident id is required: %w", apperrors.ErrValidation)
	}
	d.registry.Join(RoomIncident(incidentID), session)
	d.logger.WithFields(logrus.Fields{
		"session_id":  session.ID(),
		"incident_id": incidentID,
	}).Debug("Session joined incident room")
	return nil
}

// JoinLGU подключает сессию к комнате очереди юрисдикции.
// Вход разрешен только вызывающим своей юрисдикции или административной роли.
func (d *Dispatcher) JoinLGU(session Session, lguCode string) error {
	if lguCode == "" {
		return fmt.Errorf("dispatcher: lgu code is required: %w", apperrors.ErrValidation)
	}

	identity := session.Identity()
	scope, err := access.ResolveScope(identity.Role, identity.LguCode)
	if err != nil {
		return fmt.Errorf("dispatcher: join lgu room: %w", err)
	}
	if !scope.Allows(lguCode) {
		return fmt.Errorf("dispatcher: lgu %q is outside caller scope: %w", lguCode, apperrors.ErrAccessDenied)
	}

	d.registry.Join(RoomLGU(lguCode), session)
	d.logger.WithFields(logrus.Fields{
		"session_id": session.ID(),
		"lgu_code":   lguCode,
	}).Debug("Session joined lgu queue room")
	return nil
}

// SendMessage штампует серверное время и рассылает сообщение участникам
// комнаты инцидента. Сообщение не сохраняется; рассылка в пустую комнату
// молча отбрасывается (at-most-once).
func (d *Dispatcher) SendMessage(session Session, req SendMessageRequest) error {
	if req.IncidentID == "" || req.Text == "" {
		return fmt.Errorf("dispatcher: incident id and text are required: %w", apperrors.ErrValidation)
	}

	sender := req.Sender
	role := models.Role(req.Role)
	if sender == "" {
		sender = session.Identity().Name
		role = session.Identity().Role
	}

	msg := models.ChatMessage{
		IncidentID: req.IncidentID,
		Sender:     sender,
		Role:       role,
		Text:       req.Text,
		Timestamp:  time.Now().UTC(),
	}
	d.broadcast(RoomIncident(req.IncidentID), Event{Name: EventNewMessage, Payload: msg}, "")
	return nil
}

// StartTyping рассылает индикатор набора всем в комнате, кроме отправителя
func (d *Dispatcher) StartTyping(session Session, req TypingRequest) error {
	if req.IncidentID == "" {
		return fmt.Errorf("dispatcher: incident id is required: %w", apperrors.ErrValidation)
	}
	d.broadcast(RoomIncident(req.IncidentID), Event{
		Name:    EventUserTyping,
		Payload: TypingPayload{IncidentID: req.IncidentID, UserID: req.UserID, UserName: req.UserName},
	}, session.ID())
	return nil
}

// StopTyping снимает индикатор набора, исключая отправителя
func (d *Dispatcher) StopTyping(session Session, req TypingRequest) error {
	if req.IncidentID == "" {
		return fmt.Errorf("dispatcher: incident id is required: %w", apperrors.ErrValidation)
	}
	d.broadcast(RoomIncident(req.IncidentID), Event{
		Name:    EventUserStoppedTyping,
		Payload: TypingPayload{IncidentID: req.IncidentID, UserID: req.UserID},
	}, session.ID())
	return nil
}

// StatusUpdate делегирует смену статуса машине состояний через сервис.
// Рассылка идет только после подтвержденной записи; отказ возвращается
// только вызывающему и до рассылки не доходит.
func (d *Dispatcher) StatusUpdate(ctx context.Context, session Session, req StatusUpdateRequest) (*models.Incident, error) {
	id, err := uuid.Parse(req.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: invalid incident id %q: %w", req.IncidentID, apperrors.ErrValidation)
	}

	identity := session.Identity()
	incident, events, err := d.incidents.Transition(ctx, identity, id, lifecycle.TransitionRequest{
		Target:           models.Status(req.Status),
		ResponderID:      identity.UserID,
		ResponderName:    identity.Name,
		Priority:         req.Priority,
		Notes:            req.Notes,
		EstimatedArrival: req.EstimatedArrival,
		Team:             req.Team,
		Vehicle:          req.Vehicle,
		Equipment:        req.Equipment,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: status update: %w", err)
	}

	for _, ev := range events {
		switch ev {
		case lifecycle.EventStatusChanged:
			d.broadcast(RoomIncident(req.IncidentID), Event{Name: EventIncidentStatusChanged, Payload: incident}, "")
		case lifecycle.EventQueueUpdated:
			if incident.LguCode != "" {
				d.broadcast(RoomLGU(incident.LguCode), Event{Name: EventQueueUpdated, Payload: incident}, "")
			}
		}
	}
	return incident, nil
}

// AssignLGU передает инцидент юрисдикции и уведомляет обе комнаты
func (d *Dispatcher) AssignLGU(ctx context.Context, session Session, req AssignLGURequest) error {
	id, err := uuid.Parse(req.IncidentID)
	if err != nil {
		return fmt.Errorf("dispatcher: invalid incident id %q: %w", req.IncidentID, apperrors.ErrValidation)
	}
	if req.LguCode == "" {
		return fmt.Errorf("dispatcher: lgu code is required: %w", apperrors.ErrValidation)
	}

	incident, err := d.incidents.AssignLgu(ctx, session.Identity(), id, req.LguCode)
	if err != nil {
		return fmt.Errorf("dispatcher: assign lgu: %w", err)
	}

	now := time.Now().UTC()
	d.broadcast(RoomIncident(req.IncidentID), Event{
		Name:    EventLguAssigned,
		Payload: LguAssignedPayload{IncidentID: req.IncidentID, LguCode: req.LguCode, Timestamp: now},
	}, "")
	d.broadcast(RoomLGU(req.LguCode), Event{
		Name:    EventNewIncidentAssigned,
		Payload: NewIncidentAssignedPayload{IncidentID: req.IncidentID, Incident: incident, Timestamp: now},
	}, "")
	return nil
}

// OnlineUsers возвращает размер комнаты инцидента только запросившей сессии
func (d *Dispatcher) OnlineUsers(session Session, incidentID string) error {
	return session.Send(Event{
		Name:    EventOnlineUsers,
		Payload: OnlineUsersPayload{IncidentID: incidentID, Count: d.registry.Count(RoomIncident(incidentID))},
	})
}

// NotifyNewIncident уведомляет очередь LGU о новой заявке.
// Вызывается HTTP-стороной после подтвержденного создания записи.
func (d *Dispatcher) NotifyNewIncident(incident *models.Incident) {
	if incident.LguCode == "" {
		return
	}
	room := RoomLGU(incident.LguCode)
	d.broadcast(room, Event{Name: EventNewIncident, Payload: incident}, "")
	d.broadcast(room, Event{Name: EventQueueUpdated, Payload: incident}, "")
}

// Disconnect снимает сессию со всех комнат. Привязан к разрыву транспорта.
func (d *Dispatcher) Disconnect(session Session) {
	d.registry.LeaveAll(session)
	d.logger.WithField("session_id", session.ID()).Debug("Session disconnected, rooms cleaned up")
}

// broadcast доставляет событие каждому участнику комнаты независимо:
// отказ одного получателя (полузакрытое соединение) логируется и пропускается.
func (d *Dispatcher) broadcast(room string, event Event, excludeSessionID string) {
	for _, member := range d.registry.MembersOf(room) {
		if member.ID() == excludeSessionID {
			continue
		}
		if err := member.Send(event); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"room":       room,
				"session_id": member.ID(),
				"event":      event.Name,
			}).Warn("Failed to deliver event to room member, skipping")
		}
	}
}
