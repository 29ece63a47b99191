package realtime

import (
	"time"

	"github.com/shenikar/emergency_coordination_system/internal/models"
)

// Имена исходящих событий (словарь уровня провода, не зависит от транспорта)
const (
	EventNewMessage            = "newMessage"
	EventUserTyping            = "userTyping"
	EventUserStoppedTyping     = "userStoppedTyping"
	EventIncidentStatusChanged = "incidentStatusChanged"
	EventLguAssigned           = "lguAssigned"
	EventNewIncidentAssigned   = "newIncidentAssigned"
	EventOnlineUsers           = "onlineUsers"
	EventQueueUpdated          = "emergencyQueueUpdated"
	EventNewIncident           = "newIncident"
	EventError                 = "error"
)

// Имена входящих событий
const (
	ActionJoinIncident   = "joinIncident"
	ActionJoinLGU        = "joinLGU"
	ActionSendMessage    = "sendMessage"
	ActionStartTyping    = "startTyping"
	ActionStopTyping     = "stopTyping"
	ActionStatusUpdate   = "statusUpdate"
	ActionAssignLGU      = "assignLGU"
	ActionGetOnlineUsers = "getOnlineUsers"
)

// Event - исходящий кадр для подписчиков комнаты
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data,omitempty"`
}

// RoomIncident возвращает имя комнаты инцидента
func RoomIncident(incidentID string) string { return "incident:" + incidentID }

// RoomLGU возвращает имя комнаты очереди юрисдикции
func RoomLGU(lguCode string) string { return "lgu:" + lguCode }

// SendMessageRequest - входящий запрос на отправку сообщения в комнату инцидента
type SendMessageRequest struct {
	IncidentID string `json:"incident_id"`
	Text       string `json:"text"`
	Sender     string `json:"sender"`
	Role       string `json:"role"`
}

// TypingRequest - входящий индикатор набора текста
type TypingRequest struct {
	IncidentID string `json:"incident_id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
}

// StatusUpdateRequest - входящий запрос на смену статуса инцидента
type StatusUpdateRequest struct {
	IncidentID       string `json:"incident_id"`
	Status           string `json:"status"`
	Priority         string `json:"priority,omitempty"`
	Notes            string `json:"notes,omitempty"`
	EstimatedArrival string `json:"estimated_arrival,omitempty"`
	Team             string `json:"team,omitempty"`
	Vehicle          string `json:"vehicle,omitempty"`
	Equipment        string `json:"equipment,omitempty"`
}

// AssignLGURequest - входящий запрос на передачу инцидента юрисдикции
type AssignLGURequest struct {
	IncidentID string `json:"incident_id"`
	LguCode    string `json:"lgu_code"`
}

// TypingPayload - исходящий индикатор набора текста
type TypingPayload struct {
	IncidentID string `json:"incident_id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
}

// OnlineUsersPayload - ответ на getOnlineUsers, только запросившей сессии
type OnlineUsersPayload struct {
	IncidentID string `json:"incident_id"`
	Count      int    `json:"count"`
}

// LguAssignedPayload - уведомление комнаты инцидента о передаче юрисдикции
type LguAssignedPayload struct {
	IncidentID string    `json:"incident_id"`
	LguCode    string    `json:"lgu_code"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewIncidentAssignedPayload - уведомление очереди LGU о новом назначении
type NewIncidentAssignedPayload struct {
	IncidentID string           `json:"incident_id"`
	Incident   *models.Incident `json:"incident,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}
