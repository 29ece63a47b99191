package models

import "time"

// Роль вызывающего в системе
type Role string

const (
	// RoleAdmin - общесистемная роль, видит все юрисдикции
	RoleAdmin Role = "admin"
	// RoleResponder - диспетчер/реагирующий, привязан к своему LGU
	RoleResponder Role = "responder"
	// RoleUser - заявитель
	RoleUser Role = "user"
)

// Identity - разрешенные атрибуты вызывающего, выданные провайдером учетных записей.
// Само подтверждение учетных данных происходит вне ядра.
type Identity struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	LguCode string `json:"lgu_code,omitempty"`
}

// ChatMessage - эфемерное сообщение чата комнаты инцидента.
// Не сохраняется: доставка "как есть" текущим подписчикам комнаты.
type ChatMessage struct {
	IncidentID string    `json:"incident_id"`
	Sender     string    `json:"sender"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}
