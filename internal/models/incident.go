package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Тип чрезвычайной ситуации (закрытый перечень)
type EmergencyType string

const (
	TypeMedical   EmergencyType = "medical"
	TypeFire      EmergencyType = "fire"
	TypePolice    EmergencyType = "police"
	TypeAccident  EmergencyType = "accident"
	TypeLandslide EmergencyType = "landslide"
	TypeFlood     EmergencyType = "flood"
	TypeAmbulance EmergencyType = "ambulance"
)

// Серьезность инцидента
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Статус жизненного цикла инцидента
type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusResponding   Status = "responding"
	StatusResolved     Status = "resolved"
	StatusCancelled    Status = "cancelled"
)

// ValidEmergencyType проверяет, что тип входит в закрытый перечень
func ValidEmergencyType(t EmergencyType) bool {
	switch t {
	case TypeMedical, TypeFire, TypePolice, TypeAccident, TypeLandslide, TypeFlood, TypeAmbulance:
		return true
	}
	return false
}

// ValidSeverity проверяет значение серьезности
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidStatus проверяет значение статуса
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusResponding, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// Location - географическая точка инцидента.
// Координаты обязаны быть конечными числами: запись с NaN/Inf отклоняется при создании.
type Location struct {
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
	AccuracyMeters float64 `json:"accuracy_meters,omitempty"`
}

// Finite сообщает, являются ли обе координаты конечными числами
func (l Location) Finite() bool {
	finite := func(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
	return finite(l.Longitude) && finite(l.Latitude)
}

// AcknowledgeDetails - структурированные данные подтверждения инцидента диспетчером
type AcknowledgeDetails struct {
	Priority       string    `json:"priority,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// ResponseDetails - структурированные данные о выезде группы реагирования
type ResponseDetails struct {
	EstimatedArrival string    `json:"estimated_arrival,omitempty"`
	Team             string    `json:"team,omitempty"`
	Vehicle          string    `json:"vehicle,omitempty"`
	Equipment        string    `json:"equipment,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	DispatchedAt     time.Time `json:"dispatched_at"`
}

// IncidentFilter - необязательные фильтры списка инцидентов
type IncidentFilter struct {
	Status        Status
	EmergencyType EmergencyType
	Severity      Severity
	Page          int
	PageSize      int
}

// Incident - запись о чрезвычайной ситуации.
// LguCode обязателен и ограничивает видимость записи рамками юрисдикции.
type Incident struct {
	ID                 uuid.UUID           `json:"id"`
	LguCode            string              `json:"lgu_code"`
	UserID             string              `json:"user_id"`
	UserName           string              `json:"user_name"`
	UserPhone          string              `json:"user_phone"`
	Location           Location            `json:"location"`
	EmergencyType      EmergencyType       `json:"emergency_type"`
	Severity           Severity            `json:"severity"`
	Status             Status              `json:"status"`
	Description        string              `json:"description,omitempty"`
	ResponderID        string              `json:"responder_id,omitempty"`
	ResponderName      string              `json:"responder_name,omitempty"`
	AcknowledgeDetails *AcknowledgeDetails `json:"acknowledge_details,omitempty"`
	ResponseDetails    *ResponseDetails    `json:"response_details,omitempty"`
	ResolvedAt         *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}
