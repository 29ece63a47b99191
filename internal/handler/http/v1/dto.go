package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	LguCode        string  `json:"lgu_code" validate:"required,min=2,max=64"`
	UserID         string  `json:"user_id" validate:"required"`
	UserName       string  `json:"user_name" validate:"required,min=2,max=255"`
	UserPhone      string  `json:"user_phone" validate:"required,min=5,max=32"`
	Latitude       float64 `json:"latitude" validate:"required,latitude"`
	Longitude      float64 `json:"longitude" validate:"required,longitude"`
	AccuracyMeters float64 `json:"accuracy_meters,omitempty" validate:"gte=0"`
	EmergencyType  string  `json:"emergency_type" validate:"required,oneof=medical fire police accident landslide flood ambulance"`
	Severity       string  `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Description    string  `json:"description,omitempty"`
}

// UpdateStatusRequest DTO для перевода инцидента в новый статус
// @Description DTO для перевода инцидента в новый статус
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending acknowledged responding resolved cancelled"`

	// Данные подтверждения (статус acknowledged)
	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Notes    string `json:"notes,omitempty"`

	// Данные о выезде (статус responding)
	EstimatedArrival string `json:"estimated_arrival,omitempty"`
	Team             string `json:"team,omitempty"`
	Vehicle          string `json:"vehicle,omitempty"`
	Equipment        string `json:"equipment,omitempty"`
	ResponseNotes    string `json:"response_notes,omitempty"`
}

// AssignLguRequest DTO для передачи инцидента другой юрисдикции
// @Description DTO для передачи инцидента другой юрисдикции
type AssignLguRequest struct {
	LguCode string `json:"lgu_code" validate:"required,min=2,max=64"`
}

// AcknowledgeDetailsResponse - данные подтверждения в ответе API
type AcknowledgeDetailsResponse struct {
	Priority       string    `json:"priority,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// ResponseDetailsResponse - данные о выезде в ответе API
type ResponseDetailsResponse struct {
	EstimatedArrival string    `json:"estimated_arrival,omitempty"`
	Team             string    `json:"team,omitempty"`
	Vehicle          string    `json:"vehicle,omitempty"`
	Equipment        string    `json:"equipment,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	DispatchedAt     time.Time `json:"dispatched_at"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                 uuid.UUID                   `json:"id"`
	LguCode            string                      `json:"lgu_code"`
	UserID             string                      `json:"user_id"`
	UserName           string                      `json:"user_name"`
	UserPhone          string                      `json:"user_phone"`
	Latitude           float64                     `json:"latitude"`
	Longitude          float64                     `json:"longitude"`
	AccuracyMeters     float64                     `json:"accuracy_meters,omitempty"`
	EmergencyType      string                      `json:"emergency_type"`
	Severity           string                      `json:"severity"`
	Status             string                      `json:"status"`
	Description        string                      `json:"description,omitempty"`
	ResponderID        string                      `json:"responder_id,omitempty"`
	ResponderName      string                      `json:"responder_name,omitempty"`
	AcknowledgeDetails *AcknowledgeDetailsResponse `json:"acknowledge_details,omitempty"`
	ResponseDetails    *ResponseDetailsResponse    `json:"response_details,omitempty"`
	ResolvedAt         *time.Time                  `json:"resolved_at,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

// StatsResponse DTO для ответа со статистикой по статусам
// @Description DTO для ответа со статистикой по статусам
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}
