package v1

import (
	"github.com/shenikar/emergency_coordination_system/internal/lifecycle"
	"github.com/shenikar/emergency_coordination_system/internal/models"
)

// DTOToIncidentModel преобразует DTO создания в доменную модель
func DTOToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		LguCode:   dto.LguCode,
		UserID:    dto.UserID,
		UserName:  dto.UserName,
		UserPhone: dto.UserPhone,
		Location: models.Location{
			Longitude:      dto.Longitude,
			Latitude:       dto.Latitude,
			AccuracyMeters: dto.AccuracyMeters,
		},
		EmergencyType: models.EmergencyType(dto.EmergencyType),
		Severity:      models.Severity(dto.Severity),
		Description:   dto.Description,
	}
}

// DTOToTransitionRequest преобразует DTO смены статуса в запрос перехода.
// Ответственный берется из личности вызывающего, а не из тела запроса.
func DTOToTransitionRequest(dto UpdateStatusRequest, actor models.Identity) lifecycle.TransitionRequest {
	return lifecycle.TransitionRequest{
		Target:           models.Status(dto.Status),
		ResponderID:      actor.UserID,
		ResponderName:    actor.Name,
		Priority:         dto.Priority,
		Notes:            dto.Notes,
		EstimatedArrival: dto.EstimatedArrival,
		Team:             dto.Team,
		Vehicle:          dto.Vehicle,
		Equipment:        dto.Equipment,
		ResponseNotes:    dto.ResponseNotes,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	resp := &IncidentResponse{
		ID:             model.ID,
		LguCode:        model.LguCode,
		UserID:         model.UserID,
		UserName:       model.UserName,
		UserPhone:      model.UserPhone,
		Latitude:       model.Location.Latitude,
		Longitude:      model.Location.Longitude,
		AccuracyMeters: model.Location.AccuracyMeters,
		EmergencyType:  string(model.EmergencyType),
		Severity:       string(model.Severity),
		Status:         string(model.Status),
		Description:    model.Description,
		ResponderID:    model.ResponderID,
		ResponderName:  model.ResponderName,
		ResolvedAt:     model.ResolvedAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if model.AcknowledgeDetails != nil {
		resp.AcknowledgeDetails = &AcknowledgeDetailsResponse{
			Priority:       model.AcknowledgeDetails.Priority,
			Notes:          model.AcknowledgeDetails.Notes,
			AcknowledgedBy: model.AcknowledgeDetails.AcknowledgedBy,
			AcknowledgedAt: model.AcknowledgeDetails.AcknowledgedAt,
		}
	}
	if model.ResponseDetails != nil {
		resp.ResponseDetails = &ResponseDetailsResponse{
			EstimatedArrival: model.ResponseDetails.EstimatedArrival,
			Team:             model.ResponseDetails.Team,
			Vehicle:          model.ResponseDetails.Vehicle,
			Equipment:        model.ResponseDetails.Equipment,
			Notes:            model.ResponseDetails.Notes,
			DispatchedAt:     model.ResponseDetails.DispatchedAt,
		}
	}
	return resp
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// StatsToResponse преобразует счетчики по статусам в DTO
func StatsToResponse(counts map[models.Status]int) StatsResponse {
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return StatsResponse{Counts: out}
}
