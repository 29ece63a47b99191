package lifecycle

import (
	"fmt"
	"time"

	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/models"
)

// Event - уведомление, которое вызывающий обязан разослать после успешного
// перехода. Машина состояний сама ничего не рассылает: она возвращает список
// событий, а рассылку выполняет диспетчер после подтвержденной записи в хранилище.
type Event string

const (
	// EventStatusChanged - комната инцидента должна получить новое состояние
	EventStatusChanged Event = "status-changed"
	// EventQueueUpdated - комната очереди LGU должна обновить дашборд
	EventQueueUpdated Event = "queue-updated"
)

// TransitionRequest - запрос на перевод инцидента в целевой статус
type TransitionRequest struct {
	Target        models.Status
	ResponderID   string
	ResponderName string

	// Поля подтверждения (acknowledge)
	Priority string
	Notes    string

	// Поля реагирования (respond)
	EstimatedArrival string
	Team             string
	Vehicle          string
	Equipment        string
	ResponseNotes    string
}

// Допустимые переходы. Из resolved и cancelled переходов нет.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:      {models.StatusAcknowledged, models.StatusResponding, models.StatusCancelled},
	models.StatusAcknowledged: {models.StatusResponding, models.StatusResolved, models.StatusCancelled},
	models.StatusResponding:   {models.StatusResolved, models.StatusCancelled},
	models.StatusResolved:     {},
	models.StatusCancelled:    {},
}

// CanTransition сообщает, достижим ли целевой статус из текущего
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Apply валидирует запрос и применяет переход к копии записи в памяти.
// При отказе запись остается нетронутой. Сохранение и рассылка - забота вызывающего.
func Apply(inc *models.Incident, req TransitionRequest, now time.Time) ([]Event, error) {
	if !models.ValidStatus(req.Target) {
		return nil, fmt.Errorf("lifecycle: unknown target status %q: %w", req.Target, apperrors.ErrValidation)
	}
	if !CanTransition(inc.Status, req.Target) {
		return nil, fmt.Errorf("lifecycle: %s -> %s: %w", inc.Status, req.Target, apperrors.ErrInvalidTransition)
	}

	switch req.Target {
	case models.StatusAcknowledged:
		if req.ResponderID == "" {
			return nil, fmt.Errorf("lifecycle: acknowledge requires responder identity: %w", apperrors.ErrValidation)
		}
		inc.AcknowledgeDetails = &models.AcknowledgeDetails{
			Priority:       req.Priority,
			Notes:          req.Notes,
			AcknowledgedBy: req.ResponderName,
			AcknowledgedAt: now,
		}
		assignResponder(inc, req)
	case models.StatusResponding:
		if req.ResponderID == "" {
			return nil, fmt.Errorf("lifecycle: respond requires responder identity: %w", apperrors.ErrValidation)
		}
		inc.ResponseDetails = &models.ResponseDetails{
			EstimatedArrival: req.EstimatedArrival,
			Team:             req.Team,
			Vehicle:          req.Vehicle,
			Equipment:        req.Equipment,
			Notes:            req.ResponseNotes,
			DispatchedAt:     now,
		}
		assignResponder(inc, req)
	case models.StatusResolved:
		resolvedAt := now
		inc.ResolvedAt = &resolvedAt
	case models.StatusCancelled:
		// Побочных эффектов нет: отменяющий не становится ответственным
	}

	inc.Status = req.Target
	inc.UpdatedAt = now

	return []Event{EventStatusChanged, EventQueueUpdated}, nil
}

// assignResponder назначает ответственного один раз, при подтверждении или
// реагировании. Последующие переходы назначение не очищают и не перезаписывают.
func assignResponder(inc *models.Incident, req TransitionRequest) {
	if inc.ResponderID == "" {
		inc.ResponderID = req.ResponderID
		inc.ResponderName = req.ResponderName
	}
}
