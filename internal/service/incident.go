package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_coordination_system/internal/access"
	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/lifecycle"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/shenikar/emergency_coordination_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с хранилищем инцидентов.
// Запросы списков принимают область видимости, чтобы фильтр юрисдикции
// применялся на уровне запроса, а не постфактум.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	Update(ctx context.Context, incident *models.Incident, prevUpdatedAt time.Time) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, scope access.Scope, filter models.IncidentFilter) ([]*models.Incident, error)
	CountByStatus(ctx context.Context, scope access.Scope) (map[models.Status]int, error)

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт бизнес-логики управления инцидентами
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, actor models.Identity, filter models.IncidentFilter) ([]*models.Incident, error)
	Transition(ctx context.Context, actor models.Identity, id uuid.UUID, req lifecycle.TransitionRequest) (*models.Incident, []lifecycle.Event, error)
	AssignLgu(ctx context.Context, actor models.Identity, id uuid.UUID, lguCode string) (*models.Incident, error)
	DeleteIncident(ctx context.Context, actor models.Identity, id uuid.UUID) error
	GetStats(ctx context.Context, actor models.Identity) (map[models.Status]int, error)
}

type incidentService struct {
	repo      IncidentRepository
	publisher webhook.NotificationPublisher
	logger    *logrus.Logger
	locks     *keyedMutex
	now       func() time.Time
}

// NewIncidentService создает сервис инцидентов
func NewIncidentService(repo IncidentRepository, publisher webhook.NotificationPublisher, logger *logrus.Logger) IncidentService {
	return &incidentService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateIncident валидирует и создает запись об инциденте
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "CreateIncident",
		"lgu_code": incident.LguCode,
		"type":     incident.EmergencyType,
	})
	log.Info("Attempting to create a new incident")

	if incident.LguCode == "" {
		return fmt.Errorf("service: lgu code is required: %w", apperrors.ErrValidation)
	}
	if incident.UserName == "" || incident.UserPhone == "" {
		return fmt.Errorf("service: reporter name and phone are required: %w", apperrors.ErrValidation)
	}
	// Запись с неконечными координатами отклоняется при создании
	if !incident.Location.Finite() {
		return fmt.Errorf("service: coordinates must be finite numbers: %w", apperrors.ErrValidation)
	}
	if !models.ValidEmergencyType(incident.EmergencyType) {
		return fmt.Errorf("service: unknown emergency type %q: %w", incident.EmergencyType, apperrors.ErrValidation)
	}
	if incident.Severity == "" {
		incident.Severity = models.SeverityMedium
	}
	if !models.ValidSeverity(incident.Severity) {
		return fmt.Errorf("service: unknown severity %q: %w", incident.Severity, apperrors.ErrValidation)
	}

	incident.Status = models.StatusPending
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, incident.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.publish(ctx, webhook.ActionCreated, incident)

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return nil
}

// GetIncident возвращает инцидент по ID в пределах области видимости вызывающего
func (s *incidentService) GetIncident(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	scope, err := access.ResolveScope(actor.Role, actor.LguCode)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	if cached, err := s.repo.GetIncidentFromCache(ctx, id); err != nil {
		log.WithError(err).Warn("Incident cache read failed, falling back to store")
	} else if cached != nil {
		if !scope.Allows(cached.LguCode) {
			return nil, fmt.Errorf("service: incident %s is outside caller scope: %w", id, apperrors.ErrAccessDenied)
		}
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}
	if !scope.Allows(incident.LguCode) {
		return nil, fmt.Errorf("service: incident %s is outside caller scope: %w", id, apperrors.ErrAccessDenied)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to set incident cache")
	}
	return incident, nil
}

// ListIncidents возвращает инциденты в пределах области видимости вызывающего
func (s *incidentService) ListIncidents(ctx context.Context, actor models.Identity, filter models.IncidentFilter) ([]*models.Incident, error) {
	scope, err := access.ResolveScope(actor.Role, actor.LguCode)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})

	incidents, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// Transition переводит инцидент в целевой статус через машину состояний.
// Мутации одного инцидента сериализуются ключевым мьютексом: конкурирующий
// переход увидит уже обновленное состояние и будет отклонен машиной.
func (s *incidentService) Transition(ctx context.Context, actor models.Identity, id uuid.UUID, req lifecycle.TransitionRequest) (*models.Incident, []lifecycle.Event, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Transition",
		"incident_id": id,
		"target":      req.Target,
	})

	scope, err := access.ResolveScope(actor.Role, actor.LguCode)
	if err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to load incident for transition")
		return nil, nil, fmt.Errorf("service: could not load incident: %w", err)
	}
	if !scope.Allows(incident.LguCode) {
		return nil, nil, fmt.Errorf("service: incident %s is outside caller scope: %w", id, apperrors.ErrAccessDenied)
	}

	prevUpdatedAt := incident.UpdatedAt
	events, err := lifecycle.Apply(incident, req, s.now())
	if err != nil {
		log.WithError(err).Warn("Transition rejected by state machine")
		return nil, nil, fmt.Errorf("service: %w", err)
	}

	// Рассылка возможна только после подтвержденной записи, поэтому отказ
	// сохранения не возвращает событий вызывающему
	if err := s.repo.Update(ctx, incident, prevUpdatedAt); err != nil {
		log.WithError(err).Error("Failed to persist incident transition")
		return nil, nil, fmt.Errorf("service: could not persist transition: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.publish(ctx, webhook.ActionStatusChanged, incident)

	log.WithField("status", incident.Status).Info("Incident transition persisted")
	return incident, events, nil
}

// AssignLgu передает инцидент другой юрисдикции.
// Целевой LGU должен входить в область видимости вызывающего.
func (s *incidentService) AssignLgu(ctx context.Context, actor models.Identity, id uuid.UUID, lguCode string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AssignLgu",
		"incident_id": id,
		"lgu_code":    lguCode,
	})

	if lguCode == "" {
		return nil, fmt.Errorf("service: lgu code is required: %w", apperrors.ErrValidation)
	}
	scope, err := access.ResolveScope(actor.Role, actor.LguCode)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if !scope.Allows(lguCode) {
		return nil, fmt.Errorf("service: lgu %q is outside caller scope: %w", lguCode, apperrors.ErrAccessDenied)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to load incident for lgu assignment")
		return nil, fmt.Errorf("service: could not load incident: %w", err)
	}

	prevUpdatedAt := incident.UpdatedAt
	incident.LguCode = lguCode
	incident.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, incident, prevUpdatedAt); err != nil {
		log.WithError(err).Error("Failed to persist lgu assignment")
		return nil, fmt.Errorf("service: could not persist lgu assignment: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.publish(ctx, webhook.ActionLguAssigned, incident)

	log.Info("Incident assigned to lgu")
	return incident, nil
}

// DeleteIncident - жесткое удаление в обход машины состояний.
// Административное переопределение, доступно только общесистемной роли.
func (s *incidentService) DeleteIncident(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DeleteIncident",
		"incident_id": id,
	})

	if actor.Role != models.RoleAdmin {
		log.WithField("role", actor.Role).Warn("Non-admin attempted hard delete")
		return fmt.Errorf("service: hard delete requires admin role: %w", apperrors.ErrAccessDenied)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.HardDelete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident deleted")
	return nil
}

// GetStats возвращает количества инцидентов по статусам в пределах области видимости
func (s *incidentService) GetStats(ctx context.Context, actor models.Identity) (map[models.Status]int, error) {
	scope, err := access.ResolveScope(actor.Role, actor.LguCode)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	counts, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count incidents by status")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}
	return counts, nil
}

// publish ставит событие в очередь вебхуков. Мутация уже подтверждена,
// поэтому отказ очереди логируется и не проваливает операцию.
func (s *incidentService) publish(ctx context.Context, action webhook.Action, incident *models.Incident) {
	event := webhook.IncidentEvent{
		Action:    action,
		LguCode:   incident.LguCode,
		Timestamp: s.now(),
		Incident:  incident,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"incident_id": incident.ID,
			"action":      action,
		}).Warn("Failed to enqueue webhook event")
	}
}
