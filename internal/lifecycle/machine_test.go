package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingIncident() *models.Incident {
	now := time.Now().Add(-time.Minute)
	return &models.Incident{
		ID:            uuid.New(),
		LguCode:       "kidapawan",
		UserID:        "user-1",
		UserName:      "Juan",
		UserPhone:     "+63-900-000-0000",
		Location:      models.Location{Longitude: 125.05, Latitude: 7.01},
		EmergencyType: models.TypeFire,
		Severity:      models.SeverityCritical,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Перебор всех пар (текущий статус, целевой статус): успешны ровно разрешенные
func TestApply_TransitionTable(t *testing.T) {
	all := []models.Status{
		models.StatusPending,
		models.StatusAcknowledged,
		models.StatusResponding,
		models.StatusResolved,
		models.StatusCancelled,
	}
	allowed := map[models.Status]map[models.Status]bool{
		models.StatusPending:      {models.StatusAcknowledged: true, models.StatusResponding: true, models.StatusCancelled: true},
		models.StatusAcknowledged: {models.StatusResponding: true, models.StatusResolved: true, models.StatusCancelled: true},
		models.StatusResponding:   {models.StatusResolved: true, models.StatusCancelled: true},
		models.StatusResolved:     {},
		models.StatusCancelled:    {},
	}

	for _, from := range all {
		for _, to := range all {
			inc := newPendingIncident()
			inc.Status = from
			before := *inc

			events, err := Apply(inc, TransitionRequest{
				Target:        to,
				ResponderID:   "r1",
				ResponderName: "Responder One",
			}, time.Now())

			if allowed[from][to] {
				require.NoErrorf(t, err, "%s -> %s must be allowed", from, to)
				assert.Equal(t, to, inc.Status)
				assert.Equal(t, []Event{EventStatusChanged, EventQueueUpdated}, events)
				// Ответственный назначается только подтверждением или реагированием
				switch to {
				case models.StatusAcknowledged, models.StatusResponding:
					assert.Equal(t, "r1", inc.ResponderID)
				default:
					assert.Emptyf(t, inc.ResponderID, "%s -> %s must not assign a responder", from, to)
				}
			} else {
				require.Errorf(t, err, "%s -> %s must be rejected", from, to)
				assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
				// Запись остается нетронутой
				assert.Equal(t, before, *inc)
			}
		}
	}
}

func TestApply_UnknownStatus(t *testing.T) {
	inc := newPendingIncident()
	_, err := Apply(inc, TransitionRequest{Target: "escalated"}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, models.StatusPending, inc.Status)
}

func TestApply_AcknowledgeRequiresResponder(t *testing.T) {
	inc := newPendingIncident()
	_, err := Apply(inc, TransitionRequest{Target: models.StatusAcknowledged}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, models.StatusPending, inc.Status)
	assert.Nil(t, inc.AcknowledgeDetails)
}

func TestApply_AcknowledgeStampsDetails(t *testing.T) {
	inc := newPendingIncident()
	now := time.Now()

	_, err := Apply(inc, TransitionRequest{
		Target:        models.StatusAcknowledged,
		ResponderID:   "r1",
		ResponderName: "Responder One",
		Priority:      "high",
		Notes:         "crew notified",
	}, now)

	require.NoError(t, err)
	assert.Equal(t, "r1", inc.ResponderID)
	assert.Equal(t, "Responder One", inc.ResponderName)
	require.NotNil(t, inc.AcknowledgeDetails)
	assert.Equal(t, "high", inc.AcknowledgeDetails.Priority)
	assert.Equal(t, "Responder One", inc.AcknowledgeDetails.AcknowledgedBy)
	assert.Equal(t, now, inc.AcknowledgeDetails.AcknowledgedAt)
	assert.Equal(t, now, inc.UpdatedAt)
}

// Сценарий: critical fire в kidapawan проходит acknowledge -> respond -> resolve
func TestApply_FullLifecycle(t *testing.T) {
	inc := newPendingIncident()

	t1 := time.Now()
	_, err := Apply(inc, TransitionRequest{
		Target:        models.StatusAcknowledged,
		ResponderID:   "r1",
		ResponderName: "Responder One",
	}, t1)
	require.NoError(t, err)

	t2 := t1.Add(time.Minute)
	_, err = Apply(inc, TransitionRequest{
		Target:           models.StatusResponding,
		ResponderID:      "r1",
		ResponderName:    "Responder One",
		EstimatedArrival: "10 minutes",
		Team:             "alpha",
	}, t2)
	require.NoError(t, err)
	require.NotNil(t, inc.ResponseDetails)
	assert.Equal(t, "10 minutes", inc.ResponseDetails.EstimatedArrival)

	t3 := t2.Add(time.Minute)
	_, err = Apply(inc, TransitionRequest{Target: models.StatusResolved}, t3)
	require.NoError(t, err)

	assert.Equal(t, models.StatusResolved, inc.Status)
	assert.Equal(t, "r1", inc.ResponderID)
	require.NotNil(t, inc.ResolvedAt)
	assert.Equal(t, t3, *inc.ResolvedAt)
	// updatedAt монотонно растет по ходу переходов
	assert.True(t, t1.Before(t2) && t2.Before(t3))
	assert.Equal(t, t3, inc.UpdatedAt)
}

// cancel на уже resolved инциденте отклоняется, запись не меняется
func TestApply_CancelResolvedRejected(t *testing.T) {
	inc := newPendingIncident()
	inc.Status = models.StatusResolved
	before := *inc

	_, err := Apply(inc, TransitionRequest{Target: models.StatusCancelled}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, before, *inc)
}

// Отмена необработанного инцидента не записывает отменяющего как ответственного
func TestApply_CancelDoesNotAssignResponder(t *testing.T) {
	inc := newPendingIncident()

	_, err := Apply(inc, TransitionRequest{
		Target:        models.StatusCancelled,
		ResponderID:   "r1",
		ResponderName: "Responder One",
	}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, inc.Status)
	assert.Empty(t, inc.ResponderID)
	assert.Empty(t, inc.ResponderName)
}

// Назначенный ответственный не очищается последующими переходами
func TestApply_ResponderNeverCleared(t *testing.T) {
	inc := newPendingIncident()

	_, err := Apply(inc, TransitionRequest{
		Target:        models.StatusAcknowledged,
		ResponderID:   "r1",
		ResponderName: "Responder One",
	}, time.Now())
	require.NoError(t, err)

	_, err = Apply(inc, TransitionRequest{
		Target:        models.StatusResponding,
		ResponderID:   "r2",
		ResponderName: "Responder Two",
	}, time.Now())
	require.NoError(t, err)

	// Первое назначение сохраняется
	assert.Equal(t, "r1", inc.ResponderID)
	assert.Equal(t, "Responder One", inc.ResponderName)
}
