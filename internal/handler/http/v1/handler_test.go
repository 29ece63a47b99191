package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/config"
	"github.com/shenikar/emergency_coordination_system/internal/lifecycle"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/shenikar/emergency_coordination_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testJWTSecret = "test-secret"

// fakeNotifier фиксирует уведомления о новых инцидентах
type fakeNotifier struct {
	notified []*models.Incident
}

func (f *fakeNotifier) NotifyNewIncident(incident *models.Incident) {
	f.notified = append(f.notified, incident)
}

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*mocks.MockIncidentService, *fakeNotifier, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)
	notifier := &fakeNotifier{}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		JWTSecret: testJWTSecret,
	}

	handler := NewHandler(mockService, notifier, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return mockService, notifier, router
}

// signToken выпускает валидный JWT для тестовой личности
func signToken(t *testing.T, identity models.Identity) string {
	t.Helper()
	claims := IdentityClaims{
		UserID:  identity.UserID,
		Name:    identity.Name,
		Role:    string(identity.Role),
		LguCode: identity.LguCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func authHeader(t *testing.T, identity models.Identity) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, identity)}
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func responderHeader(t *testing.T) map[string]string {
	return authHeader(t, models.Identity{UserID: "r1", Name: "Responder One", Role: models.RoleResponder, LguCode: "kidapawan"})
}

func adminHeader(t *testing.T) map[string]string {
	return authHeader(t, models.Identity{UserID: "a1", Name: "Admin", Role: models.RoleAdmin})
}

func validCreateRequest() CreateIncidentRequest {
	return CreateIncidentRequest{
		LguCode:       "kidapawan",
		UserID:        "user-1",
		UserName:      "Juan",
		UserPhone:     "+63-900-000-0000",
		Latitude:      7.01,
		Longitude:     125.05,
		EmergencyType: "fire",
		Severity:      "critical",
	}
}

func TestCreateIncident_Success(t *testing.T) {
	mockService, notifier, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := validCreateRequest()

	mockService.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = incidentID
			inc.Status = models.StatusPending
			inc.CreatedAt = time.Now()
			inc.UpdatedAt = inc.CreatedAt
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, reqBody.LguCode, resp.LguCode)

	// Подключенные сессии должны быть уведомлены о новом инциденте
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, incidentID, notifier.notified[0].ID)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"lgu_code": "kidapawan"`), responderHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	reqBody := validCreateRequest()
	reqBody.UserName = "" // Отсутствует имя заявителя

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'UserName' failed on the 'required' tag")
}

func TestCreateIncident_UnknownType(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	reqBody := validCreateRequest()
	reqBody.EmergencyType = "tsunami"

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "'oneof' tag")
}

func TestCreateIncident_ServiceError(t *testing.T) {
	mockService, notifier, router := newTestHandler(t)
	reqBody := validCreateRequest()
	serviceError := fmt.Errorf("service: could not create incident: %w", apperrors.ErrTransientIO)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Return(serviceError).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, notifier.notified) // Без подтвержденной записи уведомления нет
}

func TestGetIncident_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	expected := &models.Incident{
		ID:            incidentID,
		LguCode:       "kidapawan",
		UserName:      "Juan",
		EmergencyType: models.TypeFire,
		Severity:      models.SeverityCritical,
		Status:        models.StatusPending,
	}

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any(), incidentID).Return(expected, nil).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, responderHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "fire", resp.EmergencyType)
}

func TestGetIncident_InvalidID(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "GET", "/api/v1/incidents/invalid-uuid", nil, responderHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_NotFound(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	serviceError := fmt.Errorf("service: could not get incident: %w", apperrors.ErrNotFound)

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any(), incidentID).Return(nil, serviceError).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, responderHeader(t))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "incident not found")
}

func TestGetIncident_ForeignTenant(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	serviceError := fmt.Errorf("service: incident is outside caller scope: %w", apperrors.ErrAccessDenied)

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any(), incidentID).Return(nil, serviceError).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, responderHeader(t))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "access denied")
}

func TestListIncidents_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	expected := []*models.Incident{
		{ID: uuid.New(), LguCode: "kidapawan", Status: models.StatusPending},
		{ID: uuid.New(), LguCode: "kidapawan", Status: models.StatusResponding},
	}

	mockService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any(), models.IncidentFilter{Status: models.StatusPending, Page: 1, PageSize: 10}).
		Return(expected, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=1&pageSize=10&status=pending", nil, responderHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
}

func TestUpdateStatus_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := UpdateStatusRequest{
		Status:   "acknowledged",
		Priority: "high",
		Notes:    "team notified",
	}

	mockService.EXPECT().
		Transition(gomock.Any(), gomock.Any(), incidentID, gomock.Any()).
		DoAndReturn(func(_ context.Context, actor models.Identity, _ uuid.UUID, req lifecycle.TransitionRequest) (*models.Incident, []lifecycle.Event, error) {
			// Ответственный берется из токена, а не из тела запроса
			assert.Equal(t, "r1", req.ResponderID)
			assert.Equal(t, models.StatusAcknowledged, req.Target)
			return &models.Incident{
				ID:            incidentID,
				LguCode:       "kidapawan",
				Status:        models.StatusAcknowledged,
				ResponderID:   "r1",
				ResponderName: "Responder One",
			}, []lifecycle.Event{lifecycle.EventStatusChanged, lifecycle.EventQueueUpdated}, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/incidents/%s/status", incidentID.String()), bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", resp.Status)
	assert.Equal(t, "r1", resp.ResponderID)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := UpdateStatusRequest{Status: "cancelled"}
	serviceError := fmt.Errorf("service: transition from resolved to cancelled: %w", apperrors.ErrInvalidTransition)

	mockService.EXPECT().
		Transition(gomock.Any(), gomock.Any(), incidentID, gomock.Any()).
		Return(nil, nil, serviceError).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/incidents/%s/status", incidentID.String()), bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	reqBody := UpdateStatusRequest{Status: "archived"}

	mockService.EXPECT().Transition(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/incidents/%s/status", uuid.New()), bytes.NewBuffer(bodyBytes), responderHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignLgu_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := AssignLguRequest{LguCode: "davao"}

	mockService.EXPECT().
		AssignLgu(gomock.Any(), gomock.Any(), incidentID, "davao").
		Return(&models.Incident{ID: incidentID, LguCode: "davao", Status: models.StatusPending}, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/lgu", incidentID.String()), bytes.NewBuffer(bodyBytes), adminHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "davao", resp.LguCode)
}

func TestDeleteIncident_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().DeleteIncident(gomock.Any(), gomock.Any(), incidentID).Return(nil).Times(1)

	w := makeRequest(router, "DELETE", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, adminHeader(t))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteIncident_Forbidden(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incidentID := uuid.New()
	serviceError := fmt.Errorf("service: hard delete requires admin role: %w", apperrors.ErrAccessDenied)

	mockService.EXPECT().DeleteIncident(gomock.Any(), gomock.Any(), incidentID).Return(serviceError).Times(1)

	w := makeRequest(router, "DELETE", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, responderHeader(t))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "access denied")
}

func TestGetStats_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	expected := map[models.Status]int{
		models.StatusPending:  3,
		models.StatusResolved: 7,
	}

	mockService.EXPECT().GetStats(gomock.Any(), gomock.Any()).Return(expected, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/stats", nil, responderHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Counts["pending"])
	assert.Equal(t, 7, resp.Counts["resolved"])
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestJWTAuthMiddleware_MissingToken(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil) // Нет токена
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authorization token required")
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestJWTAuthMiddleware_WrongSecret(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	claims := IdentityClaims{
		UserID: "r1",
		Role:   string(models.RoleResponder),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
