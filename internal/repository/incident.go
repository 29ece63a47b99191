package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_coordination_system/internal/access"
	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/shenikar/emergency_coordination_system/internal/service"
)

const incidentColumns = `
	id,
	lgu_code,
	user_id,
	user_name,
	user_phone,
	ST_X(location::geometry) as longitude,
	ST_Y(location::geometry) as latitude,
	accuracy_meters,
	emergency_type,
	severity,
	status,
	description,
	responder_id,
	responder_name,
	acknowledge_details,
	response_details,
	resolved_at,
	created_at,
	updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			lgu_code, user_id, user_name, user_phone,
			location, accuracy_meters,
			emergency_type, severity, status, description
		)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.LguCode,
		incident.UserID,
		incident.UserName,
		incident.UserPhone,
		incident.Location.Longitude,
		incident.Location.Latitude,
		incident.Location.AccuracyMeters,
		incident.EmergencyType,
		incident.Severity,
		incident.Status,
		incident.Description,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// Update сохраняет инцидент с защитой от потерянного обновления:
// строка перезаписывается только если updated_at не изменился с момента чтения
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident, prevUpdatedAt time.Time) error {
	query := `
		UPDATE incidents SET
			lgu_code = $1,
			status = $2,
			responder_id = $3,
			responder_name = $4,
			acknowledge_details = $5,
			response_details = $6,
			resolved_at = $7,
			updated_at = $8
		WHERE id = $9 AND updated_at = $10;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		incident.LguCode,
		incident.Status,
		incident.ResponderID,
		incident.ResponderName,
		incident.AcknowledgeDetails,
		incident.ResponseDetails,
		incident.ResolvedAt,
		incident.UpdatedAt,
		incident.ID,
		prevUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}

	// RowsAffected() == 0 означает либо отсутствие строки, либо конкурентную
	// перезапись другим экземпляром сервиса - различаем повторным чтением
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1);`, incident.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check incident existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("incident with id %s not found for update: %w", incident.ID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("incident with id %s was modified concurrently: %w", incident.ID, apperrors.ErrTransientIO)
	}
	return nil
}

// HardDelete безвозвратно удаляет запись об инциденте
func (r *IncidentRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for delete: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// List возвращает инциденты области видимости с фильтрами и пагинацией
func (r *IncidentRepository) List(ctx context.Context, scope access.Scope, filter models.IncidentFilter) ([]*models.Incident, error) {
	var (
		conditions []string
		args       []interface{}
	)
	addCondition := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if !scope.All {
		addCondition("lgu_code", scope.LguCode)
	}
	if filter.Status != "" {
		addCondition("status", filter.Status)
	}
	if filter.EmergencyType != "" {
		addCondition("emergency_type", filter.EmergencyType)
	}
	if filter.Severity != "" {
		addCondition("severity", filter.Severity)
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// CountByStatus возвращает количество инцидентов по статусам в пределах области видимости
func (r *IncidentRepository) CountByStatus(ctx context.Context, scope access.Scope) (map[models.Status]int, error) {
	query := `SELECT status, COUNT(*) FROM incidents`
	var args []interface{}
	if !scope.All {
		query += ` WHERE lgu_code = $1`
		args = append(args, scope.LguCode)
	}
	query += ` GROUP BY status;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status models.Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error stats iteration: %w", err)
	}
	return counts, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := cacheKey(id)
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, cacheKey(incident.ID), val, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	if err := r.redisClient.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("cache:incident:%s", id.String())
}

// scanIncident читает одну строку инцидента в модель
func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.LguCode,
		&incident.UserID,
		&incident.UserName,
		&incident.UserPhone,
		&incident.Location.Longitude,
		&incident.Location.Latitude,
		&incident.Location.AccuracyMeters,
		&incident.EmergencyType,
		&incident.Severity,
		&incident.Status,
		&incident.Description,
		&incident.ResponderID,
		&incident.ResponderName,
		&incident.AcknowledgeDetails,
		&incident.ResponseDetails,
		&incident.ResolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}
