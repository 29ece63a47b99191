package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_coordination_system/internal/models"
)

const (
	webhookQueueKey = "webhook_events"
)

// Action - тип события жизненного цикла инцидента для внешних потребителей
type Action string

const (
	ActionCreated       Action = "incident.created"
	ActionStatusChanged Action = "incident.status_changed"
	ActionLguAssigned   Action = "incident.lgu_assigned"
)

// IncidentEvent - полезная нагрузка вебхука. Долговечное дополнение к
// best-effort рассылке по комнатам: внешние системы LGU получают
// подтвержденные изменения даже без открытого сокета.
type IncidentEvent struct {
	Action    Action           `json:"action"`
	LguCode   string           `json:"lgu_code"`
	Timestamp time.Time        `json:"timestamp"`
	Incident  *models.Incident `json:"incident"`
}

// NotificationPublisher - интерфейс для публикации событий инцидентов
type NotificationPublisher interface {
	Publish(ctx context.Context, event IncidentEvent) error
}

// RedisNotificationPublisher - реализация NotificationPublisher поверх очереди Redis
type RedisNotificationPublisher struct {
	redisClient *redis.Client
}

// NewRedisNotificationPublisher создает новый RedisNotificationPublisher
func NewRedisNotificationPublisher(client *redis.Client) *RedisNotificationPublisher {
	return &RedisNotificationPublisher{
		redisClient: client,
	}
}

// Publish публикует событие инцидента в очередь Redis
func (p *RedisNotificationPublisher) Publish(ctx context.Context, event IncidentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH в левую часть списка, воркер извлекает BRPOP с правой
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}
