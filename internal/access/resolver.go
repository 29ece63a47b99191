package access

import (
	"fmt"

	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/models"
)

// Scope - фильтр видимости, вычисленный из (роль, код LGU) вызывающего.
// Пустой LguCode при All=true означает неограниченный доступ.
type Scope struct {
	All     bool
	LguCode string
}

// Allows сообщает, попадает ли запись с данным кодом LGU в область видимости
func (s Scope) Allows(lguCode string) bool {
	return s.All || s.LguCode == lguCode
}

// ResolveScope вычисляет фильтр видимости для вызывающего.
// Единая политика для списков инцидентов, пользователей и авторизации входа
// в комнату очереди LGU. Чистая функция от (роль, код LGU).
//
// Отсутствие привязки к LGU у не-административной роли - это ошибка
// конфигурации учетной записи, а не "пустой результат".
func ResolveScope(role models.Role, lguCode string) (Scope, error) {
	if role == models.RoleAdmin {
		return Scope{All: true}, nil
	}
	if lguCode == "" {
		return Scope{}, fmt.Errorf("access: role %q has no lgu assignment: %w", role, apperrors.ErrAccessDenied)
	}
	return Scope{LguCode: lguCode}, nil
}
