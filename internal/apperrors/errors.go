package apperrors

import "errors"

// Таксономия ошибок ядра. Слои оборачивают их через fmt.Errorf("...: %w", err),
// граница (HTTP/WS) сопоставляет через errors.Is для выбора ответа.
var (
	// ErrAccessDenied - отсутствует или недостаточна привязка к юрисдикции
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidTransition - машина состояний отклонила запрошенный переход
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound - инцидент неизвестен хранилищу
	ErrNotFound = errors.New("incident not found")
	// ErrValidation - некорректные координаты или отсутствующие обязательные поля
	ErrValidation = errors.New("validation failed")
	// ErrTransientIO - хранилище временно недоступно; диспетчер не повторяет запрос сам
	ErrTransientIO = errors.New("transient store error")
)
