package realtime

import "github.com/shenikar/emergency_coordination_system/internal/models"

// Session - живое подключение клиента, абстрагированное от транспорта.
// Реестр и диспетчер работают только через этот интерфейс, что позволяет
// тестировать ядро без живого сокета.
type Session interface {
	// ID возвращает уникальный идентификатор подключения
	ID() string
	// Identity возвращает атрибуты вызывающего, разрешенные на границе транспорта
	Identity() models.Identity
	// Send ставит событие в очередь отправки. Ошибка одного получателя
	// не должна прерывать доставку остальным участникам комнаты.
	Send(event Event) error
}
