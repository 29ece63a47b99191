package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex сериализует мутации по идентификатору инцидента: конкурирующие
// переходы одного инцидента входят в критическую секцию по очереди, не
// задерживая переходы других инцидентов. Записи удаляются по счетчику
// ссылок, чтобы карта не росла от давно завершенных инцидентов.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock занимает мьютекс ключа и возвращает функцию освобождения
func (k *keyedMutex) Lock(id uuid.UUID) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
