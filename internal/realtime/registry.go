package realtime

import "sync"

// RoomRegistry отображает логические комнаты на множество подключенных сессий.
// Комнаты создаются лениво при первом входе и удаляются, как только пустеют.
// Одна RWMutex на весь реестр: рассылка читает конкурентно, вход/выход пишут.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Session
	// Обратный индекс сессия -> комнаты, чтобы LeaveAll не обходил весь реестр
	joined map[string]map[string]struct{}
}

// NewRoomRegistry создает пустой реестр комнат
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]map[string]Session),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join добавляет сессию в комнату. Повторный вход в ту же комнату - no-op.
func (r *RoomRegistry) Join(room string, session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Session)
		r.rooms[room] = members
	}
	members[session.ID()] = session

	set, ok := r.joined[session.ID()]
	if !ok {
		set = make(map[string]struct{})
		r.joined[session.ID()] = set
	}
	set[room] = struct{}{}
}

// Leave убирает сессию из комнаты; опустевшая комната удаляется из реестра
func (r *RoomRegistry) Leave(room string, session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, session.ID())
}

// LeaveAll убирает сессию из всех комнат. Вызывается ровно один раз при
// разрыве подключения, в том числе аварийном: очистка привязана к транспорту.
func (r *RoomRegistry) LeaveAll(session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[session.ID()] {
		r.leaveLocked(room, session.ID())
	}
	delete(r.joined, session.ID())
}

func (r *RoomRegistry) leaveLocked(room, sessionID string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	if set, ok := r.joined[sessionID]; ok {
		delete(set, room)
		if len(set) == 0 {
			delete(r.joined, sessionID)
		}
	}
}

// MembersOf возвращает снимок участников комнаты.
// Для неизвестной комнаты - пустой срез, а не ошибка.
func (r *RoomRegistry) MembersOf(room string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Session, 0, len(r.rooms[room]))
	for _, s := range r.rooms[room] {
		members = append(members, s)
	}
	return members
}

// Count возвращает число участников комнаты
func (r *RoomRegistry) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Rooms возвращает имена комнат, в которых состоит сессия
func (r *RoomRegistry) Rooms(session Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.joined[session.ID()]))
	for room := range r.joined[session.ID()] {
		rooms = append(rooms, room)
	}
	return rooms
}
