package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession - ручная заглушка сессии для тестов реестра и диспетчера
type fakeSession struct {
	id       string
	identity models.Identity

	mu      sync.Mutex
	events  []Event
	sendErr error
}

func newFakeSession(id string, identity models.Identity) *fakeSession {
	return &fakeSession{id: id, identity: identity}
}

func (f *fakeSession) ID() string                { return f.id }
func (f *fakeSession) Identity() models.Identity { return f.identity }

func (f *fakeSession) Send(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSession) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestRegistry_JoinIdempotent(t *testing.T) {
	reg := NewRoomRegistry()
	s := newFakeSession("s1", models.Identity{})

	reg.Join("incident:abc", s)
	reg.Join("incident:abc", s)

	assert.Equal(t, 1, reg.Count("incident:abc"))
	require.Len(t, reg.MembersOf("incident:abc"), 1)
}

func TestRegistry_UnknownRoomIsEmpty(t *testing.T) {
	reg := NewRoomRegistry()
	assert.Empty(t, reg.MembersOf("incident:nope"))
	assert.Equal(t, 0, reg.Count("incident:nope"))
}

func TestRegistry_LeavePrunesEmptyRoom(t *testing.T) {
	reg := NewRoomRegistry()
	s := newFakeSession("s1", models.Identity{})

	reg.Join("incident:abc", s)
	reg.Leave("incident:abc", s)

	assert.Equal(t, 0, reg.Count("incident:abc"))
	// Комната удалена, память не растет от брошенных комнат
	reg.mu.RLock()
	_, exists := reg.rooms["incident:abc"]
	reg.mu.RUnlock()
	assert.False(t, exists)
}

// После отключения сессия не числится ни в одной комнате
func TestRegistry_LeaveAll(t *testing.T) {
	reg := NewRoomRegistry()
	s := newFakeSession("s1", models.Identity{})
	other := newFakeSession("s2", models.Identity{})

	reg.Join("incident:a", s)
	reg.Join("incident:b", s)
	reg.Join("lgu:kidapawan", s)
	reg.Join("incident:a", other)

	reg.LeaveAll(s)

	assert.Empty(t, reg.Rooms(s))
	for _, room := range []string{"incident:a", "incident:b", "lgu:kidapawan"} {
		for _, m := range reg.MembersOf(room) {
			assert.NotEqual(t, "s1", m.ID())
		}
	}
	// Чужие членства не задеты
	assert.Equal(t, 1, reg.Count("incident:a"))
}

// Конкурентные join/leave/broadcast не должны портить множества участников
func TestRegistry_ConcurrentChurn(t *testing.T) {
	reg := NewRoomRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSession(fmt.Sprintf("s%d", i), models.Identity{})
			room := fmt.Sprintf("incident:%d", i%5)
			reg.Join(room, s)
			reg.MembersOf(room)
			reg.LeaveAll(s)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, reg.Count(fmt.Sprintf("incident:%d", i)))
	}
}
