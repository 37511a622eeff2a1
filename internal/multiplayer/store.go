package multiplayer

import (
	"context"
	"sync"
	"time"

	"github.com/vovakirdan/tui-battleships/internal/game"
)

// RoomRecord is the durable form of a room.
type RoomRecord struct {
	Code          RoomCode
	Snapshot      game.Snapshot
	Slots         [2]Slot
	RecentActions []string
	Version       uint64
	StartedAt     time.Time // zero until both fleets are ready
	UpdatedAt     time.Time
	FinishedAt    time.Time // zero unless the match is over
}

// RoomStore persists room records. LoadRoom returns (nil, nil) for an
// unknown code.
type RoomStore interface {
	LoadRoom(ctx context.Context, code RoomCode) (*RoomRecord, error)
	SaveRoom(ctx context.Context, rec *RoomRecord) error
	DeleteRoom(ctx context.Context, code RoomCode) error
	// DeleteExpired removes rooms untouched since idleBefore and finished
	// rooms that ended before finishedBefore.
	DeleteExpired(ctx context.Context, idleBefore, finishedBefore time.Time) (int, error)
}

// MemoryStore is an in-process RoomStore used for local play and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[RoomCode]RoomRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[RoomCode]RoomRecord)}
}

// LoadRoom returns a copy of the stored record.
func (m *MemoryStore) LoadRoom(_ context.Context, code RoomCode) (*RoomRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rooms[code]
	if !ok {
		return nil, nil
	}
	rec.RecentActions = append([]string(nil), rec.RecentActions...)
	return &rec, nil
}

// SaveRoom stores a copy of rec.
func (m *MemoryStore) SaveRoom(_ context.Context, rec *RoomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.RecentActions = append([]string(nil), rec.RecentActions...)
	m.rooms[rec.Code] = cp
	return nil
}

// DeleteRoom removes a record if present.
func (m *MemoryStore) DeleteRoom(_ context.Context, code RoomCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

// DeleteExpired implements RoomStore.
func (m *MemoryStore) DeleteExpired(_ context.Context, idleBefore, finishedBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for code, rec := range m.rooms {
		if expired(rec, idleBefore, finishedBefore) {
			delete(m.rooms, code)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored rooms.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func expired(rec RoomRecord, idleBefore, finishedBefore time.Time) bool {
	if rec.UpdatedAt.Before(idleBefore) {
		return true
	}
	return !rec.FinishedAt.IsZero() && rec.FinishedAt.Before(finishedBefore)
}

var _ RoomStore = (*MemoryStore)(nil)
