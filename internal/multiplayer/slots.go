package multiplayer

import (
	"time"

	"github.com/google/uuid"
)

// Slot is one player seat's session binding.
type Slot struct {
	Token    SessionToken
	LastSeen time.Time
}

// Free reports whether nobody holds the seat.
func (s Slot) Free() bool {
	return s.Token == ""
}

// SlotRegistry binds session tokens to the two player seats of a room.
// It is owned by a single room goroutine and is not safe for concurrent use.
type SlotRegistry struct {
	timeout  time.Duration
	slots    [2]Slot
	newToken func() SessionToken
}

// NewSlotRegistry creates a registry whose seats expire after timeout idle.
// A non-positive timeout disables expiry.
func NewSlotRegistry(timeout time.Duration, slots ...Slot) *SlotRegistry {
	r := &SlotRegistry{
		timeout:  timeout,
		newToken: func() SessionToken { return SessionToken(uuid.NewString()) },
	}
	copy(r.slots[:], slots)
	return r
}

// Expire frees seats idle longer than the timeout and returns them.
func (r *SlotRegistry) Expire(now time.Time) []PlayerID {
	if r.timeout <= 0 {
		return nil
	}
	var freed []PlayerID
	for i, s := range r.slots {
		if !s.Free() && now.Sub(s.LastSeen) > r.timeout {
			r.slots[i] = Slot{}
			freed = append(freed, PlayerID(i+1))
		}
	}
	return freed
}

// Resolve maps token to a seat. A known token keeps its seat; an unknown
// or empty one claims the first free seat with a freshly minted token.
// ErrRoomFull is returned when both seats are held by other tokens.
func (r *SlotRegistry) Resolve(token SessionToken, now time.Time) (PlayerID, SessionToken, error) {
	r.Expire(now)
	if p, ok := r.lookup(token); ok {
		r.Touch(p, now)
		return p, token, nil
	}
	for i, s := range r.slots {
		if s.Free() {
			minted := r.newToken()
			r.slots[i] = Slot{Token: minted, LastSeen: now}
			return PlayerID(i + 1), minted, nil
		}
	}
	return Spectator, "", ErrRoomFull
}

// Lookup returns the seat bound to token without claiming anything.
// Expired seats are freed first, so a stale token is not found.
func (r *SlotRegistry) Lookup(token SessionToken, now time.Time) (PlayerID, bool) {
	r.Expire(now)
	return r.lookup(token)
}

func (r *SlotRegistry) lookup(token SessionToken) (PlayerID, bool) {
	if token == "" {
		return Spectator, false
	}
	for i, s := range r.slots {
		if s.Token == token {
			return PlayerID(i + 1), true
		}
	}
	return Spectator, false
}

// Touch marks seat p as active at now.
func (r *SlotRegistry) Touch(p PlayerID, now time.Time) {
	if !p.IsPlayer() || r.slots[p.Index()].Free() {
		return
	}
	r.slots[p.Index()].LastSeen = now
}

// Release frees seat p.
func (r *SlotRegistry) Release(p PlayerID) {
	if p.IsPlayer() {
		r.slots[p.Index()] = Slot{}
	}
}

// Occupied reports which seats are held.
func (r *SlotRegistry) Occupied() [2]bool {
	return [2]bool{!r.slots[0].Free(), !r.slots[1].Free()}
}

// Slots returns a copy of both seats for persistence.
func (r *SlotRegistry) Slots() [2]Slot {
	return r.slots
}

// Clone returns an independent copy.
func (r *SlotRegistry) Clone() *SlotRegistry {
	c := *r
	return &c
}
