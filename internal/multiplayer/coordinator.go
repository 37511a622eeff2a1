package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-battleships/internal/game"
)

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	Room              RoomConfig
	IdleRetention     time.Duration // rooms untouched this long are removed
	FinishedRetention time.Duration // finished rooms are removed this long after game over
	CleanupPeriod     time.Duration // how often housekeeping runs
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Room:              DefaultRoomConfig(),
		IdleRetention:     24 * time.Hour,
		FinishedRetention: time.Hour,
		CleanupPeriod:     5 * time.Minute,
	}
}

// Coordinator owns the set of live rooms. Rooms are created lazily on
// first join and restored from the store on cold start.
type Coordinator struct {
	config      CoordinatorConfig
	store       RoomStore
	resultSaver MatchResultSaver // Optional, can be nil
	logger      *log.Logger
	now         func() time.Time

	mu       sync.Mutex
	rooms    map[RoomCode]*Room
	reserved map[RoomCode]struct{} // codes CreateRoom is persisting

	done     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a coordinator. A nil store keeps rooms in memory;
// a nil logger discards output.
func NewCoordinator(cfg CoordinatorConfig, store RoomStore, logger *log.Logger) *Coordinator {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Coordinator{
		config: cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
		rooms:    make(map[RoomCode]*Room),
		reserved: make(map[RoomCode]struct{}),
		done:     make(chan struct{}),
	}
}

// SetResultSaver sets the optional match result saver.
// Must be called before the first room is created.
func (c *Coordinator) SetResultSaver(saver MatchResultSaver) {
	c.resultSaver = saver
}

// Start begins background housekeeping.
func (c *Coordinator) Start() {
	go c.cleanupLoop()
}

// Stop closes every live room and halts housekeeping.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.mu.Lock()
	rooms := make([]*Room, 0, len(c.rooms))
	for code, r := range c.rooms {
		rooms = append(rooms, r)
		delete(c.rooms, code)
	}
	c.mu.Unlock()

	for _, r := range rooms {
		r.Close("server shutting down")
	}
}

func (c *Coordinator) clock() time.Time {
	return c.now()
}

// CreateRoom reserves a fresh, unused room code and persists an empty room.
// The store is only consulted after the code is reserved, so other rooms
// are not held up by the round trip.
func (c *Coordinator) CreateRoom(ctx context.Context) (RoomCode, error) {
	for {
		code := c.reserveCode()
		rec, err := c.store.LoadRoom(ctx, code)
		if err != nil {
			c.releaseCode(code)
			return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if rec != nil {
			c.releaseCode(code)
			continue
		}

		rec = &RoomRecord{
			Code:      code,
			Snapshot:  game.ToSnapshot(game.NewState()),
			UpdatedAt: c.clock(),
		}
		if err := c.store.SaveRoom(ctx, rec); err != nil {
			c.releaseCode(code)
			return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		c.mu.Lock()
		delete(c.reserved, code)
		if r, ok := c.rooms[code]; ok && !r.closed() {
			// Someone joined the code while it was being saved.
			c.mu.Unlock()
			return code, nil
		}
		r, err := newRoom(code, rec, c.config.Room, c.store, c.resultSaver, c.logger, c.clock)
		if err != nil {
			c.mu.Unlock()
			return "", err
		}
		c.rooms[code] = r
		c.mu.Unlock()

		c.logger.Info("room created", "room", code)
		return code, nil
	}
}

// reserveCode picks a code that is neither live nor being created.
func (c *Coordinator) reserveCode() RoomCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		code := GenerateCode()
		if _, live := c.rooms[code]; live {
			continue
		}
		if _, taken := c.reserved[code]; taken {
			continue
		}
		c.reserved[code] = struct{}{}
		return code
	}
}

func (c *Coordinator) releaseCode(code RoomCode) {
	c.mu.Lock()
	delete(c.reserved, code)
	c.mu.Unlock()
}

// room returns the live room for code, loading it from the store if needed.
// With create set an unknown code yields a fresh room.
func (c *Coordinator) room(ctx context.Context, raw RoomCode, create bool) (*Room, error) {
	code := NormalizeCode(string(raw))
	if code == "" {
		return nil, ErrRoomNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil, ErrRoomClosed
	default:
	}

	if r, ok := c.rooms[code]; ok && !r.closed() {
		return r, nil
	}

	rec, err := c.store.LoadRoom(ctx, code)
	if err != nil {
		c.logger.Error("load room", "room", code, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if rec == nil && !create {
		return nil, ErrRoomNotFound
	}

	r, err := newRoom(code, rec, c.config.Room, c.store, c.resultSaver, c.logger, c.clock)
	if err != nil {
		c.logger.Error("restore room", "room", code, "err", err)
		return nil, err
	}
	c.rooms[code] = r
	if rec != nil {
		c.logger.Info("room restored", "room", code, "phase", rec.Snapshot.Phase)
	}
	return r, nil
}

// withRoom runs fn against the room, retrying once if the room closed
// underneath it (for example during cleanup).
func (c *Coordinator) withRoom(ctx context.Context, code RoomCode, create bool, fn func(*Room) error) error {
	for attempt := 0; ; attempt++ {
		r, err := c.room(ctx, code, create)
		if err != nil {
			return err
		}
		err = fn(r)
		if errors.Is(err, ErrRoomClosed) && attempt == 0 {
			continue
		}
		return err
	}
}

// Join enters a room as a player, creating the room on first use.
func (c *Coordinator) Join(ctx context.Context, code RoomCode, token SessionToken, sub Subscriber) (JoinResult, error) {
	var res JoinResult
	err := c.withRoom(ctx, code, true, func(r *Room) error {
		var err error
		res, err = r.Join(ctx, token, sub)
		return err
	})
	return res, err
}

// Spectate enters an existing room without a seat.
func (c *Coordinator) Spectate(ctx context.Context, code RoomCode, sub Subscriber) (JoinResult, error) {
	var res JoinResult
	err := c.withRoom(ctx, code, false, func(r *Room) error {
		var err error
		res, err = r.Spectate(ctx, sub)
		return err
	})
	return res, err
}

// Submit applies an action in an existing room.
func (c *Coordinator) Submit(ctx context.Context, code RoomCode, req SubmitRequest) (SubmitResult, error) {
	var res SubmitResult
	err := c.withRoom(ctx, code, false, func(r *Room) error {
		var err error
		res, err = r.Submit(ctx, req)
		return err
	})
	return res, err
}

// Snapshot returns an existing room's snapshot as viewer sees it.
func (c *Coordinator) Snapshot(ctx context.Context, code RoomCode, viewer PlayerID) (game.Snapshot, uint64, error) {
	var (
		snap    game.Snapshot
		version uint64
	)
	err := c.withRoom(ctx, code, false, func(r *Room) error {
		var err error
		snap, version, err = r.Snapshot(ctx, viewer)
		return err
	})
	return snap, version, err
}

// Info returns a summary of an existing room.
func (c *Coordinator) Info(ctx context.Context, code RoomCode) (RoomInfo, error) {
	var info RoomInfo
	err := c.withRoom(ctx, code, false, func(r *Room) error {
		var err error
		info, err = r.Info(ctx)
		return err
	})
	return info, err
}

// Leave unsubscribes id from a live room. Unknown rooms are ignored.
func (c *Coordinator) Leave(code RoomCode, id SubscriberID) {
	c.mu.Lock()
	r, ok := c.rooms[NormalizeCode(string(code))]
	c.mu.Unlock()
	if ok {
		r.Leave(id)
	}
}

// RoomCount returns the number of live rooms.
func (c *Coordinator) RoomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

func (c *Coordinator) cleanupLoop() {
	period := c.config.CleanupPeriod
	if period <= 0 {
		period = 5 * time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), period)
			if n := c.Cleanup(ctx); n > 0 {
				c.logger.Info("expired rooms removed", "count", n)
			}
			cancel()
		case <-c.done:
			return
		}
	}
}

// Cleanup removes idle and long-finished rooms, live and stored.
// It returns how many rooms were removed.
func (c *Coordinator) Cleanup(ctx context.Context) int {
	now := c.clock()
	idleBefore := now.Add(-c.config.IdleRetention)
	finishedBefore := now.Add(-c.config.FinishedRetention)

	c.mu.Lock()
	live := make(map[RoomCode]*Room, len(c.rooms))
	for code, r := range c.rooms {
		live[code] = r
	}
	c.mu.Unlock()

	removed := 0
	for code, r := range live {
		info, err := r.Info(ctx)
		if err != nil {
			continue
		}
		rec := RoomRecord{UpdatedAt: info.UpdatedAt, FinishedAt: info.FinishedAt}
		if !expired(rec, idleBefore, finishedBefore) {
			continue
		}
		r.Close("room expired")
		c.mu.Lock()
		if c.rooms[code] == r {
			delete(c.rooms, code)
		}
		c.mu.Unlock()
		if err := c.store.DeleteRoom(ctx, code); err != nil {
			c.logger.Error("delete room", "room", code, "err", err)
		}
		removed++
	}

	n, err := c.store.DeleteExpired(ctx, idleBefore, finishedBefore)
	if err != nil {
		c.logger.Error("delete expired rooms", "err", err)
	}
	return removed + n
}
