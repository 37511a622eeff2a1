package multiplayer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/tui-battleships/internal/ai"
	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
	"github.com/vovakirdan/tui-battleships/internal/game"
)

const botSubmitTimeout = 5 * time.Second

// BotConfig configures a computer opponent.
type BotConfig struct {
	Difficulty ai.Difficulty
	ThinkDelay time.Duration // pause before each shot
	Seed       int64
	Name       string // display name, optional
}

// Bot is a computer player. It joins a room like any other party, acts
// only through SubmitRequests and sees only what its seat is shown.
type Bot struct {
	id     SubscriberID
	coord  *Coordinator
	code   RoomCode
	cfg    BotConfig
	player *ai.Player
	logger *log.Logger

	token   SessionToken
	slot    PlayerID
	version uint64

	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// AddBot seats a bot in the room identified by code.
func (c *Coordinator) AddBot(ctx context.Context, code RoomCode, cfg BotConfig) (*Bot, error) {
	if !cfg.Difficulty.Valid() {
		cfg.Difficulty = ai.Medium
	}
	code = NormalizeCode(string(code))
	b := &Bot{
		id:     SubscriberID("bot-" + uuid.NewString()),
		coord:  c,
		code:   code,
		cfg:    cfg,
		player: ai.NewPlayer(cfg.Difficulty, cfg.Seed),
		logger: c.logger.WithPrefix("bot").With("room", string(code)),
		events: make(chan Event, 1),
		done:   make(chan struct{}),
	}

	res, err := c.Join(ctx, code, "", b)
	if err != nil {
		return nil, err
	}
	b.token, b.slot = res.Token, res.Slot
	b.logger.Info("bot seated", "slot", b.slot, "difficulty", cfg.Difficulty)

	go b.run(res.Snapshot, res.Version)
	return b, nil
}

// ID implements Subscriber.
func (b *Bot) ID() SubscriberID {
	return b.id
}

// Slot returns the seat the bot plays.
func (b *Bot) Slot() PlayerID {
	return b.slot
}

// Send implements Subscriber. Only the newest event is kept: the bot
// always acts on the latest state.
func (b *Bot) Send(evt Event) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	for {
		select {
		case b.events <- evt:
			return true
		default:
		}
		select {
		case <-b.events:
		default:
		}
	}
}

// Done implements Subscriber.
func (b *Bot) Done() <-chan struct{} {
	return b.done
}

// Close stops the bot and leaves the room. The seat is kept until it expires.
func (b *Bot) Close() {
	b.doneOnce.Do(func() {
		close(b.done)
	})
	b.coord.Leave(b.code, b.id)
}

func (b *Bot) run(snap game.Snapshot, version uint64) {
	b.act(snap, version)
	for {
		select {
		case evt := <-b.events:
			switch e := evt.(type) {
			case StateEvent:
				if e.Version > b.version {
					b.act(e.Snapshot, e.Version)
				}
			case ClosedEvent:
				b.doneOnce.Do(func() {
					close(b.done)
				})
				return
			}
		case <-b.done:
			return
		}
	}
}

func (b *Bot) act(snap game.Snapshot, version uint64) {
	if version > b.version {
		b.version = version
	}
	me := b.slot.Index()

	switch snap.Phase {
	case game.PhaseBothPlace:
		if snap.Ready[me] {
			return
		}
		if len(snap.Sides[me].Shots) == 0 {
			b.player.Reset()
		}
		if b.cfg.Name != "" && snap.Names[b.slot] != b.cfg.Name {
			b.submit(game.SetName{Player: b.slot, Name: b.cfg.Name})
		}
		b.placeFleet(snap.PlaceIndex[me])

	case game.TurnOf(b.slot):
		b.fire(snap)
	}
}

func (b *Bot) placeFleet(placed int) {
	for ; placed > 0; placed-- {
		if _, err := b.submit(game.Undo{Player: b.slot}); err != nil {
			return
		}
	}
	for _, p := range b.player.Placements() {
		action := game.Place{Player: b.slot, Start: p.Start, Size: p.Size, Orientation: p.Orientation}
		if _, err := b.submit(action); err != nil {
			return
		}
	}
	b.submit(game.DonePlacement{Player: b.slot})
}

func (b *Bot) fire(snap game.Snapshot) {
	if b.cfg.ThinkDelay > 0 {
		select {
		case <-time.After(b.cfg.ThinkDelay):
		case <-b.done:
			return
		}
	}

	me := b.slot.Index()
	target := b.player.Next(engine.NewKeySet(snap.Sides[me].Shots...))
	res, err := b.submit(game.FireAt{Player: b.slot, Target: target})
	if err != nil {
		return
	}

	result := engine.ShotResult{}
	if entry, ok := findShot(res.Snapshot.Log, b.slot, target); ok {
		result = engine.ShotResult{Hit: entry.Hit, Sunk: entry.Sunk, Win: entry.Win}
	}
	b.player.Observe(target, result, engine.NewKeySet(res.Snapshot.Sides[me].Shots...))
}

func (b *Bot) submit(action game.Action) (SubmitResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), botSubmitTimeout)
	defer cancel()

	res, err := b.coord.Submit(ctx, b.code, SubmitRequest{
		Token:    b.token,
		ActionID: uuid.NewString(),
		Action:   action,
		From:     b.id,
	})
	if err != nil {
		b.logger.Debug("action failed", "action", action.Kind(), "reason", ReasonOf(err))
		return res, err
	}
	if res.Version > b.version {
		b.version = res.Version
	}
	return res, nil
}

// findShot returns the newest fire entry by p at target.
func findShot(entries []game.LogEntry, p PlayerID, target core.Coord) (game.LogEntry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Type == game.LogFire && e.Player == p && e.Target != nil && *e.Target == target {
			return e, true
		}
	}
	return game.LogEntry{}, false
}
