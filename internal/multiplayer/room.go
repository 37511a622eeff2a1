package multiplayer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-battleships/internal/game"
)

// RoomConfig controls per-room behaviour.
type RoomConfig struct {
	SessionTimeout     time.Duration // idle time before a seat can be reclaimed
	RecentActions      int           // action ids kept for deduplication
	LogTail            int           // log entries included in snapshots
	RedactHiddenFleets bool          // hide unsunk enemy ships from viewers
	StoreTimeout       time.Duration // bound on one persistence call
}

// DefaultRoomConfig returns sensible defaults.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		SessionTimeout:     10 * time.Minute,
		RecentActions:      100,
		LogTail:            game.MaxLogEntries,
		RedactHiddenFleets: true,
		StoreTimeout:       5 * time.Second,
	}
}

// Room is the single writer for one match. All state below the request
// channel is owned by the run goroutine; public methods talk to it by
// message and wait for the reply.
type Room struct {
	code   RoomCode
	cfg    RoomConfig
	store  RoomStore
	saver  MatchResultSaver
	logger *log.Logger
	now    func() time.Time

	reqs     chan request
	done     chan struct{}
	doneOnce sync.Once

	state      game.State
	slots      *SlotRegistry
	recent     *RecentActions
	subs       map[SubscriberID]subscription
	version    uint64
	startedAt  time.Time
	updatedAt  time.Time
	finishedAt time.Time
}

type subscription struct {
	sub    Subscriber
	viewer PlayerID
}

type request interface {
	roomRequest()
}

type joinReq struct {
	token     SessionToken
	sub       Subscriber
	spectator bool
	reply     chan joinReply
}

type joinReply struct {
	res JoinResult
	err error
}

type submitReq struct {
	req   SubmitRequest
	reply chan submitReply
}

type submitReply struct {
	res SubmitResult
	err error
}

type leaveReq struct {
	id SubscriberID
}

type snapshotReq struct {
	viewer PlayerID
	reply  chan snapshotReply
}

type snapshotReply struct {
	snap    game.Snapshot
	version uint64
}

type infoReq struct {
	reply chan RoomInfo
}

type closeReq struct {
	reason string
	reply  chan struct{}
}

func (joinReq) roomRequest()     {}
func (submitReq) roomRequest()   {}
func (leaveReq) roomRequest()    {}
func (snapshotReq) roomRequest() {}
func (infoReq) roomRequest()     {}
func (closeReq) roomRequest()    {}

// newRoom builds a room, restoring it from rec when one is given, and
// starts its goroutine.
func newRoom(code RoomCode, rec *RoomRecord, cfg RoomConfig, store RoomStore, saver MatchResultSaver, logger *log.Logger, now func() time.Time) (*Room, error) {
	r := &Room{
		code:   code,
		cfg:    cfg,
		store:  store,
		saver:  saver,
		logger: logger.With("room", string(code)),
		now:    now,
		reqs:   make(chan request),
		done:   make(chan struct{}),
		subs:   make(map[SubscriberID]subscription),
	}

	if rec == nil {
		r.state = game.NewState()
		r.slots = NewSlotRegistry(cfg.SessionTimeout)
		r.recent = NewRecentActions(cfg.RecentActions)
		r.updatedAt = now()
	} else {
		state, err := game.FromSnapshot(rec.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("multiplayer: restore room %s: %w", code, err)
		}
		r.state = state
		r.slots = NewSlotRegistry(cfg.SessionTimeout, rec.Slots[0], rec.Slots[1])
		r.recent = NewRecentActions(cfg.RecentActions, rec.RecentActions...)
		r.version = rec.Version
		r.startedAt = rec.StartedAt
		r.updatedAt = rec.UpdatedAt
		r.finishedAt = rec.FinishedAt
	}

	go r.run()
	return r, nil
}

// Code returns the room's code.
func (r *Room) Code() RoomCode {
	return r.code
}

// Done closes once the room has shut down.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Join claims or reclaims a player seat for token. sub, when non-nil,
// starts receiving events as that seat.
func (r *Room) Join(ctx context.Context, token SessionToken, sub Subscriber) (JoinResult, error) {
	req := joinReq{token: token, sub: sub, reply: make(chan joinReply, 1)}
	if err := r.send(ctx, req); err != nil {
		return JoinResult{}, err
	}
	rep, err := await(ctx, r, req.reply)
	if err != nil {
		return JoinResult{}, err
	}
	return rep.res, rep.err
}

// Spectate subscribes sub without a seat.
func (r *Room) Spectate(ctx context.Context, sub Subscriber) (JoinResult, error) {
	req := joinReq{sub: sub, spectator: true, reply: make(chan joinReply, 1)}
	if err := r.send(ctx, req); err != nil {
		return JoinResult{}, err
	}
	rep, err := await(ctx, r, req.reply)
	if err != nil {
		return JoinResult{}, err
	}
	return rep.res, rep.err
}

// Submit runs one action through the room.
func (r *Room) Submit(ctx context.Context, s SubmitRequest) (SubmitResult, error) {
	req := submitReq{req: s, reply: make(chan submitReply, 1)}
	if err := r.send(ctx, req); err != nil {
		return SubmitResult{}, err
	}
	rep, err := await(ctx, r, req.reply)
	if err != nil {
		return SubmitResult{}, err
	}
	return rep.res, rep.err
}

// Snapshot returns the current snapshot as viewer sees it.
func (r *Room) Snapshot(ctx context.Context, viewer PlayerID) (game.Snapshot, uint64, error) {
	req := snapshotReq{viewer: viewer, reply: make(chan snapshotReply, 1)}
	if err := r.send(ctx, req); err != nil {
		return game.Snapshot{}, 0, err
	}
	rep, err := await(ctx, r, req.reply)
	if err != nil {
		return game.Snapshot{}, 0, err
	}
	return rep.snap, rep.version, nil
}

// Info returns a summary of the room.
func (r *Room) Info(ctx context.Context) (RoomInfo, error) {
	req := infoReq{reply: make(chan RoomInfo, 1)}
	if err := r.send(ctx, req); err != nil {
		return RoomInfo{}, err
	}
	return await(ctx, r, req.reply)
}

// Leave unsubscribes id. The seat stays bound to its token until it expires.
func (r *Room) Leave(id SubscriberID) {
	select {
	case r.reqs <- leaveReq{id: id}:
	case <-r.done:
	}
}

// Close notifies every subscriber and stops the room.
func (r *Room) Close(reason string) {
	req := closeReq{reason: reason, reply: make(chan struct{}, 1)}
	select {
	case r.reqs <- req:
		<-req.reply
	case <-r.done:
	}
}

func (r *Room) send(ctx context.Context, req request) error {
	select {
	case r.reqs <- req:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, r *Room, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrRoomClosed
		}
	}
}

func (r *Room) run() {
	for {
		select {
		case req := <-r.reqs:
			if !r.handle(req) {
				return
			}
		case <-r.done:
			return
		}
	}
}

func (r *Room) handle(req request) bool {
	switch q := req.(type) {
	case joinReq:
		q.reply <- r.handleJoin(q)
	case submitReq:
		q.reply <- r.handleSubmit(q.req)
	case leaveReq:
		if _, ok := r.subs[q.id]; ok {
			delete(r.subs, q.id)
			r.logger.Debug("subscriber left", "subscriber", q.id)
		}
	case snapshotReq:
		q.reply <- snapshotReply{snap: r.view(r.fullSnapshot(), q.viewer), version: r.version}
	case infoReq:
		q.reply <- r.info()
	case closeReq:
		r.shutdown(q.reason)
		q.reply <- struct{}{}
		return false
	}
	return true
}

func (r *Room) handleJoin(q joinReq) joinReply {
	now := r.now()
	r.touchConnected(now)

	if q.spectator {
		r.subscribe(q.sub, Spectator)
		r.logger.Info("spectator joined")
		return joinReply{res: JoinResult{
			Code:     r.code,
			Slot:     Spectator,
			Snapshot: r.view(r.fullSnapshot(), Spectator),
			Version:  r.version,
		}}
	}

	slots := r.slots.Clone()
	before := slots.Occupied()
	slot, token, err := slots.Resolve(q.token, now)
	if err != nil {
		return joinReply{err: err}
	}
	rec := r.record(r.state, slots, r.recent, r.version, r.startedAt, now, r.finishedAt)
	if err := r.save(rec); err != nil {
		return joinReply{err: err}
	}
	r.slots = slots
	r.updatedAt = now
	r.subscribe(q.sub, slot)

	reconnect := q.token != "" && token == q.token
	r.logger.Info("player joined", "slot", slot, "reconnect", reconnect)
	if slots.Occupied() != before {
		r.broadcastPresence(slot)
	}

	return joinReply{res: JoinResult{
		Code:     r.code,
		Slot:     slot,
		Token:    token,
		Snapshot: r.view(r.fullSnapshot(), slot),
		Version:  r.version,
	}}
}

func (r *Room) handleSubmit(s SubmitRequest) submitReply {
	now := r.now()
	r.touchConnected(now)

	slot, ok := r.slots.Lookup(s.Token, now)
	if !ok {
		return submitReply{err: ErrInvalidSession}
	}
	if s.Action == nil {
		return submitReply{err: &game.RejectError{Reason: game.ReasonUnknownAction, Message: "no action"}}
	}
	if s.Action.Actor() != slot {
		return submitReply{err: &game.RejectError{
			Reason:  game.ReasonInvalidPlayer,
			Message: fmt.Sprintf("session holds %s, action claims %s", slot, s.Action.Actor()),
		}}
	}

	if r.recent.Seen(s.ActionID) {
		r.logger.Debug("duplicate action", "slot", slot, "id", s.ActionID)
		r.ack(s, true)
		return submitReply{res: SubmitResult{
			Slot:      slot,
			Snapshot:  r.view(r.fullSnapshot(), slot),
			Version:   r.version,
			Duplicate: true,
		}}
	}

	prev := r.state
	next, err := game.Apply(prev, s.Action)
	if err != nil {
		r.logger.Debug("action rejected", "slot", slot, "action", s.Action.Kind(), "reason", ReasonOf(err))
		return submitReply{err: err}
	}

	recent := r.recent.Clone()
	recent.Remember(s.ActionID)
	slots := r.slots.Clone()
	slots.Touch(slot, now)

	started, finished := r.startedAt, r.finishedAt
	switch {
	case next.Phase == game.PhaseBothPlace:
		started, finished = time.Time{}, time.Time{}
	case prev.Phase == game.PhaseBothPlace && next.Phase == game.PhaseP1Turn:
		started = now
	case prev.Phase != game.PhaseGameOver && next.Phase == game.PhaseGameOver:
		finished = now
	}

	rec := r.record(next, slots, recent, r.version+1, started, now, finished)
	if err := r.save(rec); err != nil {
		return submitReply{err: err}
	}

	r.state = next
	r.recent = recent
	r.slots = slots
	r.version++
	r.startedAt, r.updatedAt, r.finishedAt = started, now, finished

	if prev.Phase != game.PhaseGameOver && next.Phase == game.PhaseGameOver {
		r.logger.Info("match finished", "winner", next.Winner)
		r.reportResult()
	}

	full := r.fullSnapshot()
	r.broadcast(full, s.Action.Kind(), slot)
	r.ack(s, false)

	return submitReply{res: SubmitResult{
		Slot:     slot,
		Snapshot: r.view(full, slot),
		Version:  r.version,
	}}
}

// touchConnected keeps seats with a live subscriber from expiring and
// drops subscribers whose transport has gone away.
func (r *Room) touchConnected(now time.Time) {
	for id, s := range r.subs {
		select {
		case <-s.sub.Done():
			delete(r.subs, id)
			continue
		default:
		}
		r.slots.Touch(s.viewer, now)
	}
}

func (r *Room) subscribe(sub Subscriber, viewer PlayerID) {
	if sub == nil {
		return
	}
	r.subs[sub.ID()] = subscription{sub: sub, viewer: viewer}
}

func (r *Room) fullSnapshot() game.Snapshot {
	return game.ToSnapshot(r.state).TrimLog(r.cfg.LogTail)
}

func (r *Room) view(full game.Snapshot, viewer PlayerID) game.Snapshot {
	if !r.cfg.RedactHiddenFleets {
		return full
	}
	return full.RedactFor(viewer)
}

func (r *Room) broadcast(full game.Snapshot, cause game.ActionKind, actor PlayerID) {
	for id, s := range r.subs {
		evt := StateEvent{
			Code:     r.code,
			Version:  r.version,
			Cause:    cause,
			Actor:    actor,
			Snapshot: r.view(full, s.viewer),
		}
		if !s.sub.Send(evt) {
			r.logger.Debug("dropping subscriber", "subscriber", id)
			delete(r.subs, id)
		}
	}
}

func (r *Room) broadcastPresence(slot PlayerID) {
	evt := PresenceEvent{Code: r.code, Slot: slot, Occupied: r.slots.Occupied()}
	for id, s := range r.subs {
		if !s.sub.Send(evt) {
			delete(r.subs, id)
		}
	}
}

func (r *Room) ack(s SubmitRequest, duplicate bool) {
	if s.From == "" {
		return
	}
	sub, ok := r.subs[s.From]
	if !ok {
		return
	}
	evt := AckEvent{Code: r.code, ActionID: s.ActionID, Version: r.version, Duplicate: duplicate}
	if !sub.sub.Send(evt) {
		delete(r.subs, s.From)
	}
}

func (r *Room) record(state game.State, slots *SlotRegistry, recent *RecentActions, version uint64, started, updated, finished time.Time) *RoomRecord {
	return &RoomRecord{
		Code:          r.code,
		Snapshot:      game.ToSnapshot(state),
		Slots:         slots.Slots(),
		RecentActions: recent.IDs(),
		Version:       version,
		StartedAt:     started,
		UpdatedAt:     updated,
		FinishedAt:    finished,
	}
}

// save writes rec through to the store. A failure leaves the caller free
// to discard the staged transition.
func (r *Room) save(rec *RoomRecord) error {
	if r.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()
	if err := r.store.SaveRoom(ctx, rec); err != nil {
		r.logger.Error("persist room", "err", err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (r *Room) reportResult() {
	if r.saver == nil {
		return
	}
	duration := 0
	if !r.startedAt.IsZero() {
		duration = int(r.finishedAt.Sub(r.startedAt).Seconds())
	}
	data := MatchResultData{
		RoomCode:     string(r.code),
		Winner:       r.state.Winner,
		Player1Name:  r.state.Name(Player1),
		Player2Name:  r.state.Name(Player2),
		Shots1:       r.state.Sides[0].Shots.Len(),
		Shots2:       r.state.Sides[1].Shots.Len(),
		DurationSecs: duration,
		FinishedAt:   r.finishedAt,
	}
	saver, logger := r.saver, r.logger
	// Best effort, the room does not wait on history.
	go func() {
		if err := saver.SaveMatchResult(data); err != nil {
			logger.Error("save match result", "err", err)
		}
	}()
}

func (r *Room) info() RoomInfo {
	return RoomInfo{
		Code:        r.code,
		Phase:       r.state.Phase,
		Subscribers: len(r.subs),
		Occupied:    r.slots.Occupied(),
		UpdatedAt:   r.updatedAt,
		FinishedAt:  r.finishedAt,
	}
}

func (r *Room) shutdown(reason string) {
	for id, s := range r.subs {
		s.sub.Send(ClosedEvent{Code: r.code, Reason: reason})
		delete(r.subs, id)
	}
	r.logger.Info("room closed", "reason", reason)
	r.doneOnce.Do(func() {
		close(r.done)
	})
}
