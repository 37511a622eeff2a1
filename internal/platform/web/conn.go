package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// conn is one WebSocket client. The read loop handles requests; the
// write loop owns all writes to the socket. It is a multiplayer.Subscriber,
// so rooms push to it without blocking.
type conn struct {
	id      multiplayer.SubscriberID
	server  *Server
	ws      *websocket.Conn
	code    multiplayer.RoomCode
	limiter *rate.Limiter
	logger  *log.Logger

	out       chan Outbound
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the read loop.
	joined bool
	slot   multiplayer.PlayerID
	token  multiplayer.SessionToken
}

func newConn(s *Server, ws *websocket.Conn, code multiplayer.RoomCode) *conn {
	id := multiplayer.SubscriberID("ws-" + uuid.NewString())
	return &conn{
		id:      id,
		server:  s,
		ws:      ws,
		code:    code,
		limiter: rate.NewLimiter(rate.Limit(s.cfg.ActionsPerSecond), s.cfg.Burst),
		logger:  s.logger.With("room", string(code), "conn", string(id)),
		out:     make(chan Outbound, s.cfg.EventBuffer),
		done:    make(chan struct{}),
	}
}

// ID implements multiplayer.Subscriber.
func (c *conn) ID() multiplayer.SubscriberID {
	return c.id
}

// Send implements multiplayer.Subscriber.
func (c *conn) Send(evt multiplayer.Event) bool {
	msg, ok := EncodeEvent(evt)
	if !ok {
		return true
	}
	return c.enqueue(msg)
}

// Done implements multiplayer.Subscriber.
func (c *conn) Done() <-chan struct{} {
	return c.done
}

// enqueue queues msg for the writer, dropping the oldest queued message
// when the buffer is full. It reports false if the client is gone or
// still cannot keep up.
func (c *conn) enqueue(msg Outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
	}
	select {
	case <-c.out:
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.server.coord.Leave(c.code, c.id)
	})
}

func (c *conn) readLoop() {
	defer func() {
		c.close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", "err", err)
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(errorMessage("", fmt.Errorf("%w: %v", ErrBadMessage, err)))
			continue
		}
		if !c.limiter.Allow() {
			c.enqueue(errorMessage(msg.ID, ErrRateLimited))
			continue
		}
		c.handle(msg)
	}
}

func (c *conn) handle(msg Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), c.server.cfg.RequestTimeout)
	defer cancel()

	switch msg.Type {
	case MsgPing:
		c.enqueue(Outbound{Type: MsgPong, ID: msg.ID})
	case MsgJoin:
		c.handleJoin(ctx, msg)
	case MsgSpectate:
		c.handleSpectate(ctx, msg)
	case MsgAction:
		c.handleAction(ctx, msg)
	default:
		c.enqueue(errorMessage(msg.ID, fmt.Errorf("%w: unknown message type %q", ErrBadMessage, msg.Type)))
	}
}

func (c *conn) handleJoin(ctx context.Context, msg Inbound) {
	if c.joined {
		c.enqueue(errorMessage(msg.ID, fmt.Errorf("%w: already joined", ErrBadMessage)))
		return
	}
	token := msg.Token
	if token == "" && len(msg.Payload) > 0 {
		var p JoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.enqueue(errorMessage(msg.ID, fmt.Errorf("%w: %v", ErrBadMessage, err)))
			return
		}
		token = p.SessionToken
	}

	res, err := c.server.coord.Join(ctx, c.code, multiplayer.SessionToken(token), c)
	if err != nil {
		c.logger.Debug("join failed", "reason", multiplayer.ReasonOf(err))
		c.enqueue(errorMessage(msg.ID, err))
		return
	}
	c.joined, c.slot, c.token = true, res.Slot, res.Token
	c.logger.Info("player connected", "slot", res.Slot)
	c.enqueue(Outbound{
		Type:    MsgJoined,
		ID:      msg.ID,
		Payload: res.Snapshot,
		Meta:    JoinedMeta{Player: res.Slot, SessionToken: string(res.Token), Version: res.Version},
	})
}

func (c *conn) handleSpectate(ctx context.Context, msg Inbound) {
	if c.joined {
		c.enqueue(errorMessage(msg.ID, fmt.Errorf("%w: already joined", ErrBadMessage)))
		return
	}
	res, err := c.server.coord.Spectate(ctx, c.code, c)
	if err != nil {
		c.enqueue(errorMessage(msg.ID, err))
		return
	}
	c.joined, c.slot = true, multiplayer.Spectator
	c.enqueue(Outbound{
		Type:    MsgJoined,
		ID:      msg.ID,
		Payload: res.Snapshot,
		Meta:    JoinedMeta{Player: multiplayer.Spectator, Version: res.Version},
	})
}

func (c *conn) handleAction(ctx context.Context, msg Inbound) {
	if c.token == "" {
		c.enqueue(errorMessage(msg.ID, multiplayer.ErrInvalidSession))
		return
	}
	action, err := DecodeAction(msg.Payload)
	if err != nil {
		c.enqueue(errorMessage(msg.ID, err))
		return
	}
	_, err = c.server.coord.Submit(ctx, c.code, multiplayer.SubmitRequest{
		Token:    c.token,
		ActionID: msg.ID,
		Action:   action,
		From:     c.id,
	})
	if err != nil {
		c.enqueue(errorMessage(msg.ID, err))
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.close()
				return
			}
			if msg.Type == MsgClosed {
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"))
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
