package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

type received struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Meta    json.RawMessage `json:"meta"`
}

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *multiplayer.Coordinator) {
	t.Helper()
	coord := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(), nil, nil)
	srv := httptest.NewServer(NewServer(coord, cfg, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		coord.Stop()
	})
	return srv, coord
}

func dial(t *testing.T, srv *httptest.Server, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + code
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg any) {
	t.Helper()
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
}

func sendAction(t *testing.T, ws *websocket.Conn, id string, payload ActionPayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	send(t, ws, Inbound{Type: MsgAction, ID: id, Payload: raw})
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, ws *websocket.Conn, typ string) received {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg received
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("Waiting for %q: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func errorCode(t *testing.T, msg received) game.Reason {
	t.Helper()
	var p ErrorPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("Bad error payload: %v", err)
	}
	return p.Code
}

func join(t *testing.T, ws *websocket.Conn, token string) JoinedMeta {
	t.Helper()
	send(t, ws, Inbound{Type: MsgJoin, Token: token})
	msg := readUntil(t, ws, MsgJoined)
	var meta JoinedMeta
	if err := json.Unmarshal(msg.Meta, &meta); err != nil {
		t.Fatalf("Bad joined meta: %v", err)
	}
	return meta
}

func intPtr(v int) *int { return &v }

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	resp, err := http.Post(srv.URL+"/api/rooms", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/rooms failed: %v", err)
	}
	var created struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || len(created.Code) != multiplayer.CodeLength {
		t.Fatalf("Unexpected create response %d %+v", resp.StatusCode, created)
	}

	resp, err = http.Get(srv.URL + "/api/rooms/" + strings.ToLower(created.Code))
	if err != nil {
		t.Fatalf("GET room failed: %v", err)
	}
	var room struct {
		Code     string        `json:"code"`
		Version  uint64        `json:"version"`
		Snapshot game.Snapshot `json:"snapshot"`
	}
	json.NewDecoder(resp.Body).Decode(&room)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || room.Code != created.Code || room.Snapshot.Phase != game.PhaseBothPlace {
		t.Errorf("Unexpected room response %d %+v", resp.StatusCode, room)
	}

	resp, err = http.Get(srv.URL + "/api/rooms/ZZZZZZ")
	if err != nil {
		t.Fatalf("GET unknown room failed: %v", err)
	}
	var failure ErrorPayload
	json.NewDecoder(resp.Body).Decode(&failure)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || failure.Code != multiplayer.ReasonRoomNotFound {
		t.Errorf("Expected 404 ROOM_NOT_FOUND, got %d %+v", resp.StatusCode, failure)
	}
}

func TestWebSocketActions(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	ws1 := dial(t, srv, "game01")
	ws2 := dial(t, srv, "GAME01")

	p1 := join(t, ws1, "")
	p2 := join(t, ws2, "")
	if p1.Player != core.Player1 || p2.Player != core.Player2 || p1.SessionToken == "" {
		t.Fatalf("Unexpected seats %+v %+v", p1, p2)
	}

	place := ActionPayload{Type: game.KindPlace, Player: core.Player1, Start: &core.Coord{}, Size: 5, Orientation: core.Horizontal}
	sendAction(t, ws1, "a1", place)

	state := readUntil(t, ws1, MsgState)
	var snap game.Snapshot
	if err := json.Unmarshal(state.Payload, &snap); err != nil {
		t.Fatalf("Bad state payload: %v", err)
	}
	if snap.PlaceIndex[0] != 1 || len(snap.Sides[0].Fleet) != 1 {
		t.Errorf("Placement not reflected: %+v", snap)
	}
	ack := readUntil(t, ws1, MsgAck)
	if ack.ID != "a1" {
		t.Errorf("Ack for wrong id %q", ack.ID)
	}

	readUntil(t, ws2, MsgState)

	// Acting for the other seat is refused.
	sendAction(t, ws1, "a2", ActionPayload{Type: game.KindUndo, Player: core.Player2})
	refused := readUntil(t, ws1, MsgError)
	if refused.ID != "a2" || errorCode(t, refused) != game.ReasonInvalidPlayer {
		t.Errorf("Expected INVALID_PLAYER for a2, got %+v", refused)
	}

	// Replaying a1 is acknowledged without a second placement.
	sendAction(t, ws1, "a1", place)
	replay := readUntil(t, ws1, MsgAck)
	var meta AckMeta
	json.Unmarshal(replay.Meta, &meta)
	if !meta.Duplicate {
		t.Errorf("Replay should be flagged duplicate, got %+v", meta)
	}

	sendAction(t, ws2, "b1", ActionPayload{Type: game.KindFire, Player: core.Player2, R: intPtr(0), C: intPtr(0)})
	if code := errorCode(t, readUntil(t, ws2, MsgError)); code != game.ReasonNotReady {
		t.Errorf("Firing during placement: expected NOT_READY, got %s", code)
	}
}

func TestWebSocketReconnect(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	first := dial(t, srv, "RECON1")
	meta := join(t, first, "")
	first.Close()

	again := dial(t, srv, "RECON1")
	send(t, again, Inbound{Type: MsgJoin, Payload: json.RawMessage(`{"sessionToken":"` + meta.SessionToken + `"}`)})
	msg := readUntil(t, again, MsgJoined)
	var back JoinedMeta
	json.Unmarshal(msg.Meta, &back)
	if back.Player != core.Player1 || back.SessionToken != meta.SessionToken {
		t.Errorf("Reconnect should restore Player 1, got %+v", back)
	}
}

func TestWebSocketSpectator(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	player := dial(t, srv, "WATCH1")
	join(t, player, "")

	watcher := dial(t, srv, "WATCH1")
	send(t, watcher, Inbound{Type: MsgSpectate})
	joined := readUntil(t, watcher, MsgJoined)
	var meta JoinedMeta
	json.Unmarshal(joined.Meta, &meta)
	if meta.Player != core.Spectator || meta.SessionToken != "" {
		t.Errorf("Spectator should get no seat, got %+v", meta)
	}

	sendAction(t, player, "p", ActionPayload{Type: game.KindPlace, Player: core.Player1, Start: &core.Coord{}, Size: 5})
	state := readUntil(t, watcher, MsgState)
	var snap game.Snapshot
	json.Unmarshal(state.Payload, &snap)
	if !snap.Sides[0].Hidden || len(snap.Sides[0].Fleet) != 0 {
		t.Errorf("Spectator should not see Player 1's fleet: %+v", snap.Sides[0])
	}

	sendAction(t, watcher, "w", ActionPayload{Type: game.KindUndo, Player: core.Player1})
	if code := errorCode(t, readUntil(t, watcher, MsgError)); code != multiplayer.ReasonInvalidSession {
		t.Errorf("Spectator actions: expected INVALID_SESSION, got %s", code)
	}
}

func TestWebSocketBadMessages(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	ws := dial(t, srv, "BADMSG")

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}
	if code := errorCode(t, readUntil(t, ws, MsgError)); code != ReasonBadMessage {
		t.Errorf("Garbage: expected BAD_MESSAGE, got %s", code)
	}

	send(t, ws, Inbound{Type: "dance"})
	if code := errorCode(t, readUntil(t, ws, MsgError)); code != ReasonBadMessage {
		t.Errorf("Unknown type: expected BAD_MESSAGE, got %s", code)
	}

	sendAction(t, ws, "early", ActionPayload{Type: game.KindUndo, Player: core.Player1})
	if code := errorCode(t, readUntil(t, ws, MsgError)); code != multiplayer.ReasonInvalidSession {
		t.Errorf("Action before join: expected INVALID_SESSION, got %s", code)
	}

	send(t, ws, Inbound{Type: MsgPing, ID: "p1"})
	if pong := readUntil(t, ws, MsgPong); pong.ID != "p1" {
		t.Errorf("Pong should echo id, got %q", pong.ID)
	}

	join(t, ws, "")
	sendAction(t, ws, "odd", ActionPayload{Type: "nuke", Player: core.Player1})
	if code := errorCode(t, readUntil(t, ws, MsgError)); code != game.ReasonUnknownAction {
		t.Errorf("Unknown action: expected UNKNOWN_ACTION, got %s", code)
	}

	send(t, ws, Inbound{Type: MsgJoin})
	if code := errorCode(t, readUntil(t, ws, MsgError)); code != ReasonBadMessage {
		t.Errorf("Second join: expected BAD_MESSAGE, got %s", code)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActionsPerSecond = 0.001
	cfg.Burst = 2
	srv, _ := newTestServer(t, cfg)
	ws := dial(t, srv, "SLOW01")

	for i := 0; i < 3; i++ {
		send(t, ws, Inbound{Type: MsgPing})
	}
	readUntil(t, ws, MsgPong)
	readUntil(t, ws, MsgPong)
	if code := errorCode(t, readUntil(t, ws, MsgError)); code != ReasonRateLimited {
		t.Errorf("Expected RATE_LIMITED, got %s", code)
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://harbor.example"}
	srv, _ := newTestServer(t, cfg)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ORIGIN"

	header := http.Header{"Origin": []string{"https://pirates.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("Dial() from a foreign origin should fail")
	} else if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}

	header.Set("Origin", "https://harbor.example")
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() from an allowed origin failed: %v", err)
	}
	ws.Close()
}
