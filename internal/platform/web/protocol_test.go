package web

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want game.Action
	}{
		{"place", `{"type":"place","player":1,"start":{"r":2,"c":3},"size":4,"orientation":"V"}`,
			game.Place{Player: core.Player1, Start: core.At(2, 3), Size: 4, Orientation: core.Vertical}},
		{"place default orientation", `{"type":"place","player":2,"start":{"r":0,"c":0},"size":5}`,
			game.Place{Player: core.Player2, Start: core.At(0, 0), Size: 5}},
		{"done", `{"type":"donePlacement","player":2}`, game.DonePlacement{Player: core.Player2}},
		{"fire", `{"type":"fire","player":1,"r":9,"c":0}`, game.FireAt{Player: core.Player1, Target: core.At(9, 0)}},
		{"fire origin", `{"type":"fire","player":1,"r":0,"c":0}`, game.FireAt{Player: core.Player1, Target: core.At(0, 0)}},
		{"undo", `{"type":"undo","player":1}`, game.Undo{Player: core.Player1}},
		{"orientation", `{"type":"setOrientation","player":1,"orientation":"V"}`,
			game.SetOrientation{Player: core.Player1, Orientation: core.Vertical}},
		{"name", `{"type":"setName","player":2,"name":"Queequeg"}`, game.SetName{Player: core.Player2, Name: "Queequeg"}},
		{"reset", `{"type":"reset","player":2}`, game.Reset{Player: core.Player2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("DecodeAction() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeAction() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeActionErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want game.Reason
	}{
		{"empty", ``, ReasonBadMessage},
		{"not json", `{"type":`, ReasonBadMessage},
		{"place without start", `{"type":"place","player":1,"size":5}`, ReasonBadMessage},
		{"fire without column", `{"type":"fire","player":1,"r":3}`, ReasonBadMessage},
		{"unknown type", `{"type":"nuke","player":1}`, game.ReasonUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction(json.RawMessage(tt.raw))
			if err == nil {
				t.Fatal("DecodeAction() should fail")
			}
			msg := errorMessage("x", err)
			if got := msg.Payload.(ErrorPayload).Code; got != tt.want {
				t.Errorf("Expected code %s, got %s", tt.want, got)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	msg, ok := EncodeEvent(multiplayer.AckEvent{ActionID: "a1", Version: 7, Duplicate: true})
	if !ok || msg.Type != MsgAck || msg.ID != "a1" {
		t.Fatalf("Unexpected ack envelope %+v", msg)
	}
	if meta := msg.Meta.(AckMeta); !meta.Ack || meta.Version != 7 || !meta.Duplicate {
		t.Errorf("Unexpected ack meta %+v", meta)
	}

	msg, ok = EncodeEvent(multiplayer.StateEvent{Version: 3, Cause: game.KindFire, Actor: core.Player2})
	if !ok || msg.Type != MsgState || msg.Meta.(StateMeta).Version != 3 {
		t.Errorf("Unexpected state envelope %+v", msg)
	}

	msg, ok = EncodeEvent(multiplayer.ClosedEvent{Reason: "bye"})
	if !ok || msg.Type != MsgClosed || msg.Payload.(ClosedPayload).Reason != "bye" {
		t.Errorf("Unexpected closed envelope %+v", msg)
	}
}

func TestErrorMessageReasons(t *testing.T) {
	tests := []struct {
		err  error
		want game.Reason
	}{
		{ErrRateLimited, ReasonRateLimited},
		{multiplayer.ErrRoomFull, multiplayer.ReasonRoomFull},
		{&game.RejectError{Reason: game.ReasonDuplicateShot}, game.ReasonDuplicateShot},
		{errors.New("boom"), multiplayer.ReasonInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			msg := errorMessage("id", tt.err)
			if msg.Type != MsgError || msg.ID != "id" {
				t.Errorf("Unexpected envelope %+v", msg)
			}
			if got := msg.Payload.(ErrorPayload).Code; got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
