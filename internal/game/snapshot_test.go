package game

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/vovakirdan/tui-battleships/internal/core"
)

func midGameState(t *testing.T) State {
	t.Helper()
	s := readyState(t)
	s = mustApply(t, s, SetName{Player: core.Player1, Name: "Ahab"})
	// Sink Player 2's last ship (row 9, cols 8-9) and land one hit on S1.
	s = mustApply(t, s, FireAt{Player: core.Player1, Target: core.At(9, 8)})
	s = mustApply(t, s, FireAt{Player: core.Player2, Target: core.At(0, 0)})
	s = mustApply(t, s, FireAt{Player: core.Player1, Target: core.At(9, 9)})
	s = mustApply(t, s, FireAt{Player: core.Player2, Target: core.At(9, 9)})
	s = mustApply(t, s, FireAt{Player: core.Player1, Target: core.At(4, 5)})
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := midGameState(t)

	restored, err := FromSnapshot(ToSnapshot(s))
	if err != nil {
		t.Fatalf("FromSnapshot() failed: %v", err)
	}
	if !reflect.DeepEqual(restored, s) {
		t.Errorf("Round trip changed state:\n got %+v\nwant %+v", restored, s)
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	s := midGameState(t)

	data, err := MarshalState(s)
	if err != nil {
		t.Fatalf("MarshalState() failed: %v", err)
	}
	restored, err := UnmarshalState(data)
	if err != nil {
		t.Fatalf("UnmarshalState() failed: %v", err)
	}
	if !reflect.DeepEqual(restored, s) {
		t.Error("JSON round trip changed state")
	}

	// Set membership survives; the restored state keeps rejecting repeats.
	if _, err := Apply(restored, FireAt{Player: core.Player2, Target: core.At(0, 0)}); !IsRejection(err, ReasonDuplicateShot) {
		t.Errorf("Expected DUPLICATE_SHOT on restored state, got %v", err)
	}
}

func TestSnapshotSetsAreSortedLists(t *testing.T) {
	s := midGameState(t)
	snap := ToSnapshot(s)

	expected := []string{"4,5", "9,8", "9,9"}
	if !reflect.DeepEqual(snap.Sides[0].Shots, expected) {
		t.Errorf("Player 1 shots = %v, expected %v", snap.Sides[0].Shots, expected)
	}
	if !reflect.DeepEqual(snap.Sides[1].Hits, expected) {
		t.Errorf("Player 2 hit cells = %v, expected %v", snap.Sides[1].Hits, expected)
	}
	if snap.Sides[1].ShipsAfloat != 5 {
		t.Errorf("Player 2 ships afloat = %d, expected 5", snap.Sides[1].ShipsAfloat)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	for _, key := range []string{"phase", "sides", "placeIndex", "ready", "orientation", "winner", "names", "log"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("Snapshot JSON missing %q", key)
		}
	}
}

func TestRedactFor(t *testing.T) {
	snap := ToSnapshot(midGameState(t))

	tests := []struct {
		name         string
		viewer       core.PlayerID
		hidden       [2]bool
		visibleShips [2]int
	}{
		{"player one", core.Player1, [2]bool{false, true}, [2]int{6, 1}},
		{"player two", core.Player2, [2]bool{true, false}, [2]int{0, 6}},
		{"spectator", core.Spectator, [2]bool{true, true}, [2]int{0, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			red := snap.RedactFor(tc.viewer)
			for i := range red.Sides {
				if red.Sides[i].Hidden != tc.hidden[i] {
					t.Errorf("side %d hidden = %v, expected %v", i+1, red.Sides[i].Hidden, tc.hidden[i])
				}
				if len(red.Sides[i].Fleet) != tc.visibleShips[i] {
					t.Errorf("side %d shows %d ships, expected %d", i+1, len(red.Sides[i].Fleet), tc.visibleShips[i])
				}
				if !reflect.DeepEqual(red.Sides[i].Hits, snap.Sides[i].Hits) {
					t.Errorf("side %d hit cells should stay visible", i+1)
				}
			}
		})
	}

	if len(snap.Sides[1].Fleet) != 6 {
		t.Error("RedactFor modified the original snapshot")
	}
	if _, err := FromSnapshot(snap.RedactFor(core.Spectator)); !errors.Is(err, ErrRedacted) {
		t.Errorf("Expected ErrRedacted restoring a redacted snapshot, got %v", err)
	}
}

func TestFromSnapshotRejectsCorruptData(t *testing.T) {
	good := ToSnapshot(midGameState(t))

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"unknown phase", func(s *Snapshot) { s.Phase = "LOBBY" }},
		{"malformed shot key", func(s *Snapshot) { s.Sides[0].Shots = []string{"a,b"} }},
		{"off-board shot", func(s *Snapshot) { s.Sides[0].Shots = []string{"10,0"} }},
		{"hit outside ship", func(s *Snapshot) { s.Sides[1].Fleet[0].Hits = []string{"0,0"} }},
		{"size mismatch", func(s *Snapshot) { s.Sides[1].Fleet[0].Size = 3 }},
		{"place index mismatch", func(s *Snapshot) { s.PlaceIndex[0] = 2 }},
		{"bad orientation", func(s *Snapshot) { s.Orientation[1] = "Z" }},
		{"overlapping ships", func(s *Snapshot) {
			s.Sides[0].Fleet[1].Coords = []core.Coord{core.At(0, 0), core.At(0, 1), core.At(0, 2), core.At(0, 3)}
		}},
		{"cells with a gap", func(s *Snapshot) {
			s.Sides[0].Fleet[1].Coords = []core.Coord{core.At(1, 0), core.At(1, 1), core.At(1, 2), core.At(9, 9)}
		}},
		{"bent ship", func(s *Snapshot) {
			s.Sides[0].Fleet[1].Coords = []core.Coord{core.At(1, 0), core.At(1, 1), core.At(2, 1), core.At(2, 2)}
		}},
		{"ships out of placement order", func(s *Snapshot) {
			s.Sides[0].Fleet[0], s.Sides[0].Fleet[1] = s.Sides[0].Fleet[1], s.Sides[0].Fleet[0]
		}},
		{"ready with partial fleet", func(s *Snapshot) {
			s.Sides[0].Fleet = s.Sides[0].Fleet[:3]
			s.PlaceIndex[0] = 3
		}},
		{"turn before both ready", func(s *Snapshot) { s.Ready[1] = false }},
		{"placing with both ready", func(s *Snapshot) { s.Phase = PhaseBothPlace }},
		{"game over without winner", func(s *Snapshot) { s.Phase = PhaseGameOver }},
		{"winner during play", func(s *Snapshot) { s.Winner = core.Player1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, _ := json.Marshal(good)
			var snap Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			tc.mutate(&snap)
			if _, err := FromSnapshot(snap); err == nil {
				t.Error("Expected FromSnapshot to fail")
			}
		})
	}
}

func TestFromSnapshotAcceptsEveryPhase(t *testing.T) {
	placing := NewState()
	placing = placeAll(t, placing, core.Player1, 0, false)
	placing = mustApply(t, placing, DonePlacement{Player: core.Player1})

	over := readyState(t)
	misses := 0
sinking:
	for _, ship := range over.SideOf(core.Player2).Fleet {
		for _, c := range ship.Coords {
			over = mustApply(t, over, FireAt{Player: core.Player1, Target: c})
			if over.Phase == PhaseGameOver {
				break sinking
			}
			// Player 1's fleet sits in rows 0-5, so rows 6-9 are open water.
			over = mustApply(t, over, FireAt{Player: core.Player2, Target: core.At(6+misses/10, misses%10)})
			misses++
		}
	}
	if over.Phase != PhaseGameOver {
		t.Fatalf("Expected GAME_OVER, got %s", over.Phase)
	}

	states := map[string]State{
		"new":       NewState(),
		"placing":   placing,
		"mid game":  midGameState(t),
		"game over": over,
	}
	for name, st := range states {
		t.Run(name, func(t *testing.T) {
			restored, err := FromSnapshot(ToSnapshot(st))
			if err != nil {
				t.Fatalf("FromSnapshot() failed: %v", err)
			}
			if restored.Phase != st.Phase {
				t.Errorf("Expected phase %s, got %s", st.Phase, restored.Phase)
			}
		})
	}
}

func TestTrimLog(t *testing.T) {
	snap := ToSnapshot(midGameState(t))
	n := len(snap.Log)

	trimmed := snap.TrimLog(2)
	if len(trimmed.Log) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(trimmed.Log))
	}
	if !reflect.DeepEqual(trimmed.Log[1], snap.Log[n-1]) {
		t.Error("TrimLog should keep the newest entries")
	}
	if len(snap.Log) != n {
		t.Error("TrimLog modified the original snapshot")
	}
}
