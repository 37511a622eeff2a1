package game

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

func mustApply(t *testing.T, s State, a Action) State {
	t.Helper()
	next, err := Apply(s, a)
	if err != nil {
		t.Fatalf("Apply(%s by %s) failed: %v", a.Kind(), a.Actor(), err)
	}
	return next
}

// placeAll places a full fleet for p, one ship per row starting at firstRow.
// mirrored ships hug the right edge instead of the left.
func placeAll(t *testing.T, s State, p core.PlayerID, firstRow int, mirrored bool) State {
	t.Helper()
	for i, size := range engine.FleetSizes {
		col := 0
		if mirrored {
			col = core.BoardSize - size
		}
		s = mustApply(t, s, Place{Player: p, Start: core.At(firstRow+i, col), Size: size, Orientation: core.Horizontal})
	}
	return s
}

func readyState(t *testing.T) State {
	t.Helper()
	s := NewState()
	s = placeAll(t, s, core.Player1, 0, false)
	s = placeAll(t, s, core.Player2, 4, true)
	s = mustApply(t, s, DonePlacement{Player: core.Player1})
	s = mustApply(t, s, DonePlacement{Player: core.Player2})
	return s
}

func TestNewState(t *testing.T) {
	s := NewState()
	if s.Phase != PhaseBothPlace {
		t.Errorf("Expected phase BOTH_PLACE, got %s", s.Phase)
	}
	for _, p := range []core.PlayerID{core.Player1, core.Player2} {
		if s.PlaceIndexOf(p) != 0 || s.IsReady(p) || s.OrientationOf(p) != core.Horizontal {
			t.Errorf("%s should start unplaced, unready, horizontal", p)
		}
		if len(s.SideOf(p).Fleet) != 0 || s.SideOf(p).Shots.Len() != 0 {
			t.Errorf("%s should start with empty fleet and shots", p)
		}
	}
	if s.Winner != core.Spectator {
		t.Errorf("Expected no winner, got %s", s.Winner)
	}
}

func TestFullGameScenario(t *testing.T) {
	s := NewState()
	s = placeAll(t, s, core.Player1, 0, false)
	s = placeAll(t, s, core.Player2, 4, true)
	s = mustApply(t, s, DonePlacement{Player: core.Player1})
	s = mustApply(t, s, DonePlacement{Player: core.Player2})

	if s.Phase != PhaseP1Turn {
		t.Fatalf("Expected P1_TURN after both ready, got %s", s.Phase)
	}

	// Player 2 fires into the right half of Player 1's board, which is open water.
	p2Misses := []core.Coord{}
	for r := 9; r >= 0 && len(p2Misses) < 40; r-- {
		for c := 9; c >= 6 && len(p2Misses) < 40; c-- {
			p2Misses = append(p2Misses, core.At(r, c))
		}
	}

	var targets []core.Coord
	for _, ship := range s.SideOf(core.Player2).Fleet {
		targets = append(targets, ship.Coords...)
	}

	for i, target := range targets {
		s = mustApply(t, s, FireAt{Player: core.Player1, Target: target})
		last, _ := s.LastLog()
		if !last.Hit {
			t.Fatalf("Shot %d at %s should hit", i, target)
		}
		if i == len(targets)-1 {
			if !last.Win {
				t.Fatalf("Final shot should report win")
			}
			break
		}
		if last.Win {
			t.Fatalf("Shot %d reported win early", i)
		}
		if s.Phase != PhaseP2Turn {
			t.Fatalf("Expected P2_TURN after P1 shot, got %s", s.Phase)
		}
		s = mustApply(t, s, FireAt{Player: core.Player2, Target: p2Misses[i]})
		if s.Phase != PhaseP1Turn {
			t.Fatalf("Expected P1_TURN after P2 shot, got %s", s.Phase)
		}
	}

	if s.Phase != PhaseGameOver {
		t.Errorf("Expected GAME_OVER, got %s", s.Phase)
	}
	if s.Winner != core.Player1 {
		t.Errorf("Expected winner Player 1, got %s", s.Winner)
	}
	if !s.SideOf(core.Player2).Fleet.AllSunk() {
		t.Error("Player 2 fleet should be fully sunk")
	}
}

func TestReadinessOrderIndependent(t *testing.T) {
	base := NewState()
	base = placeAll(t, base, core.Player1, 0, false)
	base = placeAll(t, base, core.Player2, 0, false)

	orders := map[string][]core.PlayerID{
		"p1 first": {core.Player1, core.Player2},
		"p2 first": {core.Player2, core.Player1},
	}
	var results []State
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			s := mustApply(t, base, DonePlacement{Player: order[0]})
			if s.Phase != PhaseBothPlace {
				t.Errorf("Phase should stay BOTH_PLACE with one player ready, got %s", s.Phase)
			}
			s = mustApply(t, s, DonePlacement{Player: order[1]})
			if s.Phase != PhaseP1Turn {
				t.Errorf("Expected P1_TURN, got %s", s.Phase)
			}
			results = append(results, s)
		})
	}
	if len(results) == 2 && (results[0].Phase != results[1].Phase || results[0].Ready != results[1].Ready) {
		t.Error("Both readiness orders should reach the same phase and flags")
	}
}

func TestPlacementIsConcurrentPerPlayer(t *testing.T) {
	s := NewState()
	s = mustApply(t, s, Place{Player: core.Player1, Start: core.At(0, 0), Size: 5, Orientation: core.Horizontal})
	s = mustApply(t, s, Place{Player: core.Player2, Start: core.At(0, 0), Size: 5, Orientation: core.Vertical})
	s = mustApply(t, s, Place{Player: core.Player2, Start: core.At(0, 1), Size: 4, Orientation: core.Vertical})

	if s.PlaceIndexOf(core.Player1) != 1 || s.PlaceIndexOf(core.Player2) != 2 {
		t.Errorf("Place indices = %d/%d, expected 1/2", s.PlaceIndexOf(core.Player1), s.PlaceIndexOf(core.Player2))
	}
}

func TestValidateRejections(t *testing.T) {
	placing := NewState()
	placing = mustApply(t, placing, Place{Player: core.Player1, Start: core.At(0, 0), Size: 5, Orientation: core.Horizontal})

	full := placeAll(t, NewState(), core.Player1, 0, false)
	ready := mustApply(t, full, DonePlacement{Player: core.Player1})
	battle := readyState(t)
	fired := mustApply(t, battle, FireAt{Player: core.Player1, Target: core.At(2, 2)})
	fired = mustApply(t, fired, FireAt{Player: core.Player2, Target: core.At(9, 9)})

	over := battle
	over.Phase = PhaseGameOver
	over.Winner = core.Player1

	tests := []struct {
		name   string
		state  State
		action Action
		reason Reason
	}{
		{"spectator actor", placing, Undo{Player: core.Spectator}, ReasonInvalidPlayer},
		{"unknown seat", placing, Undo{Player: core.PlayerID(7)}, ReasonInvalidPlayer},
		{"nil action", placing, nil, ReasonUnknownAction},
		{"place wrong size", placing, Place{Player: core.Player1, Start: core.At(5, 0), Size: 3, Orientation: core.Horizontal}, ReasonWrongShipSize},
		{"place overlap", placing, Place{Player: core.Player1, Start: core.At(0, 2), Size: 4, Orientation: core.Vertical}, ReasonInvalidPlacement},
		{"place off board", placing, Place{Player: core.Player1, Start: core.At(9, 8), Size: 4, Orientation: core.Horizontal}, ReasonInvalidPlacement},
		{"place bad orientation", placing, Place{Player: core.Player1, Start: core.At(5, 0), Size: 4, Orientation: "D"}, ReasonInvalidOrientation},
		{"place after full fleet", full, Place{Player: core.Player1, Start: core.At(8, 0), Size: 2, Orientation: core.Horizontal}, ReasonPlacementComplete},
		{"place when ready", ready, Place{Player: core.Player1, Start: core.At(8, 0), Size: 2, Orientation: core.Horizontal}, ReasonAlreadyReady},
		{"place in battle", battle, Place{Player: core.Player1, Start: core.At(8, 0), Size: 2, Orientation: core.Horizontal}, ReasonInvalidPhase},
		{"done with incomplete fleet", placing, DonePlacement{Player: core.Player1}, ReasonIncompleteFleet},
		{"done twice", ready, DonePlacement{Player: core.Player1}, ReasonAlreadyReady},
		{"fire before ready", ready, FireAt{Player: core.Player1, Target: core.At(0, 0)}, ReasonNotReady},
		{"fire out of turn", battle, FireAt{Player: core.Player2, Target: core.At(0, 0)}, ReasonNotYourTurn},
		{"fire off board", battle, FireAt{Player: core.Player1, Target: core.At(10, 0)}, ReasonOutOfBounds},
		{"fire negative", battle, FireAt{Player: core.Player1, Target: core.At(0, -1)}, ReasonOutOfBounds},
		{"fire duplicate", fired, FireAt{Player: core.Player1, Target: core.At(2, 2)}, ReasonDuplicateShot},
		{"undo nothing", NewState(), Undo{Player: core.Player2}, ReasonNothingToUndo},
		{"undo when ready", ready, Undo{Player: core.Player1}, ReasonAlreadyReady},
		{"orientation invalid", placing, SetOrientation{Player: core.Player1, Orientation: "X"}, ReasonInvalidOrientation},
		{"orientation in battle", battle, SetOrientation{Player: core.Player1, Orientation: core.Vertical}, ReasonInvalidPhase},
		{"empty name", placing, SetName{Player: core.Player1, Name: "   "}, ReasonInvalidName},
		{"long name", placing, SetName{Player: core.Player1, Name: strings.Repeat("x", MaxNameLength+1)}, ReasonInvalidName},
		{"fire after game over", over, FireAt{Player: core.Player1, Target: core.At(9, 0)}, ReasonGameOver},
		{"undo after game over", over, Undo{Player: core.Player1}, ReasonGameOver},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Apply(tc.state, tc.action)
			if err == nil {
				t.Fatalf("Expected rejection %s, got none", tc.reason)
			}
			if !IsRejection(err, tc.reason) {
				t.Errorf("Expected reason %s, got %v", tc.reason, err)
			}
			if !reflect.DeepEqual(next, tc.state) {
				t.Error("Rejected action changed the state")
			}
		})
	}
}

func TestDuplicateShotRejectedBeforeEngine(t *testing.T) {
	s := readyState(t)
	s = mustApply(t, s, FireAt{Player: core.Player1, Target: core.At(2, 2)})
	s = mustApply(t, s, FireAt{Player: core.Player2, Target: core.At(0, 0)})

	logLen := len(s.Log)
	_, err := Apply(s, FireAt{Player: core.Player1, Target: core.At(2, 2)})
	if !IsRejection(err, ReasonDuplicateShot) {
		t.Fatalf("Expected DUPLICATE_SHOT, got %v", err)
	}
	if len(s.Log) != logLen {
		t.Error("Rejected shot should not be logged")
	}
}

func TestGameOverAllowsNameAndReset(t *testing.T) {
	s := readyState(t)
	s.Phase = PhaseGameOver
	s.Winner = core.Player2

	named := mustApply(t, s, SetName{Player: core.Player1, Name: "  Ahab  "})
	if named.Names[core.Player1] != "Ahab" {
		t.Errorf("Expected trimmed name Ahab, got %q", named.Names[core.Player1])
	}
	if named.Phase != PhaseGameOver {
		t.Error("SetName should not leave GAME_OVER")
	}

	reset := mustApply(t, named, Reset{Player: core.Player2})
	if !reflect.DeepEqual(reset, NewState()) {
		t.Errorf("Reset should return a fresh state, got %+v", reset)
	}
}

func TestUndo(t *testing.T) {
	s := NewState()
	s = mustApply(t, s, Place{Player: core.Player1, Start: core.At(0, 0), Size: 5, Orientation: core.Horizontal})
	s = mustApply(t, s, Place{Player: core.Player1, Start: core.At(1, 0), Size: 4, Orientation: core.Horizontal})

	s = mustApply(t, s, Undo{Player: core.Player1})
	if s.PlaceIndexOf(core.Player1) != 1 || len(s.SideOf(core.Player1).Fleet) != 1 {
		t.Fatalf("Expected one ship after undo, got index %d", s.PlaceIndexOf(core.Player1))
	}
	if size, _ := s.NextSize(core.Player1); size != 4 {
		t.Errorf("Next size after undo = %d, expected 4", size)
	}

	// The freed cells can be reused.
	s = mustApply(t, s, Place{Player: core.Player1, Start: core.At(1, 0), Size: 4, Orientation: core.Horizontal})
	if s.SideOf(core.Player1).Fleet[1].ID != "S2" {
		t.Errorf("Re-placed ship id = %q, expected S2", s.SideOf(core.Player1).Fleet[1].ID)
	}
}

func TestPlaceUsesStoredOrientation(t *testing.T) {
	s := NewState()
	s = mustApply(t, s, SetOrientation{Player: core.Player2, Orientation: core.Vertical})
	if s.OrientationOf(core.Player2) != core.Vertical {
		t.Fatalf("Orientation not stored")
	}
	if s.OrientationOf(core.Player1) != core.Horizontal {
		t.Errorf("Player 1 orientation should be unaffected")
	}

	s = mustApply(t, s, Place{Player: core.Player2, Start: core.At(0, 9), Size: 5})
	ship := s.SideOf(core.Player2).Fleet[0]
	if ship.Coords[4] != core.At(4, 9) {
		t.Errorf("Expected vertical ship ending at 4,9, got %v", ship.Coords)
	}
}

func TestPlacementsAreNotLogged(t *testing.T) {
	s := placeAll(t, NewState(), core.Player1, 0, false)
	if len(s.Log) != 0 {
		t.Errorf("Placement produced %d log entries", len(s.Log))
	}
	s = mustApply(t, s, DonePlacement{Player: core.Player1})
	if last, ok := s.LastLog(); !ok || last.Type != LogPlayerReady {
		t.Errorf("Expected playerReady log entry, got %+v", last)
	}
}

func TestLogIsCapped(t *testing.T) {
	s := readyState(t)
	// Rows 0-2 of Player 2's board and rows 6-8 of Player 1's board are open water.
	for i := 0; i < 30; i++ {
		s = mustApply(t, s, FireAt{Player: core.Player1, Target: core.At(i/10, i%10)})
		s = mustApply(t, s, FireAt{Player: core.Player2, Target: core.At(6+i/10, i%10)})
	}
	if len(s.Log) != MaxLogEntries {
		t.Errorf("Log has %d entries, expected cap %d", len(s.Log), MaxLogEntries)
	}
	last, _ := s.LastLog()
	if last.Type != LogFire || last.Player != core.Player2 || *last.Target != core.At(8, 9) {
		t.Errorf("Newest entry should be the last shot, got %+v", last)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := readyState(t)
	before := s.Clone()

	_ = Reduce(s, FireAt{Player: core.Player1, Target: core.At(4, 5)})
	_ = Reduce(s, SetName{Player: core.Player2, Name: "Nemo"})

	if !reflect.DeepEqual(s, before) {
		t.Error("Reduce mutated its input state")
	}
}

func TestPhaseTurn(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected core.PlayerID
	}{
		{PhaseBothPlace, core.Spectator},
		{PhaseP1Turn, core.Player1},
		{PhaseP2Turn, core.Player2},
		{PhaseGameOver, core.Spectator},
	}
	for _, tc := range tests {
		t.Run(string(tc.phase), func(t *testing.T) {
			if got := tc.phase.Turn(); got != tc.expected {
				t.Errorf("Turn() = %s, expected %s", got, tc.expected)
			}
		})
	}
}
