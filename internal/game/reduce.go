package game

import (
	"fmt"

	"github.com/vovakirdan/tui-battleships/internal/engine"
)

// Reduce applies a validated action to s and returns the next state.
// The input state is never modified. Calling Reduce with an action that
// Validate rejects is a programming error; the result is unspecified but
// the input is still left intact.
func Reduce(s State, action Action) State {
	if _, ok := action.(Reset); ok {
		return NewState()
	}

	next := s.Clone()
	switch a := action.(type) {
	case Place:
		i := a.Player.Index()
		next.Sides[i].Fleet = engine.PlaceShip(next.Sides[i].Fleet, a.Start, a.Size, placeOrientation(s, a))
		next.PlaceIndex[i] = len(next.Sides[i].Fleet)

	case DonePlacement:
		next.Ready[a.Player.Index()] = true
		if next.BothReady() {
			next.Phase = PhaseP1Turn
		}
		next.Log = appendLog(next.Log, LogEntry{
			Type:    LogPlayerReady,
			Player:  a.Player,
			Message: fmt.Sprintf("%s is ready!", s.Name(a.Player)),
		})

	case FireAt:
		atk, def := a.Player.Index(), a.Player.Other().Index()
		shots, fleet, res := engine.Fire(next.Sides[atk].Shots, next.Sides[def].Fleet, a.Target)
		next.Sides[atk].Shots = shots
		next.Sides[def].Fleet = fleet

		target := a.Target
		next.Log = appendLog(next.Log, LogEntry{
			Type:   LogFire,
			Player: a.Player,
			Target: &target,
			Hit:    res.Hit,
			Sunk:   res.Sunk,
			Win:    res.Win,
		})
		if res.Win {
			next.Phase = PhaseGameOver
			next.Winner = a.Player
		} else {
			next.Phase = TurnOf(a.Player.Other())
		}

	case Undo:
		i := a.Player.Index()
		fleet := next.Sides[i].Fleet
		if len(fleet) > 0 {
			next.Sides[i].Fleet = fleet[:len(fleet)-1]
		}
		next.PlaceIndex[i] = len(next.Sides[i].Fleet)

	case SetOrientation:
		next.Orientation[a.Player.Index()] = a.Orientation

	case SetName:
		name, _ := cleanName(a.Name)
		next.Names[a.Player] = name
		next.Log = appendLog(next.Log, LogEntry{
			Type:    LogSetName,
			Player:  a.Player,
			Message: fmt.Sprintf("%s is now %s", a.Player, name),
		})
	}
	return next
}

// Apply validates action against s and, when accepted, returns the reduced state.
// On rejection it returns s itself together with the *RejectError.
func Apply(s State, action Action) (State, error) {
	if err := Validate(s, action); err != nil {
		return s, err
	}
	return Reduce(s, action), nil
}
