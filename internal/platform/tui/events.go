// Package tui provides the Bubble Tea client for battleships rooms and the
// SSH server that hosts it. The client reaches rooms through an in-process
// multiplayer.ChannelSession, the same subscriber path the web transport uses.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// The messages below carry the session they came from, so a program hosting
// two seats can hand each one its own traffic. An empty from matches any
// board.

// eventMsg carries one room event into the Bubble Tea loop.
type eventMsg struct {
	from multiplayer.SubscriberID
	evt  multiplayer.Event
}

// sessionEndedMsg is sent once the session stops delivering events.
type sessionEndedMsg struct {
	from multiplayer.SubscriberID
}

// actionResultMsg reports the outcome of submitted actions.
type actionResultMsg struct {
	from multiplayer.SubscriberID
	kind game.ActionKind
	res  multiplayer.SubmitResult
	err  error
}

// listen returns a command that waits for the next event on sess.
func listen(sess *multiplayer.ChannelSession) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt := <-sess.Events():
			return eventMsg{from: sess.ID(), evt: evt}
		case <-sess.Done():
			return sessionEndedMsg{from: sess.ID()}
		}
	}
}
