package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// LocalConfig configures a game against the computer in this terminal.
type LocalConfig struct {
	Name        string
	Bot         multiplayer.BotConfig
	EventBuffer int
	Width       int
	Height      int
	Seed        int64
}

// PlayLocal opens a fresh room on coord, seats the user opposite a bot,
// and runs the board until the user quits.
func PlayLocal(ctx context.Context, coord *multiplayer.Coordinator, cfg LocalConfig) error {
	code, err := coord.CreateRoom(ctx)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	sess := multiplayer.NewChannelSession(multiplayer.SubscriberID("local-"+uuid.NewString()), cfg.EventBuffer)
	res, err := coord.Join(ctx, code, "", sess)
	if err != nil {
		sess.Close()
		return fmt.Errorf("join room: %w", err)
	}

	bot, err := coord.AddBot(ctx, code, cfg.Bot)
	if err != nil {
		coord.Leave(code, sess.ID())
		sess.Close()
		return fmt.Errorf("seat computer: %w", err)
	}

	model := NewBoardModel(BoardConfig{
		Coordinator: coord,
		Session:     sess,
		Join:        res,
		Bot:         bot,
		Name:        cfg.Name,
		Standalone:  true,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Seed:        cfg.Seed,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	coord.Leave(code, sess.ID())
	sess.Close()
	bot.Close()
	return err
}

// HotseatLocalConfig configures two players sharing this terminal.
type HotseatLocalConfig struct {
	Names       [2]string
	EventBuffer int
	Width       int
	Height      int
	Seed        int64
}

// PlayHotseat opens a fresh room on coord, joins both seats from this
// terminal, and runs until the players quit.
func PlayHotseat(ctx context.Context, coord *multiplayer.Coordinator, cfg HotseatLocalConfig) error {
	code, err := coord.CreateRoom(ctx)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	var seats [2]HotseatSeat
	release := func() {
		for _, seat := range seats {
			if seat.Session != nil {
				coord.Leave(code, seat.Session.ID())
				seat.Session.Close()
			}
		}
	}
	for i := range seats {
		sess := multiplayer.NewChannelSession(multiplayer.SubscriberID("hotseat-"+uuid.NewString()), cfg.EventBuffer)
		res, err := coord.Join(ctx, code, "", sess)
		if err != nil {
			sess.Close()
			release()
			return fmt.Errorf("join seat %d: %w", i+1, err)
		}
		seats[i] = HotseatSeat{Session: sess, Join: res, Name: cfg.Names[i]}
	}

	model := NewHotseatModel(HotseatConfig{
		Coordinator: coord,
		Seats:       seats,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Seed:        cfg.Seed,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	release()
	return err
}
