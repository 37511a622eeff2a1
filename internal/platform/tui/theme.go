package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme contains the visual styles of the terminal client.
type Theme struct {
	// Board cells
	Water   lipgloss.Style
	Ship    lipgloss.Style
	Hit     lipgloss.Style
	Miss    lipgloss.Style
	Sunk    lipgloss.Style
	Cursor  lipgloss.Style
	Preview lipgloss.Style
	Blocked lipgloss.Style
	Axis    lipgloss.Style

	// Frames around the two boards
	Frame       lipgloss.Style
	ActiveFrame lipgloss.Style

	// HUD
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Log    lipgloss.Style
	Help   lipgloss.Style
	Code   lipgloss.Style

	// Lobby
	MenuItemNormal lipgloss.Style
	MenuItemActive lipgloss.Style
}

// DefaultTheme returns the default visual theme.
func DefaultTheme() Theme {
	return Theme{
		Water:   lipgloss.NewStyle().Foreground(lipgloss.Color("24")),
		Ship:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true),
		Hit:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Miss:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Sunk:    lipgloss.NewStyle().Foreground(lipgloss.Color("124")),
		Cursor:  lipgloss.NewStyle().Background(lipgloss.Color("226")).Foreground(lipgloss.Color("16")),
		Preview: lipgloss.NewStyle().Background(lipgloss.Color("28")).Foreground(lipgloss.Color("231")),
		Blocked: lipgloss.NewStyle().Background(lipgloss.Color("88")).Foreground(lipgloss.Color("231")),
		Axis:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		ActiveFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("229")).
			Padding(0, 1),

		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Value:  lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		Log:    lipgloss.NewStyle().Foreground(lipgloss.Color("248")),
		Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Code: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1),

		MenuItemNormal: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		MenuItemActive: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true),
	}
}
