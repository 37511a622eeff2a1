package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-battleships/internal/storage"
)

var flagRoomsLimit int

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List persisted rooms",
	Long: `Show the rooms stored in the database, most recently updated first.

Examples:
  battleships rooms
  battleships rooms --limit 50`,
	Run: runRooms,
}

func init() {
	roomsCmd.Flags().IntVar(&flagRoomsLimit, "limit", 20, "Maximum number of rooms to show")
}

func runRooms(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rooms, err := store.ListRooms(context.Background(), flagRoomsLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing rooms: %v\n", err)
		return
	}

	if len(rooms) == 0 {
		fmt.Println("No rooms stored yet.")
		return
	}

	fmt.Printf("  %-8s  %-11s  %-7s  %-5s  %s\n", "Code", "Phase", "Version", "Seats", "Updated")
	fmt.Printf("  %-8s  %-11s  %-7s  %-5s  %s\n", "----", "-----", "-------", "-----", "-------")
	for _, r := range rooms {
		fmt.Printf("  %-8s  %-11s  %-7d  %-5s  %s\n",
			r.Code, r.Phase, r.Version, seats(r.Occupied), r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// seats renders slot occupancy as e.g. "1/2".
func seats(occupied [2]bool) string {
	n := 0
	for _, o := range occupied {
		if o {
			n++
		}
	}
	return fmt.Sprintf("%d/2", n)
}

// since formats how long ago t was, for the history listing.
func since(t time.Time) string {
	d := time.Since(t).Round(time.Minute)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Local().Format("2006-01-02")
}
