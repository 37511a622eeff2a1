package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(t *testing.T, code multiplayer.RoomCode, updated time.Time) *multiplayer.RoomRecord {
	t.Helper()
	s := game.NewState()
	var err error
	s, err = game.Apply(s, game.Place{Player: core.Player1, Start: core.At(0, 0), Size: 5, Orientation: core.Horizontal})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	s, err = game.Apply(s, game.SetName{Player: core.Player2, Name: "Ishmael"})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	return &multiplayer.RoomRecord{
		Code:     code,
		Snapshot: game.ToSnapshot(s),
		Slots: [2]multiplayer.Slot{
			{Token: "tok-1", LastSeen: updated},
			{},
		},
		RecentActions: []string{"a", "b"},
		Version:       2,
		UpdatedAt:     updated,
	}
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreNestedPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestStoreRoomRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	updated := time.UnixMilli(1_760_000_000_000).UTC()

	missing, err := store.LoadRoom(ctx, "NONE00")
	if err != nil || missing != nil {
		t.Fatalf("LoadRoom() of unknown code = %v, %v; want nil, nil", missing, err)
	}

	rec := sampleRecord(t, "ABC123", updated)
	if err := store.SaveRoom(ctx, rec); err != nil {
		t.Fatalf("SaveRoom() failed: %v", err)
	}

	got, err := store.LoadRoom(ctx, "ABC123")
	if err != nil {
		t.Fatalf("LoadRoom() failed: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}

	state, err := game.FromSnapshot(got.Snapshot)
	if err != nil {
		t.Fatalf("FromSnapshot() failed: %v", err)
	}
	if state.Name(core.Player2) != "Ishmael" || state.PlaceIndexOf(core.Player1) != 1 {
		t.Errorf("Restored state lost data: %+v", state)
	}
}

func TestStoreSaveRoomUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_760_000_000_000).UTC()

	rec := sampleRecord(t, "ABC123", now)
	if err := store.SaveRoom(ctx, rec); err != nil {
		t.Fatalf("SaveRoom() failed: %v", err)
	}

	rec.Version = 3
	rec.Slots[1] = multiplayer.Slot{Token: "tok-2", LastSeen: now}
	rec.RecentActions = append(rec.RecentActions, "c")
	if err := store.SaveRoom(ctx, rec); err != nil {
		t.Fatalf("SaveRoom() update failed: %v", err)
	}

	got, _ := store.LoadRoom(ctx, "ABC123")
	if got.Version != 3 || got.Slots[1].Token != "tok-2" || len(got.RecentActions) != 3 {
		t.Errorf("Update not applied: %+v", got)
	}

	rooms, err := store.ListRooms(ctx, 10)
	if err != nil {
		t.Fatalf("ListRooms() failed: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("Expected 1 room after upsert, got %d", len(rooms))
	}
	if rooms[0].Occupied != [2]bool{true, true} || rooms[0].Phase != game.PhaseBothPlace {
		t.Errorf("Unexpected summary %+v", rooms[0])
	}
}

func TestStoreDeleteExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_760_000_000_000).UTC()

	fresh := sampleRecord(t, "FRESH1", now)
	idle := sampleRecord(t, "IDLE01", now.Add(-48*time.Hour))
	done := sampleRecord(t, "DONE01", now)
	done.FinishedAt = now.Add(-2 * time.Hour)
	recent := sampleRecord(t, "DONE02", now)
	recent.FinishedAt = now.Add(-10 * time.Minute)

	for _, rec := range []*multiplayer.RoomRecord{fresh, idle, done, recent} {
		if err := store.SaveRoom(ctx, rec); err != nil {
			t.Fatalf("SaveRoom(%s) failed: %v", rec.Code, err)
		}
	}

	n, err := store.DeleteExpired(ctx, now.Add(-24*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rooms removed, got %d", n)
	}

	for code, want := range map[multiplayer.RoomCode]bool{"FRESH1": true, "IDLE01": false, "DONE01": false, "DONE02": true} {
		rec, _ := store.LoadRoom(ctx, code)
		if (rec != nil) != want {
			t.Errorf("Room %s present=%v, want %v", code, rec != nil, want)
		}
	}

	if err := store.DeleteRoom(ctx, "FRESH1"); err != nil {
		t.Fatalf("DeleteRoom() failed: %v", err)
	}
	if rec, _ := store.LoadRoom(ctx, "FRESH1"); rec != nil {
		t.Error("DeleteRoom() left the room behind")
	}
}

func TestStoreListRoomsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_760_000_000_000).UTC()

	for i, code := range []multiplayer.RoomCode{"ROOM01", "ROOM02", "ROOM03", "ROOM04"} {
		if err := store.SaveRoom(ctx, sampleRecord(t, code, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveRoom() failed: %v", err)
		}
	}

	rooms, err := store.ListRooms(ctx, 2)
	if err != nil {
		t.Fatalf("ListRooms() failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Code != "ROOM04" || rooms[1].Code != "ROOM03" {
		t.Errorf("Expected newest two rooms, got %+v", rooms)
	}
}

func TestStoreMatchResults(t *testing.T) {
	store := openTestStore(t)
	base := time.UnixMilli(1_760_000_000_000).UTC()

	results := []multiplayer.MatchResultData{
		{RoomCode: "AAA111", Winner: core.Player1, Player1Name: "Ahab", Player2Name: "CPU", Shots1: 40, Shots2: 39, DurationSecs: 300, FinishedAt: base},
		{RoomCode: "BBB222", Winner: core.Player2, Player1Name: "CPU", Player2Name: "Ahab", Shots1: 50, Shots2: 50, DurationSecs: 420, FinishedAt: base.Add(time.Hour)},
		{RoomCode: "CCC333", Winner: core.Player2, Player1Name: "Ahab", Player2Name: "Moby", Shots1: 60, Shots2: 61, DurationSecs: 500, FinishedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range results {
		if err := store.SaveMatchResult(r); err != nil {
			t.Fatalf("SaveMatchResult() failed: %v", err)
		}
	}

	recent, err := store.RecentMatches(10)
	if err != nil {
		t.Fatalf("RecentMatches() failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(recent))
	}
	if recent[0].RoomCode != "CCC333" || recent[0].WinnerName() != "Moby" {
		t.Errorf("Newest match should be CCC333 won by Moby, got %+v", recent[0])
	}
	if !recent[2].FinishedAt.Equal(base) || recent[2].Duration != 300 {
		t.Errorf("Oldest match lost data: %+v", recent[2])
	}

	limited, _ := store.RecentMatches(1)
	if len(limited) != 1 {
		t.Errorf("Expected 1 match with limit, got %d", len(limited))
	}

	tests := []struct {
		name string
		want int
	}{
		{"Ahab", 2},
		{"Moby", 1},
		{"CPU", 0},
		{"Nobody", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wins, err := store.PlayerWins(tt.name)
			if err != nil {
				t.Fatalf("PlayerWins() failed: %v", err)
			}
			if wins != tt.want {
				t.Errorf("PlayerWins(%q) = %d, want %d", tt.name, wins, tt.want)
			}
		})
	}
}

func TestStoreBacksCoordinator(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(), store, nil)
	res, err := first.Join(ctx, "SQL001", "", nil)
	if err != nil {
		t.Fatalf("Join() failed: %v", err)
	}
	_, err = first.Submit(ctx, "SQL001", multiplayer.SubmitRequest{
		Token:    res.Token,
		ActionID: "rotate",
		Action:   game.SetOrientation{Player: core.Player1, Orientation: core.Vertical},
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	first.Stop()

	second := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(), store, nil)
	defer second.Stop()
	snap, version, err := second.Snapshot(ctx, "SQL001", core.Player1)
	if err != nil {
		t.Fatalf("Snapshot() after restart failed: %v", err)
	}
	if version != 1 || snap.Orientation[0] != core.Vertical {
		t.Errorf("Restored room at version %d orientation %s", version, snap.Orientation[0])
	}

	again, err := second.Join(ctx, "SQL001", res.Token, nil)
	if err != nil {
		t.Fatalf("Rejoin() failed: %v", err)
	}
	if again.Slot != core.Player1 {
		t.Errorf("Token should survive restart, got %s", again.Slot)
	}
}
