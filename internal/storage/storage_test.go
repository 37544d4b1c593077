package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chessrules/internal/core"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chess.db")
	s, err := NewStore(path, true, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func seedGame(s *Store, id string) {
	s.RecordNewGame(GameRecord{
		GameID:          id,
		InitialFEN:      startFEN,
		WhitePlayerID:   "white-" + id,
		WhiteType:       int(core.PlayerHuman),
		BlackPlayerID:   "black-" + id,
		BlackType:       int(core.PlayerComputer),
		BlackDifficulty: "hard",
		StartTimeUTC:    time.Now().UTC(),
	})
}

func TestRecordAndLoad(t *testing.T) {
	s := newTestStore(t)
	seedGame(s, "g1")

	now := time.Now().UTC()
	s.RecordMove(MoveRecord{GameID: "g1", MoveNumber: 1, Notation: "Pe2-e4t.s.", MoveCode: "e2e4",
		FENAfterMove: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", PlayerColor: "w", MoveTimeUTC: now})
	s.RecordMove(MoveRecord{GameID: "g1", MoveNumber: 2, Notation: "0",
		FENAfterMove: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", PlayerColor: "b", MoveTimeUTC: now})
	s.RecordResult("g1", "white_wins", now)
	flush(t, s)

	games, err := s.QueryGames("g1", "", "")
	if err != nil {
		t.Fatalf("QueryGames failed: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("QueryGames returned %d games", len(games))
	}
	g := games[0]
	if g.Result != "white_wins" || g.EndTimeUTC == nil {
		t.Errorf("result = %q, end = %v", g.Result, g.EndTimeUTC)
	}
	if g.BlackDifficulty != "hard" || g.BlackType != int(core.PlayerComputer) {
		t.Errorf("black player = %d/%q", g.BlackType, g.BlackDifficulty)
	}

	initial, record, err := s.LoadRecord("g1")
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if initial != startFEN {
		t.Errorf("initial = %q", initial)
	}
	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1 Pe2-e4t.s. 0"
	if record != want {
		t.Errorf("record = %q, want %q", record, want)
	}
}

func TestQueryGamesFilters(t *testing.T) {
	s := newTestStore(t)
	seedGame(s, "a")
	seedGame(s, "b")
	s.RecordResult("b", "draw", time.Now().UTC())
	flush(t, s)

	tests := []struct {
		name                     string
		gameID, playerID, result string
		want                     []string
	}{
		{"all", "*", "*", "*", []string{"a", "b"}},
		{"by id", "a", "", "", []string{"a"}},
		{"by player", "", "black-b", "", []string{"b"}},
		{"by result", "", "", "ongoing", []string{"a"}},
		{"no match", "", "nobody", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := s.QueryGames(tt.gameID, tt.playerID, tt.result)
			if err != nil {
				t.Fatalf("QueryGames failed: %v", err)
			}
			var ids []string
			for _, g := range games {
				ids = append(ids, g.GameID)
			}
			if diff := cmp.Diff(tt.want, ids, cmpSorted); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var cmpSorted = cmp.Transformer("sort", func(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
})

func TestDeleteUndoneMoves(t *testing.T) {
	s := newTestStore(t)
	seedGame(s, "g")
	for i := 1; i <= 3; i++ {
		s.RecordMove(MoveRecord{GameID: "g", MoveNumber: i, Notation: "x", FENAfterMove: startFEN,
			PlayerColor: "w", MoveTimeUTC: time.Now().UTC()})
	}
	s.DeleteUndoneMoves("g", 1)
	flush(t, s)

	moves, err := s.QueryMoves("g")
	if err != nil {
		t.Fatalf("QueryMoves failed: %v", err)
	}
	if len(moves) != 1 || moves[0].MoveNumber != 1 {
		t.Errorf("moves after undo = %+v", moves)
	}
}

func TestLoadRecordMissingGame(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.LoadRecord("nope"); !errors.Is(err, core.ErrGameNotFound) {
		t.Errorf("LoadRecord = %v, want ErrGameNotFound", err)
	}
}

func TestWriteFailureDegrades(t *testing.T) {
	s := newTestStore(t)
	seedGame(s, "g")
	seedGame(s, "g") // primary key violation
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Flush(ctx)

	if s.IsHealthy() {
		t.Fatal("store still healthy after failed write")
	}
	if err := s.Flush(ctx); err == nil {
		t.Error("Flush on degraded store succeeded")
	}
}

func TestDeleteDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.db")
	s, err := NewStore(path, false, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	if err := s.DeleteDB(); err != nil {
		t.Fatalf("DeleteDB failed: %v", err)
	}
	if matches, _ := filepath.Glob(path); len(matches) != 0 {
		t.Errorf("database file still present: %v", matches)
	}
}
