package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chessrules/internal/board"
	"chessrules/internal/storage"
)

func TestInitQueryDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	var out bytes.Buffer

	if err := RunTo(&out, []string{"init", "-path", path}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out.String(), "Database initialized at: "+path) {
		t.Errorf("init output = %q", out.String())
	}

	store, err := storage.NewStore(path, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	store.RecordNewGame(storage.GameRecord{
		GameID:        "abc",
		InitialFEN:    board.StartingFEN,
		WhitePlayerID: "white-player-1",
		WhiteType:     1,
		BlackPlayerID: "black-player-1",
		BlackType:     2,
		StartTimeUTC:  time.Now().UTC(),
	})
	if err := store.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out.Reset()
	if err := RunTo(&out, []string{"query", "-path", path, "-result", "ongoing"}); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, want := range []string{"abc...", "white-pl (T1)", "ongoing", "Found 1 game(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("query output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := RunTo(&out, []string{"query", "-path", path, "-result", "draw"}); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(out.String(), "No games found") {
		t.Errorf("filtered query output = %q", out.String())
	}

	out.Reset()
	if err := RunTo(&out, []string{"record", "-path", path, "-gameId", "abc"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if !strings.Contains(out.String(), "Record:  "+board.StartingFEN) {
		t.Errorf("record output = %q", out.String())
	}

	out.Reset()
	if err := RunTo(&out, []string{"delete", "-path", path}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Database deleted") {
		t.Errorf("delete output = %q", out.String())
	}
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	tests := [][]string{
		nil,
		{"vacuum"},
		{"init"},
		{"record", "-path", filepath.Join(t.TempDir(), "x.db")},
	}
	for _, args := range tests {
		if err := RunTo(&out, args); err == nil {
			t.Errorf("RunTo(%q) succeeded", args)
		}
	}
}
