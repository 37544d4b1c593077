package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chessrules/internal/board"
	"chessrules/internal/core"
	"chessrules/internal/engine"
	"chessrules/internal/game"
	"chessrules/internal/storage"
)

// fakeOpponent plays the first legal move of the last position it was sent.
type fakeOpponent struct {
	mu        sync.Mutex
	pos       *board.Position
	positions []string
	failWait  bool
	reply     string
	closed    bool
}

func (f *fakeOpponent) SetPosition(pos *board.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = pos.Clone()
	f.positions = append(f.positions, pos.FEN())
	return nil
}

func (f *fakeOpponent) StartCalculation() (time.Duration, error) {
	return time.Millisecond, nil
}

func (f *fakeOpponent) WaitBestMove() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWait {
		return "", fmt.Errorf("%w: %w", core.ErrEngine, engine.ErrTimeout)
	}
	if f.reply != "" {
		return f.reply, nil
	}
	moves := game.LegalMoves(f.pos)
	if len(moves) == 0 {
		return "", errors.New("no moves")
	}
	return moves[0].CompactCode(), nil
}

func (f *fakeOpponent) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeOpponent) lastPosition() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.positions) == 0 {
		return ""
	}
	return f.positions[len(f.positions)-1]
}

func newTestService(t *testing.T, opp *fakeOpponent, store *storage.Store) *Service {
	t.Helper()
	svc := New(Config{
		Store: store,
		NewEngine: func(engine.Config) (Opponent, error) {
			if opp == nil {
				return nil, engine.ErrNoPipe
			}
			return opp, nil
		},
	})
	t.Cleanup(func() { _ = svc.Close(time.Second) })
	return svc
}

var (
	human    = core.PlayerConfig{Type: core.PlayerHuman}
	computer = core.PlayerConfig{Type: core.PlayerComputer, Difficulty: "easy"}
)

func createGame(t *testing.T, svc *Service, req core.CreateGameRequest) *core.GameResponse {
	t.Helper()
	resp, err := svc.CreateGame(req)
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	return resp
}

func playMoves(t *testing.T, svc *Service, id string, codes ...string) *core.GameResponse {
	t.Helper()
	var resp *core.GameResponse
	for _, code := range codes {
		var err error
		if resp, err = svc.MakeMove(id, code); err != nil {
			t.Fatalf("MakeMove(%s) failed: %v", code, err)
		}
	}
	return resp
}

func TestHumanGame(t *testing.T) {
	svc := newTestService(t, nil, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human})

	if g.Engine != "none" || len(g.Moves) != 20 || g.Turn != "w" {
		t.Fatalf("new game = engine %q, %d moves, turn %q", g.Engine, len(g.Moves), g.Turn)
	}

	resp := playMoves(t, svc, g.GameID, "f2f3", "e7e5", "g2g4", "d8h4")
	if resp.State != "black_wins" {
		t.Errorf("State = %q, want black_wins", resp.State)
	}
	want := []string{"Pf2-f3", "pe7-e5t.s.", "Pg2-g4t.s.", "qd8-h4", "#"}
	if diff := cmp.Diff(want, resp.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if resp.LastEvent == nil || resp.LastEvent.Side != "w" || resp.LastEvent.Move != "" {
		t.Errorf("LastEvent = %+v", resp.LastEvent)
	}
	if len(resp.Moves) != 0 {
		t.Errorf("finished game offers %d moves", len(resp.Moves))
	}

	if _, err := svc.MakeMove(g.GameID, "a2a3"); !errors.Is(err, core.ErrGameOver) {
		t.Errorf("move after mate = %v, want ErrGameOver", err)
	}
}

func TestMakeMoveErrors(t *testing.T) {
	svc := newTestService(t, nil, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human})

	tests := []struct {
		name   string
		gameID string
		code   string
		want   error
	}{
		{"unknown game", "missing", "e2e4", core.ErrGameNotFound},
		{"illegal move", g.GameID, "e2e5", core.ErrIllegalMove},
		{"bad squares", g.GameID, "z9z9", core.ErrIllegalMove},
		{"computer move for human", g.GameID, ComputerMoveCode, core.ErrNotComputerTurn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.MakeMove(tt.gameID, tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("MakeMove(%q) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestComputerOpponent(t *testing.T) {
	opp := &fakeOpponent{}
	svc := newTestService(t, opp, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: computer})

	if g.Engine != "ready" || g.Players.Black.Difficulty != "easy" {
		t.Fatalf("engine %q, black %+v", g.Engine, g.Players.Black)
	}
	if svc.ComputerGames() != 1 {
		t.Errorf("ComputerGames() = %d", svc.ComputerGames())
	}

	resp := playMoves(t, svc, g.GameID, "e2e4")
	if opp.lastPosition() != resp.FEN {
		t.Errorf("engine position %q, game %q", opp.lastPosition(), resp.FEN)
	}

	if _, err := svc.MakeMove(g.GameID, "e7e5"); !errors.Is(err, core.ErrNotHumanTurn) {
		t.Errorf("human move on computer turn = %v, want ErrNotHumanTurn", err)
	}

	resp, err := svc.MakeMove(g.GameID, ComputerMoveCode)
	if err != nil {
		t.Fatalf("computer move failed: %v", err)
	}
	if len(resp.History) != 2 || resp.Turn != "w" {
		t.Errorf("after computer move: history %v, turn %q", resp.History, resp.Turn)
	}
	if resp.LastEvent.Side != "b" || resp.LastEvent.Move == "" {
		t.Errorf("LastEvent = %+v", resp.LastEvent)
	}
}

func TestEngineFailureDegrades(t *testing.T) {
	opp := &fakeOpponent{failWait: true}
	svc := newTestService(t, opp, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: computer, Black: human})

	_, err := svc.ComputerMove(g.GameID)
	if !errors.Is(err, core.ErrEngine) {
		t.Fatalf("ComputerMove = %v, want engine error", err)
	}

	resp, err := svc.GetGame(g.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Engine != "disabled" {
		t.Errorf("Engine = %q, want disabled", resp.Engine)
	}
	if resp.Players.White.Type != core.PlayerHuman || resp.Players.Black.Type != core.PlayerHuman {
		t.Errorf("players not handed to humans: %+v %+v", resp.Players.White, resp.Players.Black)
	}
	if len(resp.History) != 0 || resp.FEN != board.StartingFEN {
		t.Errorf("game changed by failed engine: %v %s", resp.History, resp.FEN)
	}
	if !opp.closed {
		t.Error("engine not closed")
	}
	if svc.ComputerGames() != 0 {
		t.Errorf("ComputerGames() = %d", svc.ComputerGames())
	}

	playMoves(t, svc, g.GameID, "e2e4", "e7e5")
}

func TestIllegalEngineMoveDegrades(t *testing.T) {
	opp := &fakeOpponent{reply: "e2e5"}
	svc := newTestService(t, opp, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: computer, Black: human})

	if _, err := svc.ComputerMove(g.GameID); !errors.Is(err, core.ErrEngine) {
		t.Fatalf("ComputerMove = %v, want engine error", err)
	}
	resp, _ := svc.GetGame(g.GameID)
	if resp.Engine != "disabled" {
		t.Errorf("Engine = %q", resp.Engine)
	}
}

func TestEngineLaunchFailure(t *testing.T) {
	svc := newTestService(t, nil, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: computer})

	if g.Engine != "disabled" || g.Players.Black.Type != core.PlayerHuman {
		t.Errorf("engine %q, black %+v", g.Engine, g.Players.Black)
	}
	playMoves(t, svc, g.GameID, "e2e4", "e7e5")
}

func TestComputerGameLimit(t *testing.T) {
	svc := New(Config{
		MaxComputerGames: 1,
		NewEngine:        func(engine.Config) (Opponent, error) { return &fakeOpponent{}, nil },
	})
	defer svc.Close(time.Second)

	first := createGame(t, svc, core.CreateGameRequest{White: human, Black: computer})
	second := createGame(t, svc, core.CreateGameRequest{White: human, Black: computer})
	if first.Engine != "ready" || second.Engine != "disabled" {
		t.Errorf("engines = %q, %q", first.Engine, second.Engine)
	}

	if err := svc.DeleteGame(first.GameID); err != nil {
		t.Fatal(err)
	}
	third := createGame(t, svc, core.CreateGameRequest{White: computer, Black: human})
	if third.Engine != "ready" {
		t.Errorf("engine after delete = %q", third.Engine)
	}
}

func TestCreateFromFENAndRecord(t *testing.T) {
	svc := newTestService(t, nil, nil)

	fen := "4k3/8/8/8/8/8/8/R3K3 b - - 0 30"
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human, FEN: fen})
	if g.FEN != fen || g.Turn != "b" {
		t.Errorf("FEN game = %s turn %s", g.FEN, g.Turn)
	}

	record := "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3 Pf2-f3 pe7-e5t.s. Pg2-g4t.s. qd8-h4 #"
	r := createGame(t, svc, core.CreateGameRequest{White: human, Black: human, Record: record})
	if r.State != "black_wins" || len(r.History) != 5 {
		t.Errorf("record game = %s with %d entries", r.State, len(r.History))
	}
	rec, err := svc.Record(r.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Record != record || rec.InitialFEN != board.StartingFEN {
		t.Errorf("Record() = %+v", rec)
	}

	if _, err := svc.CreateGame(core.CreateGameRequest{FEN: "not a fen"}); !errors.Is(err, core.ErrInvalidFEN) {
		t.Errorf("bad FEN = %v, want ErrInvalidFEN", err)
	}
	if _, err := svc.CreateGame(core.CreateGameRequest{Record: board.StartingFEN + " Pe2-e5"}); !errors.Is(err, core.ErrInvalidRecord) {
		t.Errorf("bad record = %v, want ErrInvalidRecord", err)
	}
}

func TestTerminalOperations(t *testing.T) {
	svc := newTestService(t, nil, nil)
	newGame := func() string {
		return createGame(t, svc, core.CreateGameRequest{White: human, Black: human}).GameID
	}

	tests := []struct {
		name  string
		run   func(id string) (*core.GameResponse, error)
		state string
		err   error
	}{
		{"resign", func(id string) (*core.GameResponse, error) { return svc.Resign(id, core.White) }, "black_wins", nil},
		{"resign off turn", func(id string) (*core.GameResponse, error) { return svc.Resign(id, core.Black) }, "", core.ErrNotActiveSide},
		{"timeout", func(id string) (*core.GameResponse, error) { return svc.RecordTimeout(id, core.Black) }, "white_wins", nil},
		{"agreement", func(id string) (*core.GameResponse, error) { return svc.ClaimDraw(id, "by_agreement") }, "draw", nil},
		{"fifty move not due", func(id string) (*core.GameResponse, error) { return svc.ClaimDraw(id, "fifty_move") }, "", core.ErrClaimUnavailable},
		{"stalemate claim", func(id string) (*core.GameResponse, error) { return svc.ClaimDraw(id, "stalemate") }, "", core.ErrAutomaticOnly},
		{"unknown draw", func(id string) (*core.GameResponse, error) { return svc.ClaimDraw(id, "boredom") }, "", core.ErrInvalidEvent},
		{"war result", func(id string) (*core.GameResponse, error) { return svc.WarResult(id, core.Black) }, "black_wins", nil},
		{"war without victor", func(id string) (*core.GameResponse, error) { return svc.WarResult(id, core.NoSide) }, "draw", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.run(newGame())
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.State != tt.state {
				t.Errorf("State = %q, want %q", resp.State, tt.state)
			}
		})
	}
}

func TestUndo(t *testing.T) {
	opp := &fakeOpponent{}
	svc := newTestService(t, opp, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human})
	playMoves(t, svc, g.GameID, "e2e4", "e7e5", "g1f3")
	if _, err := svc.Resign(g.GameID, core.Black); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Undo(g.GameID, 2)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if resp.State != "ongoing" || len(resp.History) != 2 || resp.Turn != "w" {
		t.Errorf("after undo: %s %v turn %s", resp.State, resp.History, resp.Turn)
	}
	if _, err := svc.Undo(g.GameID, 3); !errors.Is(err, core.ErrInvalidUndo) {
		t.Errorf("Undo(3) = %v, want ErrInvalidUndo", err)
	}
}

func TestWaitForChange(t *testing.T) {
	svc := newTestService(t, nil, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human})

	type result struct {
		resp *core.GameResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := svc.WaitForChange(context.Background(), g.GameID, 0)
		done <- result{resp, err}
	}()

	deadline := time.Now().Add(time.Second)
	for svc.waiter.Watchers(g.GameID) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	playMoves(t, svc, g.GameID, "d2d4")

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("WaitForChange failed: %v", r.err)
		}
		if len(r.resp.History) != 1 {
			t.Errorf("history = %v", r.resp.History)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher not woken")
	}

	resp, err := svc.WaitForChange(context.Background(), g.GameID, 0)
	if err != nil || len(resp.History) != 1 {
		t.Errorf("stale version did not return at once: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.WaitForChange(ctx, g.GameID, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("idle wait = %v, want deadline exceeded", err)
	}
}

func TestDeleteGame(t *testing.T) {
	svc := newTestService(t, nil, nil)
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human})

	if err := svc.DeleteGame(g.GameID); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}
	if _, err := svc.GetGame(g.GameID); !errors.Is(err, core.ErrGameNotFound) {
		t.Errorf("GetGame after delete = %v", err)
	}
	if err := svc.DeleteGame(g.GameID); !errors.Is(err, core.ErrGameNotFound) {
		t.Errorf("second DeleteGame = %v", err)
	}
}

func newStore(t *testing.T, path string) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(path, true, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return store
}

func flush(t *testing.T, store *storage.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func TestPersistAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")

	first := New(Config{Store: newStore(t, path)})
	g, err := first.CreateGame(core.CreateGameRequest{White: human, Black: human})
	if err != nil {
		t.Fatal(err)
	}
	playMoves(t, first, g.GameID, "e2e4", "d7d5", "e4d5", "d8d5", "b1c3")
	if _, err := first.Undo(g.GameID, 1); err != nil {
		t.Fatal(err)
	}
	playMoves(t, first, g.GameID, "g1f3")
	want, err := first.Resign(g.GameID, core.Black)
	if err != nil {
		t.Fatal(err)
	}
	flush(t, first.store)
	if err := first.Close(time.Second); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store := newStore(t, path)
	second := New(Config{Store: store})
	defer second.Close(time.Second)

	got, err := second.GetGame(g.GameID)
	if err != nil {
		t.Fatalf("GetGame after restart failed: %v", err)
	}
	if diff := cmp.Diff(want.History, got.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if got.FEN != want.FEN || got.State != "white_wins" {
		t.Errorf("restored %s %s", got.FEN, got.State)
	}
	if got.Players.White.ID != want.Players.White.ID {
		t.Errorf("white player id %q, want %q", got.Players.White.ID, want.Players.White.ID)
	}

	games, err := store.QueryGames(g.GameID, "", "")
	if err != nil || len(games) != 1 || games[0].Result != "white_wins" {
		t.Errorf("stored game = %+v, %v", games, err)
	}

	if err := second.DeleteGame(g.GameID); err != nil {
		t.Fatal(err)
	}
	if _, err := second.GetGame(g.GameID); !errors.Is(err, core.ErrGameNotFound) {
		t.Errorf("GetGame after delete = %v", err)
	}
}

func TestComputerGameLimitConcurrent(t *testing.T) {
	const limit = 3
	svc := New(Config{
		MaxComputerGames: limit,
		NewEngine:        func(engine.Config) (Opponent, error) { return &fakeOpponent{}, nil },
	})
	defer svc.Close(time.Second)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ready int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := svc.CreateGame(core.CreateGameRequest{White: human, Black: computer})
			if err != nil {
				t.Errorf("CreateGame failed: %v", err)
				return
			}
			if g.Engine == "ready" {
				mu.Lock()
				ready++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ready != limit || svc.ComputerGames() != limit {
		t.Errorf("ready games %d, live engines %d, want %d", ready, svc.ComputerGames(), limit)
	}
}

func TestEngineStartFailureReleasesSlot(t *testing.T) {
	svc := New(Config{
		MaxComputerGames: 1,
		NewEngine:        func(engine.Config) (Opponent, error) { return nil, engine.ErrNoPipe },
	})
	defer svc.Close(time.Second)

	for i := 0; i < 3; i++ {
		g := createGame(t, svc, core.CreateGameRequest{White: human, Black: computer})
		if g.Engine != "disabled" {
			t.Errorf("engine = %q, want disabled", g.Engine)
		}
	}
	if n := svc.ComputerGames(); n != 0 {
		t.Errorf("ComputerGames() = %d after failed starts", n)
	}
}

func TestResumeRecordFromFEN(t *testing.T) {
	svc := newTestService(t, nil, nil)

	fen := "4k3/8/8/8/8/8/4P3/4K2R w K - 0 1"
	g := createGame(t, svc, core.CreateGameRequest{White: human, Black: human, FEN: fen})
	want := playMoves(t, svc, g.GameID, "e2e3", "e8d7", "e1g1")

	rec, err := svc.Record(g.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.InitialFEN != fen {
		t.Fatalf("InitialFEN = %q, want %q", rec.InitialFEN, fen)
	}

	got := createGame(t, svc, core.CreateGameRequest{White: human, Black: human, FEN: rec.InitialFEN, Record: rec.Record})
	if got.FEN != want.FEN {
		t.Errorf("resumed FEN = %s, want %s", got.FEN, want.FEN)
	}
	if diff := cmp.Diff(want.History, got.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.CreateGame(core.CreateGameRequest{Record: rec.Record}); !errors.Is(err, core.ErrInvalidRecord) {
		t.Errorf("record without its FEN = %v, want ErrInvalidRecord", err)
	}
}

func TestPersistWarResultWonBySideToMove(t *testing.T) {
	tests := []struct {
		name   string
		moves  []string
		victor core.Side
		state  string
	}{
		{"white to move wins", nil, core.White, "white_wins"},
		{"black to move wins", []string{"e2e4"}, core.Black, "black_wins"},
		{"white to move loses", nil, core.Black, "black_wins"},
		{"nobody wins", []string{"e2e4"}, core.NoSide, "draw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "games.db")

			first := New(Config{Store: newStore(t, path)})
			g, err := first.CreateGame(core.CreateGameRequest{White: human, Black: human})
			if err != nil {
				t.Fatal(err)
			}
			if len(tt.moves) > 0 {
				playMoves(t, first, g.GameID, tt.moves...)
			}
			want, err := first.WarResult(g.GameID, tt.victor)
			if err != nil {
				t.Fatal(err)
			}
			if want.State != tt.state {
				t.Fatalf("state before restart = %s, want %s", want.State, tt.state)
			}
			flush(t, first.store)
			if err := first.Close(time.Second); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			second := New(Config{Store: newStore(t, path)})
			defer second.Close(time.Second)

			got, err := second.GetGame(g.GameID)
			if err != nil {
				t.Fatalf("GetGame after restart failed: %v", err)
			}
			if got.State != tt.state {
				t.Errorf("restored state = %s, want %s", got.State, tt.state)
			}
			if diff := cmp.Diff(want.History, got.History); diff != "" {
				t.Errorf("history mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
