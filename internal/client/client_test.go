package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"chessrules/internal/board"
	"chessrules/internal/cli"
	"chessrules/internal/core"
	"chessrules/internal/engine"
	"chessrules/internal/game"
	"chessrules/internal/service"
	clitransport "chessrules/internal/transport/cli"
	apihttp "chessrules/internal/transport/http"
)

type firstMoveEngine struct{ pos *board.Position }

func (e *firstMoveEngine) SetPosition(p *board.Position) error      { e.pos = p.Clone(); return nil }
func (e *firstMoveEngine) StartCalculation() (time.Duration, error) { return 0, nil }
func (e *firstMoveEngine) WaitBestMove() (string, error) {
	return game.LegalMoves(e.pos)[0].CompactCode(), nil
}
func (e *firstMoveEngine) Close() error { return nil }

// startServer serves a fresh service on a loopback port.
func startServer(t *testing.T) *Client {
	t.Helper()
	svc := service.New(service.Config{
		NewEngine: func(engine.Config) (service.Opponent, error) { return &firstMoveEngine{}, nil },
	})
	app := apihttp.NewFiberApp(svc, apihttp.Config{RateLimit: 1000})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = svc.Close(time.Second)
	})

	return New("http://"+ln.Addr().String()+"/", nil)
}

var humans = core.CreateGameRequest{
	White: core.PlayerConfig{Type: core.PlayerHuman},
	Black: core.PlayerConfig{Type: core.PlayerHuman},
}

func TestHealth(t *testing.T) {
	c := startServer(t)
	h, err := c.Health()
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if h.Status != "healthy" || h.Storage != "disabled" {
		t.Errorf("health = %+v", h)
	}
}

func TestGameRoundTrip(t *testing.T) {
	c := startServer(t)

	g, err := c.CreateGame(humans)
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if g.FEN != board.StartingFEN || len(g.Moves) != 20 {
		t.Fatalf("new game = %s with %d moves", g.FEN, len(g.Moves))
	}

	g, err = c.MakeMove(g.GameID, "e2e4")
	if err != nil {
		t.Fatalf("MakeMove failed: %v", err)
	}
	if g.Turn != "b" || g.LastEvent == nil || g.LastEvent.Notation != "Pe2-e4t.s." {
		t.Errorf("after e2e4: turn %s, last %+v", g.Turn, g.LastEvent)
	}

	if _, err := c.MakeMove(g.GameID, "e7e4"); !errors.Is(err, core.ErrIllegalMove) {
		t.Errorf("illegal move error = %v, want ErrIllegalMove", err)
	}

	b, err := c.Board(g.GameID)
	if err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if b.FEN != g.FEN || !strings.Contains(b.Board, "a b c d e f g h") {
		t.Errorf("board = %+v", b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	waited, err := c.WaitForChange(ctx, g.GameID, 0)
	if err != nil {
		t.Fatalf("WaitForChange failed: %v", err)
	}
	if len(waited.History) != 1 {
		t.Errorf("waited history = %v", waited.History)
	}

	g, err = c.Undo(g.GameID, 1)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if g.FEN != board.StartingFEN {
		t.Errorf("after undo FEN = %s", g.FEN)
	}

	g, err = c.Resign(g.GameID, core.White)
	if err != nil {
		t.Fatalf("Resign failed: %v", err)
	}
	if g.State != "black_wins" {
		t.Errorf("state after resign = %s", g.State)
	}
	if _, err := c.MakeMove(g.GameID, "e2e4"); !errors.Is(err, core.ErrGameOver) {
		t.Errorf("move after resign error = %v, want ErrGameOver", err)
	}

	rec, err := c.Record(g.GameID)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Record != board.StartingFEN+" 0" {
		t.Errorf("record = %q", rec.Record)
	}

	if err := c.DeleteGame(g.GameID); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}
	_, err = c.GetGame(g.GameID)
	if !IsNotFound(err) || !errors.Is(err, core.ErrGameNotFound) {
		t.Errorf("GetGame after delete error = %v", err)
	}
}

func TestComputerMoveAndDraws(t *testing.T) {
	c := startServer(t)

	g, err := c.CreateGame(core.CreateGameRequest{
		White: core.PlayerConfig{Type: core.PlayerComputer, Difficulty: "easy"},
		Black: core.PlayerConfig{Type: core.PlayerHuman},
	})
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if _, err := c.MakeMove(g.GameID, "e2e4"); !errors.Is(err, core.ErrNotHumanTurn) {
		t.Errorf("human move on computer turn error = %v", err)
	}
	g, err = c.ComputerMove(g.GameID)
	if err != nil {
		t.Fatalf("ComputerMove failed: %v", err)
	}
	if g.Turn != "b" {
		t.Errorf("turn after computer move = %s", g.Turn)
	}

	if _, err := c.ClaimDraw(g.GameID, "fifty_move"); err == nil {
		t.Error("fifty move claim at move one succeeded")
	}
	g, err = c.ClaimDraw(g.GameID, "by_agreement")
	if err != nil {
		t.Fatalf("ClaimDraw failed: %v", err)
	}
	if g.State != "draw" {
		t.Errorf("state = %s", g.State)
	}

	h, err := c.CreateGame(humans)
	if err != nil {
		t.Fatal(err)
	}
	h, err = c.WarResult(h.GameID, core.NoSide)
	if err != nil {
		t.Fatalf("WarResult failed: %v", err)
	}
	if h.State != "draw" {
		t.Errorf("war result state = %s", h.State)
	}
}

func TestTerminalOverRemoteAPI(t *testing.T) {
	c := startServer(t)

	script := strings.Join([]string{"new h h", "f2f3", "e7e5", "g2g4", "d8h4", "record", "quit"}, "\n")
	var out bytes.Buffer
	h := clitransport.New(c, cli.New(strings.NewReader(script), &out))
	if err := h.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, want := range []string{"Game started.", "Game Over: black_wins", "qd8-h4 #"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, out.String())
		}
	}
}
