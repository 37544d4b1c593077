// Package game implements the chess game state machine: legal move
// enumeration, move application, history and automatic game endings.
package game

import (
	"fmt"

	"chessrules/internal/board"
	"chessrules/internal/core"
	"chessrules/internal/move"
)

// Entry is one history record: the position before the event and the event itself.
type Entry struct {
	Before board.Position
	Event  move.Event
}

// Game owns a position, its history and the legal moves of the side to move.
// A Game is not safe for concurrent use.
type Game struct {
	initial  board.Position
	position board.Position
	history  []Entry
	moves    []move.Event
	result   core.Result
	victor   core.Side
	warnings []string
}

// New starts a game from the standard initial layout.
func New() *Game {
	return FromPosition(board.NewStartPosition())
}

// FromPosition starts a game from an arbitrary position. Endings already present
// on the board (mate, stalemate, dead position) are recorded immediately.
func FromPosition(p *board.Position) *Game {
	g := &Game{
		initial:  *p,
		position: *p,
		result:   core.ResultOngoing,
	}
	g.updatePossibleMoves()
	g.CheckEndgame()
	return g
}

// Position returns a copy of the current position.
func (g *Game) Position() *board.Position {
	return g.position.Clone()
}

// Initial returns a copy of the position the game started from.
func (g *Game) Initial() *board.Position {
	return g.initial.Clone()
}

func (g *Game) Turn() core.Side {
	return g.position.Turn()
}

func (g *Game) Result() core.Result {
	return g.result
}

// Victor is the winning side of a won game, core.NoSide otherwise.
func (g *Game) Victor() core.Side {
	return g.victor
}

func (g *Game) IsOver() bool {
	return g.result != core.ResultOngoing
}

// History returns a copy of the history in chronological order.
func (g *Game) History() []Entry {
	return append([]Entry(nil), g.history...)
}

// LastEvent returns the most recent event, or an invalid event for a fresh game.
func (g *Game) LastEvent() move.Event {
	if len(g.history) == 0 {
		return move.Event{}
	}
	return g.history[len(g.history)-1].Event
}

// PossibleMoves returns the legal moves of the side to move.
func (g *Game) PossibleMoves() []move.Event {
	return append([]move.Event(nil), g.moves...)
}

// Warnings lists non-fatal problems found while loading a record.
func (g *Game) Warnings() []string {
	return append([]string(nil), g.warnings...)
}

// MakeMove plays ev, which must be one of the current possible moves.
func (g *Game) MakeMove(ev move.Event) error {
	if g.IsOver() {
		return fmt.Errorf("%w: %s", core.ErrGameOver, g.LastEvent().Describe())
	}
	if !ev.Valid() {
		return core.ErrInvalidEvent
	}
	if !g.isPossible(ev) {
		return fmt.Errorf("%w: %s", core.ErrIllegalMove, ev.Notation())
	}

	before := g.position
	if err := g.position.Apply(ev); err != nil {
		g.position = before
		return err
	}
	g.history = append(g.history, Entry{Before: before, Event: ev})
	g.updatePossibleMoves()
	g.CheckEndgame()
	return nil
}

func (g *Game) isPossible(ev move.Event) bool {
	for _, m := range g.moves {
		if m.Equal(ev) {
			return true
		}
	}
	return false
}

// RecordLoss ends the game with side losing. Checkmate is only detected
// automatically and resignation is only accepted from the side to move.
func (g *Game) RecordLoss(t move.LossType, side core.Side) error {
	if g.IsOver() {
		return core.ErrGameOver
	}
	switch t {
	case move.Checkmate:
		return fmt.Errorf("%w: %s", core.ErrAutomaticOnly, t)
	case move.Resignation:
		if side != g.position.Turn() {
			return fmt.Errorf("%w: %s cannot resign on %s's turn", core.ErrNotActiveSide, side, g.position.Turn())
		}
	}

	ev := move.NewLoss(t, side)
	if !ev.Valid() {
		return core.ErrInvalidEvent
	}
	g.finish(ev)
	return nil
}

// RecordDraw ends the game as a draw when the claimed condition holds.
func (g *Game) RecordDraw(t move.DrawType) error {
	if g.IsOver() {
		return core.ErrGameOver
	}
	switch t {
	case move.Stalemate, move.DeadPosition:
		return fmt.Errorf("%w: %s", core.ErrAutomaticOnly, t)
	case move.FiftyMove:
		if g.position.HalfMoveClock() < 100 {
			return fmt.Errorf("%w: only %d plies without pawn move or capture", core.ErrClaimUnavailable, g.position.HalfMoveClock())
		}
	case move.ThreefoldRepetition:
		if !g.IsThirdRepetition() {
			return fmt.Errorf("%w: position has not occurred three times", core.ErrClaimUnavailable)
		}
	}

	ev := move.NewDraw(t)
	if !ev.Valid() {
		return core.ErrInvalidEvent
	}
	g.finish(ev)
	return nil
}

// RecordWarResult ends the game by decree when normal rules are suspended.
// core.NoSide means nobody won and is recorded as a dead position.
func (g *Game) RecordWarResult(victor core.Side) error {
	if g.IsOver() {
		return core.ErrGameOver
	}
	if victor == core.NoSide {
		g.finish(move.NewDraw(move.DeadPosition))
		return nil
	}
	ev := move.NewLoss(move.Checkmate, core.Opponent(victor))
	if !ev.Valid() {
		return core.ErrInvalidEvent
	}
	g.finish(ev)
	return nil
}

// IsThirdRepetition reports whether the current position occurred at least
// twice before.
func (g *Game) IsThirdRepetition() bool {
	count := 1
	for i := range g.history {
		if g.history[i].Before.Equal(&g.position) {
			count++
		}
	}
	return count >= 3
}

// CheckEndgame records a dead position, checkmate or stalemate, in that order
// of precedence. It does nothing on a finished game.
func (g *Game) CheckEndgame() {
	if g.IsOver() {
		return
	}
	switch {
	case g.position.IsDead():
		g.finish(move.NewDraw(move.DeadPosition))
	case len(g.moves) == 0 && g.position.InCheck():
		g.finish(move.NewLoss(move.Checkmate, g.position.Turn()))
	case len(g.moves) == 0:
		g.finish(move.NewDraw(move.Stalemate))
	}
}

// finish appends a terminal event and freezes the game.
func (g *Game) finish(ev move.Event) {
	g.history = append(g.history, Entry{Before: g.position, Event: ev})
	g.moves = nil
	if ev.Kind() == move.KindLoss {
		g.result = core.ResultWon
		g.victor = core.Opponent(ev.Side())
	} else {
		g.result = core.ResultDrawn
		g.victor = core.NoSide
	}
}

// Undo takes back the last count history entries, terminal events included.
func (g *Game) Undo(count int) error {
	if count < 1 {
		return fmt.Errorf("%w: %d", core.ErrInvalidUndo, count)
	}
	if len(g.history) < count {
		return fmt.Errorf("%w: cannot undo %d events, only %d in history", core.ErrInvalidUndo, count, len(g.history))
	}

	g.position = g.history[len(g.history)-count].Before
	g.history = g.history[:len(g.history)-count]
	g.result = core.ResultOngoing
	g.victor = core.NoSide
	g.updatePossibleMoves()
	g.CheckEndgame()
	return nil
}

// FindPossibleMove looks up the legal move between two squares.
func (g *Game) FindPossibleMove(from, to core.Square) (move.Event, bool) {
	for _, m := range g.moves {
		if m.From() == from && m.To() == to {
			return m, true
		}
	}
	return move.Event{}, false
}

// FindCompactMove looks up a move given as "e2e4" or "e7e8q". The promotion
// letter is informational: pawns always promote to a queen.
func (g *Game) FindCompactMove(code string) (move.Event, bool) {
	if len(code) != 4 && len(code) != 5 {
		return move.Event{}, false
	}
	from, to := core.ParseSquare(code[0:2]), core.ParseSquare(code[2:4])
	if !from.Valid() || !to.Valid() {
		return move.Event{}, false
	}
	return g.FindPossibleMove(from, to)
}
