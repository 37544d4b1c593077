package game

import (
	"errors"
	"fmt"
	"strings"

	"chessrules/internal/board"
	"chessrules/internal/core"
	"chessrules/internal/move"
)

// fenFields is the number of whitespace separated fields in a FEN record.
const fenFields = 6

// Record serializes the game as its current FEN followed by every history
// token in chronological order.
func (g *Game) Record() string {
	var sb strings.Builder
	sb.WriteString(g.position.FEN())
	for _, e := range g.history {
		sb.WriteByte(' ')
		sb.WriteString(e.Event.Notation())
	}
	return sb.String()
}

// ParseRecord rebuilds a game from a record. A record without move tokens is a
// bare position and the game starts there. Otherwise the tokens are replayed
// from the standard initial layout and must end on the embedded position.
func ParseRecord(record string, opts ...ReplayOption) (*Game, error) {
	return ParseRecordFrom(nil, record, opts...)
}

// ReplayOption adjusts how a record is replayed.
type ReplayOption func(*replayOptions)

type replayOptions struct {
	victor core.Side
}

// WithVictor names the winner of a recorded checkmate token. The token itself
// only says a checkmate loss happened, so a war result won by the side to move
// needs the stored outcome to replay the right way round.
func WithVictor(victor core.Side) ReplayOption {
	return func(o *replayOptions) { o.victor = victor }
}

// ParseRecordFrom replays a record from start instead of the standard layout.
// A nil start means the standard layout.
func ParseRecordFrom(start *board.Position, record string, opts ...ReplayOption) (*Game, error) {
	var o replayOptions
	for _, opt := range opts {
		opt(&o)
	}

	fields := strings.Fields(record)
	if len(fields) < fenFields {
		return nil, fmt.Errorf("%w: missing position", core.ErrInvalidRecord)
	}
	final, err := board.ParseFEN(strings.Join(fields[:fenFields], " "))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
	}
	tokens := fields[fenFields:]

	if len(tokens) == 0 && start == nil {
		return FromPosition(final), nil
	}
	if start == nil {
		start = board.NewStartPosition()
	}

	g := FromPosition(start)
	for i, token := range tokens {
		if err := g.replay(token, o); err != nil {
			return nil, fmt.Errorf("%w: token %d %q: %w", core.ErrInvalidRecord, i+1, token, err)
		}
	}

	if !g.position.Equal(final) {
		return nil, fmt.Errorf("%w: replay ends on %q, record holds %q",
			core.ErrInvalidRecord, g.position.Key(), final.Key())
	}
	if g.position.FullMoveNumber() != final.FullMoveNumber() {
		g.warnings = append(g.warnings, fmt.Sprintf("full move number %d, replay reached %d",
			final.FullMoveNumber(), g.position.FullMoveNumber()))
	}
	if g.position.HalfMoveClock() != final.HalfMoveClock() {
		g.warnings = append(g.warnings, fmt.Sprintf("half move clock %d, replay reached %d",
			final.HalfMoveClock(), g.position.HalfMoveClock()))
	}
	return g, nil
}

// replay applies one history token for the side to move.
func (g *Game) replay(token string, o replayOptions) error {
	ev, err := move.Parse(token, g.position.Turn())
	if err != nil {
		return err
	}
	if ev.Kind() == move.KindLoss && ev.LossType() == move.Checkmate && o.victor.Valid() {
		ev = move.NewLoss(move.Checkmate, core.Opponent(o.victor))
	}

	if ev.IsTerminal() {
		// Endings found by CheckEndgame are already in the history
		if g.IsOver() && g.LastEvent().Equal(ev) {
			return nil
		}
		if g.IsOver() {
			return core.ErrGameOver
		}
		return g.replayTerminal(ev)
	}
	return g.MakeMove(ev)
}

func (g *Game) replayTerminal(ev move.Event) error {
	if ev.Kind() == move.KindLoss {
		err := g.RecordLoss(ev.LossType(), ev.Side())
		if errors.Is(err, core.ErrAutomaticOnly) {
			return g.RecordWarResult(core.Opponent(ev.Side()))
		}
		return err
	}

	err := g.RecordDraw(ev.DrawType())
	if errors.Is(err, core.ErrAutomaticOnly) && ev.DrawType() == move.DeadPosition {
		return g.RecordWarResult(core.NoSide)
	}
	return err
}
