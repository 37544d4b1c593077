package board

import (
	"fmt"

	"chessrules/internal/core"
	"chessrules/internal/move"
)

// rookHomes maps each castling right to the square its rook starts on.
var rookHomes = map[Castling]core.Square{
	WhiteKingside:  core.NewSquare(core.FileH, 0),
	WhiteQueenside: core.NewSquare(core.FileA, 0),
	BlackKingside:  core.NewSquare(core.FileH, 7),
	BlackQueenside: core.NewSquare(core.FileA, 7),
}

// Apply plays a board event on the position. The event must fit the current
// board: right side to move, moving piece on its origin, captured piece present.
// Check safety is not verified here.
func (p *Position) Apply(ev move.Event) error {
	if err := p.check(ev); err != nil {
		return err
	}

	mover := ev.Piece()
	if ev.IsCapture() {
		p.squares[ev.CapturedSquare()] = core.NoPiece
		p.revokeRookRight(ev.CapturedSquare())
	}

	p.squares[ev.From()] = core.NoPiece
	if ev.Promotion().Valid() {
		p.squares[ev.To()] = ev.Promotion()
	} else {
		p.squares[ev.To()] = mover
	}

	if ev.Kind() == move.KindCastling {
		p.squares[ev.RookFrom()] = core.NoPiece
		p.squares[ev.RookTo()] = ev.RookPiece()
	}

	switch mover.Type {
	case core.King:
		p.castling &^= CastlingRight(mover.Side, true) | CastlingRight(mover.Side, false)
	case core.Rook:
		p.revokeRookRight(ev.From())
	}

	if ev.Kind() == move.KindTwoSquare {
		p.enPassant = ev.PassedSquare()
	} else {
		p.enPassant = core.NoSquare
	}

	if mover.Type == core.Pawn || ev.IsCapture() {
		p.halfmove = 0
	} else {
		p.halfmove++
	}
	if mover.Side == core.Black {
		p.fullmove++
	}
	p.turn = core.Opponent(p.turn)

	return nil
}

// revokeRookRight drops the castling right tied to a rook home square.
func (p *Position) revokeRookRight(sq core.Square) {
	for right, home := range rookHomes {
		if home == sq {
			p.castling &^= right
		}
	}
}

// check verifies that ev can be played on the current board.
func (p *Position) check(ev move.Event) error {
	if !ev.Valid() {
		return core.ErrInvalidEvent
	}
	if !ev.IsMove() {
		return fmt.Errorf("%w: %s does not change the board", core.ErrIllegalMove, ev.Kind())
	}
	if ev.Side() != p.turn {
		return fmt.Errorf("%w: %s is not to move", core.ErrIllegalMove, ev.Side())
	}
	if p.PieceAt(ev.From()) != ev.Piece() {
		return fmt.Errorf("%w: no %s on %s", core.ErrIllegalMove, ev.Piece(), ev.From())
	}

	switch ev.Kind() {
	case move.KindCapture:
		if p.PieceAt(ev.To()) != ev.Captured() {
			return fmt.Errorf("%w: no %s on %s", core.ErrIllegalMove, ev.Captured(), ev.To())
		}
	case move.KindEnPassant:
		if ev.To() != p.enPassant {
			return fmt.Errorf("%w: %s is not the en passant square", core.ErrIllegalMove, ev.To())
		}
		if !p.PieceAt(ev.To()).IsEmpty() || p.PieceAt(ev.CapturedSquare()) != ev.Captured() {
			return fmt.Errorf("%w: en passant capture does not fit the board", core.ErrIllegalMove)
		}
	case move.KindCastling:
		if p.PieceAt(ev.RookFrom()) != ev.RookPiece() {
			return fmt.Errorf("%w: no %s on %s", core.ErrIllegalMove, ev.RookPiece(), ev.RookFrom())
		}
		if !p.PieceAt(ev.To()).IsEmpty() || !p.PieceAt(ev.RookTo()).IsEmpty() {
			return fmt.Errorf("%w: castling path is occupied", core.ErrIllegalMove)
		}
	default:
		if !p.PieceAt(ev.To()).IsEmpty() {
			return fmt.Errorf("%w: %s is occupied", core.ErrIllegalMove, ev.To())
		}
	}
	return nil
}
