package game

import (
	"chessrules/internal/board"
	"chessrules/internal/core"
	"chessrules/internal/move"
)

type offset struct{ df, dr int }

var (
	kingOffsets = []offset{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}
	knightOffsets = []offset{
		{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
		{1, -2}, {1, 2}, {2, -1}, {2, 1},
	}
	rookDirections   = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirections = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	queenDirections  = append(append([]offset(nil), rookDirections...), bishopDirections...)
)

func (g *Game) updatePossibleMoves() {
	g.moves = LegalMoves(&g.position)
}

// LegalMoves enumerates the moves of the side to move that do not leave its king
// in check. Every candidate is verified on a scratch copy of the position.
func LegalMoves(p *board.Position) []move.Event {
	side := p.Turn()
	var candidates []move.Event
	for _, sq := range core.AllSquares() {
		piece := p.PieceAt(sq)
		if !piece.Valid() || piece.Side != side {
			continue
		}
		switch piece.Type {
		case core.King:
			candidates = stepMoves(p, piece, sq, kingOffsets, candidates)
			candidates = castlingMoves(p, side, candidates)
		case core.Queen:
			candidates = slideMoves(p, piece, sq, queenDirections, candidates)
		case core.Rook:
			candidates = slideMoves(p, piece, sq, rookDirections, candidates)
		case core.Bishop:
			candidates = slideMoves(p, piece, sq, bishopDirections, candidates)
		case core.Knight:
			candidates = stepMoves(p, piece, sq, knightOffsets, candidates)
		case core.Pawn:
			candidates = pawnMoves(p, piece, sq, candidates)
		}
	}

	legal := candidates[:0]
	for _, ev := range candidates {
		if leavesKingSafe(p, ev) {
			legal = append(legal, ev)
		}
	}
	return legal
}

// leavesKingSafe plays ev on a copy of p and checks the mover's king.
func leavesKingSafe(p *board.Position, ev move.Event) bool {
	scratch := *p
	if err := scratch.Apply(ev); err != nil {
		return false
	}
	return !scratch.IsInCheck(ev.Side())
}

// target builds the move or capture of piece onto to, if the square can be entered.
func target(p *board.Position, piece core.Piece, from, to core.Square) (move.Event, bool) {
	if !to.Valid() {
		return move.Event{}, false
	}
	occupant := p.PieceAt(to)
	if occupant.Side == piece.Side {
		return move.Event{}, false
	}
	var ev move.Event
	if occupant.IsEmpty() {
		ev = move.NewMove(piece, from, to, promotion(piece, to))
	} else {
		ev = move.NewCapture(piece, from, to, occupant, promotion(piece, to))
	}
	return ev, ev.Valid()
}

// promotion returns the queen a pawn turns into on its last rank.
func promotion(piece core.Piece, to core.Square) core.Piece {
	if piece.Type != core.Pawn {
		return core.NoPiece
	}
	if (piece.Side == core.White && to.Rank() == 7) || (piece.Side == core.Black && to.Rank() == 0) {
		return core.NewPiece(piece.Side, core.Queen)
	}
	return core.NoPiece
}

func stepMoves(p *board.Position, piece core.Piece, from core.Square, offsets []offset, out []move.Event) []move.Event {
	for _, o := range offsets {
		if ev, ok := target(p, piece, from, from.Delta(o.df, o.dr)); ok {
			out = append(out, ev)
		}
	}
	return out
}

func slideMoves(p *board.Position, piece core.Piece, from core.Square, directions []offset, out []move.Event) []move.Event {
	for _, o := range directions {
		for to := from.Delta(o.df, o.dr); to.Valid(); to = to.Delta(o.df, o.dr) {
			if ev, ok := target(p, piece, from, to); ok {
				out = append(out, ev)
			}
			if !p.PieceAt(to).IsEmpty() {
				break
			}
		}
	}
	return out
}

func pawnMoves(p *board.Position, pawn core.Piece, from core.Square, out []move.Event) []move.Event {
	forward := board.Forward(pawn.Side)

	one := from.Delta(0, forward)
	if one.Valid() && p.PieceAt(one).IsEmpty() {
		if ev := move.NewMove(pawn, from, one, promotion(pawn, one)); ev.Valid() {
			out = append(out, ev)
		}
		two := one.Delta(0, forward)
		if from.Rank() == startRank(pawn.Side) && p.PieceAt(two).IsEmpty() {
			if ev := move.NewTwoSquare(pawn, from, two); ev.Valid() {
				out = append(out, ev)
			}
		}
	}

	for _, df := range []int{-1, 1} {
		to := from.Delta(df, forward)
		if !to.Valid() {
			continue
		}
		occupant := p.PieceAt(to)
		switch {
		case occupant.Valid() && occupant.Side != pawn.Side:
			if ev := move.NewCapture(pawn, from, to, occupant, promotion(pawn, to)); ev.Valid() {
				out = append(out, ev)
			}
		case occupant.IsEmpty() && to == p.EnPassant():
			victim := p.PieceAt(to.Delta(0, -forward))
			if ev := move.NewEnPassant(pawn, from, to, victim); ev.Valid() {
				out = append(out, ev)
			}
		}
	}
	return out
}

func startRank(side core.Side) int {
	if side == core.White {
		return 1
	}
	return 6
}

// castlingMoves adds the castling moves whose right is held, whose path between
// king and rook is empty and whose king path is not attacked.
func castlingMoves(p *board.Position, side core.Side, out []move.Event) []move.Event {
	if p.IsInCheck(side) {
		return out
	}
	enemy := core.Opponent(side)
	for _, kingside := range []bool{true, false} {
		if !p.HasCastlingRight(side, kingside) {
			continue
		}
		ev := move.Castling(side, kingside)
		if p.PieceAt(ev.From()) != ev.Piece() || p.PieceAt(ev.RookFrom()) != ev.RookPiece() {
			continue
		}

		step := 1
		if !kingside {
			step = -1
		}
		clear := true
		for sq := ev.From().Delta(step, 0); sq != ev.RookFrom(); sq = sq.Delta(step, 0) {
			if !p.PieceAt(sq).IsEmpty() {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}

		if p.IsUnderAttack(ev.From().Delta(step, 0), enemy) || p.IsUnderAttack(ev.To(), enemy) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
