package board

import "chessrules/internal/core"

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
)

// Forward returns the rank direction pawns of side advance in.
func Forward(side core.Side) int {
	if side == core.Black {
		return -1
	}
	return 1
}

// IsUnderAttack reports whether any piece of attacker could capture on sq. Pins
// against the attacker's own king are ignored.
func (p *Position) IsUnderAttack(sq core.Square, attacker core.Side) bool {
	if !sq.Valid() || !attacker.Valid() {
		return false
	}

	king := core.NewPiece(attacker, core.King)
	for _, o := range kingOffsets {
		if p.PieceAt(sq.Delta(o.df, o.dr)) == king {
			return true
		}
	}

	queen := core.NewPiece(attacker, core.Queen)
	rook := core.NewPiece(attacker, core.Rook)
	for _, o := range rookDirections {
		if hit := p.firstOnRay(sq, o); hit == rook || hit == queen {
			return true
		}
	}
	bishop := core.NewPiece(attacker, core.Bishop)
	for _, o := range bishopDirections {
		if hit := p.firstOnRay(sq, o); hit == bishop || hit == queen {
			return true
		}
	}

	knight := core.NewPiece(attacker, core.Knight)
	for _, o := range knightOffsets {
		if p.PieceAt(sq.Delta(o.df, o.dr)) == knight {
			return true
		}
	}

	// Attacking pawns sit one rank behind sq from their own point of view
	pawn := core.NewPiece(attacker, core.Pawn)
	back := -Forward(attacker)
	if p.PieceAt(sq.Delta(-1, back)) == pawn || p.PieceAt(sq.Delta(1, back)) == pawn {
		return true
	}

	// A pawn that just advanced two squares can be taken en passant by a pawn beside it
	if attacker == p.turn && p.enPassant.Valid() && sq == p.enPassant.Delta(0, back) {
		if p.PieceAt(sq.Delta(-1, 0)) == pawn || p.PieceAt(sq.Delta(1, 0)) == pawn {
			return true
		}
	}

	return false
}

// firstOnRay walks from sq in direction o and returns the first piece met.
func (p *Position) firstOnRay(sq core.Square, o offset) core.Piece {
	for cur := sq.Delta(o.df, o.dr); cur.Valid(); cur = cur.Delta(o.df, o.dr) {
		if piece := p.squares[cur]; !piece.IsEmpty() {
			return piece
		}
	}
	return core.NoPiece
}

// IsInCheck reports whether any king of side is attacked by the opponent.
func (p *Position) IsInCheck(side core.Side) bool {
	for _, sq := range p.FindPieces(core.NewPiece(side, core.King)) {
		if p.IsUnderAttack(sq, core.Opponent(side)) {
			return true
		}
	}
	return false
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.IsInCheck(p.turn)
}

// IsDead detects insufficient mating material with a conservative heuristic:
// bare kings, a single knight, or bishops confined to one square colour (with at
// most one knight). Other dead positions are not recognised.
func (p *Position) IsDead() bool {
	knights, lightBishops, darkBishops := 0, 0, 0
	for sq, piece := range p.squares {
		switch piece.Type {
		case core.Pawn, core.Rook, core.Queen:
			return false
		case core.Knight:
			knights++
		case core.Bishop:
			if core.Square(sq).IsLight() {
				lightBishops++
			} else {
				darkBishops++
			}
		}
	}

	bishops := lightBishops + darkBishops
	if knights > 1 && bishops > 0 {
		return false
	}
	if knights <= 1 && bishops == 0 {
		return true
	}
	if knights <= 1 && (lightBishops == 0 || darkBishops == 0) {
		return true
	}
	return false
}
