// Package board implements a single chess position: piece placement plus the
// state needed for legality and notation.
package board

import (
	"fmt"
	"strings"

	"chessrules/internal/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// Castling is the set of castling rights still held.
type Castling uint8

const (
	WhiteKingside Castling = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside

	NoCastling  Castling = 0
	AllCastling          = WhiteKingside | WhiteQueenside | BlackKingside | BlackQueenside
)

// CastlingRight returns the right for side on the given wing.
func CastlingRight(side core.Side, kingside bool) Castling {
	switch {
	case side == core.White && kingside:
		return WhiteKingside
	case side == core.White:
		return WhiteQueenside
	case side == core.Black && kingside:
		return BlackKingside
	case side == core.Black:
		return BlackQueenside
	default:
		return NoCastling
	}
}

// Position is a board snapshot. It is a plain value: assigning or Clone copies it.
type Position struct {
	squares   [64]core.Piece
	turn      core.Side
	castling  Castling
	enPassant core.Square
	halfmove  int
	fullmove  int
}

// NewPosition returns an empty board with side to move and no castling rights.
func NewPosition(turn core.Side) *Position {
	return &Position{
		turn:      turn,
		enPassant: core.NoSquare,
		fullmove:  1,
	}
}

// NewStartPosition returns the standard initial layout.
func NewStartPosition() *Position {
	p, err := ParseFEN(StartingFEN)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// PieceAt returns the piece on sq, or core.NoPiece for an empty or invalid square.
func (p *Position) PieceAt(sq core.Square) core.Piece {
	if !sq.Valid() {
		return core.NoPiece
	}
	return p.squares[sq]
}

// Set places piece on sq; core.NoPiece clears it.
func (p *Position) Set(sq core.Square, piece core.Piece) error {
	if !sq.Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidSquare, sq)
	}
	if !piece.IsEmpty() && !piece.Valid() {
		return fmt.Errorf("invalid piece %v on %s", piece, sq)
	}
	p.squares[sq] = piece
	return nil
}

func (p *Position) Turn() core.Side { return p.turn }

func (p *Position) SetTurn(side core.Side) { p.turn = side }

func (p *Position) Castling() Castling { return p.castling }

func (p *Position) SetCastling(c Castling) { p.castling = c & AllCastling }

func (p *Position) HasCastlingRight(side core.Side, kingside bool) bool {
	right := CastlingRight(side, kingside)
	return right != NoCastling && p.castling&right != 0
}

// EnPassant returns the square passed over by the last two-square advance, or core.NoSquare.
func (p *Position) EnPassant() core.Square { return p.enPassant }

// HalfMoveClock counts plies since the last pawn move or capture.
func (p *Position) HalfMoveClock() int { return p.halfmove }

func (p *Position) FullMoveNumber() int { return p.fullmove }

// Equal compares the fields that identify a position for repetition purposes.
// The move clocks are ignored.
func (p *Position) Equal(other *Position) bool {
	if other == nil {
		return false
	}
	return p.squares == other.squares &&
		p.turn == other.turn &&
		p.castling == other.castling &&
		p.enPassant == other.enPassant
}

// FindPieces returns every square holding piece, in board order.
func (p *Position) FindPieces(piece core.Piece) []core.Square {
	var found []core.Square
	for sq, occupant := range p.squares {
		if occupant == piece {
			found = append(found, core.Square(sq))
		}
	}
	return found
}

// ASCII creates a text diagram of the board, White at the bottom
func (p *Position) ASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 7; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for f := 0; f < 8; f++ {
			sb.WriteByte(p.squares[core.NewSquare(f, r)].Code())
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
