package core

import "strings"

type PieceType byte

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

func (t PieceType) Valid() bool {
	return t >= King && t <= Pawn
}

func (t PieceType) String() string {
	switch t {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return "none"
	}
}

// Piece is a side and type pair. NoPiece marks an empty square and is not a valid piece.
type Piece struct {
	Side Side
	Type PieceType
}

var NoPiece = Piece{}

// NewPiece returns NoPiece unless both side and type are valid.
func NewPiece(side Side, t PieceType) Piece {
	if !side.Valid() || !t.Valid() {
		return NoPiece
	}
	return Piece{Side: side, Type: t}
}

func (p Piece) Valid() bool {
	return p.Side.Valid() && p.Type.Valid()
}

func (p Piece) IsEmpty() bool {
	return p == NoPiece
}

const pieceLetters = ".KQRBNP"

// Code returns the one-character piece code: upper case for White, lower case for Black,
// '.' for an empty or invalid piece.
func (p Piece) Code() byte {
	if !p.Valid() {
		return '.'
	}
	c := pieceLetters[p.Type]
	if p.Side == Black {
		c += 'a' - 'A'
	}
	return c
}

// PieceFromCode is the inverse of Code. Unknown codes give NoPiece.
func PieceFromCode(c byte) Piece {
	side := White
	if c >= 'a' && c <= 'z' {
		side = Black
		c -= 'a' - 'A'
	}
	i := strings.IndexByte(pieceLetters, c)
	if i <= 0 {
		return NoPiece
	}
	return Piece{Side: side, Type: PieceType(i)}
}

func (p Piece) String() string {
	if !p.Valid() {
		return "empty"
	}
	return p.Side.String() + " " + p.Type.String()
}
