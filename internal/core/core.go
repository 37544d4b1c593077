// Package core holds the value types shared by every layer: sides, pieces,
// squares, game results, players and the error taxonomy.
package core

// Side is the owner of a piece or the player to move.
type Side byte

const (
	NoSide Side = iota
	White
	Black
)

// Opponent returns the other side. NoSide has no opponent.
func Opponent(s Side) Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoSide
	}
}

func (s Side) Valid() bool {
	return s == White || s == Black
}

// Code returns the one-letter side code used in FEN and notation.
func (s Side) Code() string {
	switch s {
	case White:
		return "w"
	case Black:
		return "b"
	default:
		return "-"
	}
}

func (s Side) String() string {
	switch s {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "None"
	}
}

// ParseSide accepts "w" or "b".
func ParseSide(code string) Side {
	switch code {
	case "w":
		return White
	case "b":
		return Black
	default:
		return NoSide
	}
}

// Result is the terminal state of a game.
type Result int

const (
	ResultOngoing Result = iota
	ResultWon
	ResultDrawn
)

func (r Result) String() string {
	switch r {
	case ResultWon:
		return "won"
	case ResultDrawn:
		return "drawn"
	default:
		return "ongoing"
	}
}
