package core

// Square is a board coordinate. Valid squares are 0..63, ordered A1, B1 .. H1, A2 ..
// NoSquare is the sentinel for absent or off-board squares.
type Square int8

const NoSquare Square = -1

const (
	FileA = iota
	FileB
	FileC
	FileD
	FileE
	FileF
	FileG
	FileH
)

// NewSquare builds a square from zero-based file and rank. Out of range gives NoSquare.
func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

// ParseSquare reads "e4" style coordinates.
func ParseSquare(s string) Square {
	if len(s) != 2 {
		return NoSquare
	}
	return NewSquare(int(s[0])-'a', int(s[1])-'1')
}

func (s Square) Valid() bool {
	return s >= 0 && s < 64
}

// File returns the zero-based file, or -1 for NoSquare.
func (s Square) File() int {
	if !s.Valid() {
		return -1
	}
	return int(s) % 8
}

// Rank returns the zero-based rank, or -1 for NoSquare.
func (s Square) Rank() int {
	if !s.Valid() {
		return -1
	}
	return int(s) / 8
}

// Delta offsets the square. Leaving the 8x8 grid yields NoSquare rather than wrapping.
func (s Square) Delta(df, dr int) Square {
	if !s.Valid() {
		return NoSquare
	}
	return NewSquare(s.File()+df, s.Rank()+dr)
}

// IsLight reports the colour of the square; a1 is dark.
func (s Square) IsLight() bool {
	return s.Valid() && (s.File()+s.Rank())%2 == 1
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// AllSquares enumerates the 64 valid squares in board order.
func AllSquares() []Square {
	squares := make([]Square, 64)
	for i := range squares {
		squares[i] = Square(i)
	}
	return squares
}
