package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestSquare(t *testing.T) {
	tests := []struct {
		in         string
		want       Square
		file, rank int
		light      bool
	}{
		{"a1", 0, 0, 0, false},
		{"h1", 7, 7, 0, true},
		{"a8", 56, 0, 7, true},
		{"h8", 63, 7, 7, false},
		{"e4", 28, 4, 3, true},
	}
	for _, tt := range tests {
		sq := ParseSquare(tt.in)
		if sq != tt.want {
			t.Errorf("ParseSquare(%q) = %d, want %d", tt.in, sq, tt.want)
			continue
		}
		if sq.File() != tt.file || sq.Rank() != tt.rank {
			t.Errorf("%s file/rank = %d/%d", tt.in, sq.File(), sq.Rank())
		}
		if sq.IsLight() != tt.light {
			t.Errorf("%s IsLight() = %v", tt.in, sq.IsLight())
		}
		if sq.String() != tt.in {
			t.Errorf("String() = %q, want %q", sq.String(), tt.in)
		}
	}

	for _, bad := range []string{"", "e", "e9", "i1", "E4", "e44"} {
		if sq := ParseSquare(bad); sq != NoSquare {
			t.Errorf("ParseSquare(%q) = %v, want NoSquare", bad, sq)
		}
	}
}

func TestSquareDelta(t *testing.T) {
	e4 := ParseSquare("e4")
	if got := e4.Delta(1, 2); got != ParseSquare("f6") {
		t.Errorf("e4+(1,2) = %v", got)
	}
	if got := ParseSquare("h4").Delta(1, 0); got != NoSquare {
		t.Errorf("h4+(1,0) wrapped to %v", got)
	}
	if got := ParseSquare("a1").Delta(0, -1); got != NoSquare {
		t.Errorf("a1+(0,-1) = %v", got)
	}
	if got := NoSquare.Delta(0, 0); got != NoSquare {
		t.Errorf("NoSquare.Delta = %v", got)
	}
	if NoSquare.File() != -1 || NoSquare.Rank() != -1 || NoSquare.String() != "-" {
		t.Error("NoSquare accessors wrong")
	}
	if n := len(AllSquares()); n != 64 {
		t.Errorf("AllSquares() has %d entries", n)
	}
}

func TestPieceCodes(t *testing.T) {
	for _, side := range []Side{White, Black} {
		for pt := King; pt <= Pawn; pt++ {
			p := NewPiece(side, pt)
			if got := PieceFromCode(p.Code()); got != p {
				t.Errorf("PieceFromCode(%q) = %v, want %v", p.Code(), got, p)
			}
		}
	}

	if c := NewPiece(White, Knight).Code(); c != 'N' {
		t.Errorf("white knight code = %q", c)
	}
	if c := NewPiece(Black, Queen).Code(); c != 'q' {
		t.Errorf("black queen code = %q", c)
	}
	if p := NewPiece(NoSide, Rook); p != NoPiece || !p.IsEmpty() {
		t.Errorf("NewPiece(NoSide) = %v", p)
	}
	for _, c := range []byte{'.', 'x', '1', ' '} {
		if p := PieceFromCode(c); p != NoPiece {
			t.Errorf("PieceFromCode(%q) = %v", c, p)
		}
	}
	if NoPiece.Code() != '.' || NoPiece.String() != "empty" {
		t.Error("NoPiece rendering wrong")
	}
}

func TestSides(t *testing.T) {
	if Opponent(White) != Black || Opponent(Black) != White || Opponent(NoSide) != NoSide {
		t.Error("Opponent wrong")
	}
	for _, s := range []Side{White, Black, NoSide} {
		if ParseSide(s.Code()) != s {
			t.Errorf("ParseSide(%q) != %v", s.Code(), s)
		}
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", ErrGameNotFound), ErrCodeGameNotFound},
		{fmt.Errorf("wrap: %w", ErrIllegalMove), ErrCodeInvalidMove},
		{ErrNotHumanTurn, ErrCodeNotHumanTurn},
		{ErrGameOver, ErrCodeGameOver},
		{ErrInvalidFEN, ErrCodeInvalidFEN},
		{ErrInvalidRecord, ErrCodeInvalidRecord},
		{fmt.Errorf("%w: boom", ErrEngine), ErrCodeEngine},
		{ErrInvalidUndo, ErrCodeInvalidRequest},
		{errors.New("mystery"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
