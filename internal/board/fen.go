package board

import (
	"fmt"
	"strconv"
	"strings"

	"chessrules/internal/core"
)

var castlingLetters = []struct {
	right  Castling
	letter byte
}{
	{WhiteKingside, 'K'},
	{WhiteQueenside, 'Q'},
	{BlackKingside, 'k'},
	{BlackQueenside, 'q'},
}

// ParseFEN builds a position from its FEN record. Nothing is returned on error.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: expected 6 parts, got %d", core.ErrInvalidFEN, len(parts))
	}

	p := NewPosition(core.NoSide)

	// Parse board, rank 8 first
	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("%w: expected 8 ranks, got %d", core.ErrInvalidFEN, len(ranks))
	}

	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			piece := core.PieceFromCode(ch)
			if piece.IsEmpty() {
				return nil, fmt.Errorf("%w: unknown piece %q in rank %d", core.ErrInvalidFEN, ch, rank+1)
			}
			if file >= 8 {
				return nil, fmt.Errorf("%w: too many pieces in rank %d", core.ErrInvalidFEN, rank+1)
			}
			p.squares[core.NewSquare(file, rank)] = piece
			file++
		}
		if file != 8 {
			return nil, fmt.Errorf("%w: rank %d has %d files", core.ErrInvalidFEN, rank+1, file)
		}
	}

	if p.turn = core.ParseSide(parts[1]); !p.turn.Valid() {
		return nil, fmt.Errorf("%w: turn must be 'w' or 'b'", core.ErrInvalidFEN)
	}

	if parts[2] != "-" {
		for i := 0; i < len(parts[2]); i++ {
			right, ok := castlingFromLetter(parts[2][i])
			if !ok || p.castling&right != 0 {
				return nil, fmt.Errorf("%w: castling field %q", core.ErrInvalidFEN, parts[2])
			}
			p.castling |= right
		}
	}

	if parts[3] != "-" {
		sq := core.ParseSquare(parts[3])
		wantRank := 5
		if p.turn == core.Black {
			wantRank = 2
		}
		if !sq.Valid() || sq.Rank() != wantRank {
			return nil, fmt.Errorf("%w: en passant square %q", core.ErrInvalidFEN, parts[3])
		}
		p.enPassant = sq
	}

	halfmove, err := strconv.Atoi(parts[4])
	if err != nil || halfmove < 0 {
		return nil, fmt.Errorf("%w: halfmove counter %q", core.ErrInvalidFEN, parts[4])
	}
	fullmove, err := strconv.Atoi(parts[5])
	if err != nil || fullmove < 1 {
		return nil, fmt.Errorf("%w: fullmove counter %q", core.ErrInvalidFEN, parts[5])
	}
	p.halfmove, p.fullmove = halfmove, fullmove

	return p, nil
}

func castlingFromLetter(c byte) (Castling, bool) {
	for _, cl := range castlingLetters {
		if cl.letter == c {
			return cl.right, true
		}
	}
	return NoCastling, false
}

// FEN serializes the position.
func (p *Position) FEN() string {
	return p.Key() + " " + strconv.Itoa(p.halfmove) + " " + strconv.Itoa(p.fullmove)
}

// Key is the FEN without move clocks. Two positions are Equal exactly when their keys match.
func (p *Position) Key() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.squares[core.NewSquare(file, rank)]
			if piece.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(piece.Code())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.turn.Code())

	sb.WriteByte(' ')
	if p.castling == NoCastling {
		sb.WriteByte('-')
	}
	for _, cl := range castlingLetters {
		if p.castling&cl.right != 0 {
			sb.WriteByte(cl.letter)
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.enPassant.String())
	return sb.String()
}
