package move

import (
	"fmt"
	"strings"

	"chessrules/internal/core"
)

const (
	suffixEnPassant = "e.p."
	suffixTwoSquare = "t.s."

	castleKingside  = "0-0"
	castleQueenside = "0-0-0"
)

var drawCodes = map[DrawType]string{
	Stalemate:           "SM",
	DeadPosition:        "DP",
	FiftyMove:           "50M",
	ThreefoldRepetition: "3FR",
	ByAgreement:         "=",
}

// Notation serializes the event in the history wire format. Invalid events give "-".
func (e Event) Notation() string {
	switch e.kind {
	case KindMove:
		return moveToken(e)
	case KindCapture:
		return captureToken(e)
	case KindEnPassant:
		return captureToken(e) + suffixEnPassant
	case KindTwoSquare:
		return moveToken(e) + suffixTwoSquare
	case KindCastling:
		if e.IsKingside() {
			return castleKingside
		}
		return castleQueenside
	case KindLoss:
		switch e.lossType {
		case Checkmate:
			return "#"
		case Resignation:
			return "0"
		default:
			return "TC" + e.side.Code()
		}
	case KindDraw:
		return drawCodes[e.drawType]
	default:
		return "-"
	}
}

func moveToken(e Event) string {
	var sb strings.Builder
	sb.WriteByte(e.piece.Code())
	sb.WriteString(e.from.String())
	sb.WriteByte('-')
	sb.WriteString(e.to.String())
	if e.promotion.Valid() {
		sb.WriteByte(e.promotion.Code())
	}
	return sb.String()
}

func captureToken(e Event) string {
	var sb strings.Builder
	sb.WriteByte(e.piece.Code())
	sb.WriteString(e.from.String())
	sb.WriteByte('x')
	sb.WriteByte(e.captured.Code())
	sb.WriteString(e.to.String())
	if e.promotion.Valid() {
		sb.WriteByte(e.promotion.Code())
	}
	return sb.String()
}

// Describe returns a human readable sentence for the event.
func (e Event) Describe() string {
	var s string
	switch e.kind {
	case KindMove:
		s = fmt.Sprintf("%s moves from %s to %s", e.piece, e.from, e.to)
	case KindCapture:
		s = fmt.Sprintf("%s on %s captures %s on %s", e.piece, e.from, e.captured, e.to)
	case KindEnPassant:
		return fmt.Sprintf("%s on %s captures %s on %s en passant, landing on %s",
			e.piece, e.from, e.captured, e.capturedSquare, e.to)
	case KindTwoSquare:
		return fmt.Sprintf("%s advances two squares from %s to %s", e.piece, e.from, e.to)
	case KindCastling:
		if e.IsKingside() {
			return e.side.String() + " castles kingside"
		}
		return e.side.String() + " castles queenside"
	case KindLoss:
		switch e.lossType {
		case Checkmate:
			return e.side.String() + " is checkmated"
		case Resignation:
			return e.side.String() + " resigns"
		default:
			return e.side.String() + " loses on time"
		}
	case KindDraw:
		return "Draw by " + e.drawType.String()
	default:
		return "invalid event"
	}
	if e.promotion.Valid() {
		s += " and promotes to " + e.promotion.Type.String()
	}
	return s
}

// Parse reads one history token for the given side to move. Terminal tokens are
// tried first, then castling, the suffixed pawn moves, captures and finally plain
// moves, since a suffixed token starts with a valid plain token.
func Parse(token string, side core.Side) (Event, error) {
	if e, ok := parseLoss(token, side); ok {
		return e, nil
	}
	for t, code := range drawCodes {
		if token == code {
			return NewDraw(t), nil
		}
	}

	var e Event
	switch {
	case token == castleKingside || token == castleQueenside:
		e = Castling(side, token == castleKingside)
	case strings.HasSuffix(token, suffixTwoSquare):
		piece, from, to, promotion, ok := splitMove(strings.TrimSuffix(token, suffixTwoSquare))
		if ok && promotion.IsEmpty() {
			e = NewTwoSquare(piece, from, to)
		}
	case strings.HasSuffix(token, suffixEnPassant):
		piece, from, to, captured, promotion, ok := splitCapture(strings.TrimSuffix(token, suffixEnPassant))
		if ok && promotion.IsEmpty() {
			e = NewEnPassant(piece, from, to, captured)
		}
	case len(token) > 3 && token[3] == 'x':
		piece, from, to, captured, promotion, ok := splitCapture(token)
		if ok {
			e = NewCapture(piece, from, to, captured, promotion)
		}
	default:
		piece, from, to, promotion, ok := splitMove(token)
		if ok {
			e = NewMove(piece, from, to, promotion)
		}
	}

	if !e.Valid() {
		return invalid, fmt.Errorf("%w: %q", core.ErrInvalidNotation, token)
	}
	if side.Valid() && e.IsMove() && e.side != side {
		return invalid, fmt.Errorf("%w: %q is not a move for %s", core.ErrInvalidNotation, token, side)
	}
	return e, nil
}

func parseLoss(token string, side core.Side) (Event, bool) {
	switch {
	case token == "#":
		return NewLoss(Checkmate, side), side.Valid()
	case token == "0":
		return NewLoss(Resignation, side), side.Valid()
	case len(token) == 3 && strings.HasPrefix(token, "TC"):
		loser := core.ParseSide(token[2:])
		return NewLoss(TimeControl, loser), loser.Valid()
	}
	return invalid, false
}

// Castling builds the standard castling move for side.
func Castling(side core.Side, kingside bool) Event {
	rank := 0
	if side == core.Black {
		rank = 7
	}
	from := core.NewSquare(core.FileE, rank)
	if kingside {
		return NewCastling(core.NewPiece(side, core.King), from, core.NewSquare(core.FileG, rank),
			core.NewPiece(side, core.Rook), core.NewSquare(core.FileH, rank), core.NewSquare(core.FileF, rank))
	}
	return NewCastling(core.NewPiece(side, core.King), from, core.NewSquare(core.FileC, rank),
		core.NewPiece(side, core.Rook), core.NewSquare(core.FileA, rank), core.NewSquare(core.FileD, rank))
}

// splitMove reads "Pe2-e4" with an optional trailing promotion code.
func splitMove(token string) (piece core.Piece, from, to core.Square, promotion core.Piece, ok bool) {
	if (len(token) != 6 && len(token) != 7) || token[3] != '-' {
		return
	}
	piece = core.PieceFromCode(token[0])
	from = core.ParseSquare(token[1:3])
	to = core.ParseSquare(token[4:6])
	if len(token) == 7 {
		if promotion = core.PieceFromCode(token[6]); promotion.IsEmpty() {
			return
		}
	}
	ok = piece.Valid() && from.Valid() && to.Valid()
	return
}

// splitCapture reads "Pe4xpd5" with an optional trailing promotion code.
func splitCapture(token string) (piece core.Piece, from, to core.Square, captured, promotion core.Piece, ok bool) {
	if (len(token) != 7 && len(token) != 8) || token[3] != 'x' {
		return
	}
	piece = core.PieceFromCode(token[0])
	from = core.ParseSquare(token[1:3])
	captured = core.PieceFromCode(token[4])
	to = core.ParseSquare(token[5:7])
	if len(token) == 8 {
		if promotion = core.PieceFromCode(token[7]); promotion.IsEmpty() {
			return
		}
	}
	ok = piece.Valid() && captured.Valid() && from.Valid() && to.Valid()
	return
}
