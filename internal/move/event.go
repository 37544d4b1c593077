// Package move defines the closed set of game events (moves, captures and game
// endings) together with their textual notation.
package move

import (
	"chessrules/internal/core"
)

// Kind tags the variant held by an Event.
type Kind byte

const (
	KindInvalid Kind = iota
	KindMove
	KindCapture
	KindEnPassant
	KindTwoSquare
	KindCastling
	KindLoss
	KindDraw
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindCapture:
		return "capture"
	case KindEnPassant:
		return "en passant"
	case KindTwoSquare:
		return "two-square advance"
	case KindCastling:
		return "castling"
	case KindLoss:
		return "loss"
	case KindDraw:
		return "draw"
	default:
		return "invalid"
	}
}

type LossType byte

const (
	NoLoss LossType = iota
	Checkmate
	Resignation
	TimeControl
)

func (t LossType) String() string {
	switch t {
	case Checkmate:
		return "checkmate"
	case Resignation:
		return "resignation"
	case TimeControl:
		return "time control"
	default:
		return "none"
	}
}

type DrawType byte

const (
	NoDraw DrawType = iota
	Stalemate
	DeadPosition
	FiftyMove
	ThreefoldRepetition
	ByAgreement
)

func (t DrawType) String() string {
	switch t {
	case Stalemate:
		return "stalemate"
	case DeadPosition:
		return "dead position"
	case FiftyMove:
		return "fifty-move rule"
	case ThreefoldRepetition:
		return "threefold repetition"
	case ByAgreement:
		return "agreement"
	default:
		return "none"
	}
}

// ParseDrawType accepts the API names of draw types.
func ParseDrawType(name string) DrawType {
	switch name {
	case "stalemate":
		return Stalemate
	case "dead_position":
		return DeadPosition
	case "fifty_move":
		return FiftyMove
	case "threefold_repetition":
		return ThreefoldRepetition
	case "by_agreement":
		return ByAgreement
	default:
		return NoDraw
	}
}

// Event is an immutable game event. Fields not used by its Kind are zero, so two
// events are equal exactly when == holds. The zero Event is invalid, as is any
// event whose constructor rejected its inputs.
type Event struct {
	kind           Kind
	piece          core.Piece
	from           core.Square
	to             core.Square
	promotion      core.Piece
	captured       core.Piece
	capturedSquare core.Square
	passedSquare   core.Square
	rookPiece      core.Piece
	rookFrom       core.Square
	rookTo         core.Square
	lossType       LossType
	drawType       DrawType
	side           core.Side
}

// blank returns an event of the given kind with every square field set to NoSquare.
func blank(kind Kind) Event {
	return Event{
		kind:           kind,
		from:           core.NoSquare,
		to:             core.NoSquare,
		capturedSquare: core.NoSquare,
		passedSquare:   core.NoSquare,
		rookFrom:       core.NoSquare,
		rookTo:         core.NoSquare,
	}
}

var invalid = blank(KindInvalid)

// NewMove builds a quiet move. promotion is core.NoPiece unless a pawn promotes.
func NewMove(piece core.Piece, from, to core.Square, promotion core.Piece) Event {
	if !validMove(piece, from, to, promotion) {
		return invalid
	}
	e := blank(KindMove)
	e.piece, e.from, e.to, e.promotion = piece, from, to, promotion
	e.side = piece.Side
	return e
}

// NewCapture builds a capture on the destination square.
func NewCapture(piece core.Piece, from, to core.Square, captured, promotion core.Piece) Event {
	if !validMove(piece, from, to, promotion) || !validVictim(piece, captured) {
		return invalid
	}
	e := blank(KindCapture)
	e.piece, e.from, e.to, e.promotion = piece, from, to, promotion
	e.captured, e.capturedSquare = captured, to
	e.side = piece.Side
	return e
}

// NewEnPassant builds an en-passant capture. The captured pawn stands beside the
// capturing pawn, on the destination file.
func NewEnPassant(piece core.Piece, from, to core.Square, captured core.Piece) Event {
	if piece.Type != core.Pawn || captured.Type != core.Pawn {
		return invalid
	}
	if !validMove(piece, from, to, core.NoPiece) || !validVictim(piece, captured) {
		return invalid
	}
	square := core.NewSquare(to.File(), from.Rank())
	if !square.Valid() || square == to || abs(to.File()-from.File()) != 1 {
		return invalid
	}
	e := blank(KindEnPassant)
	e.piece, e.from, e.to = piece, from, to
	e.captured, e.capturedSquare = captured, square
	e.side = piece.Side
	return e
}

// NewTwoSquare builds a pawn's initial double advance; the passed square is derived.
func NewTwoSquare(piece core.Piece, from, to core.Square) Event {
	if piece.Type != core.Pawn || !validMove(piece, from, to, core.NoPiece) {
		return invalid
	}
	if from.File() != to.File() || abs(to.Rank()-from.Rank()) != 2 {
		return invalid
	}
	e := blank(KindTwoSquare)
	e.piece, e.from, e.to = piece, from, to
	e.passedSquare = core.NewSquare(from.File(), (from.Rank()+to.Rank())/2)
	e.side = piece.Side
	return e
}

// NewCastling builds a castling move from the king's and the rook's paths.
func NewCastling(king core.Piece, from, to core.Square, rook core.Piece, rookFrom, rookTo core.Square) Event {
	if king.Type != core.King || rook.Type != core.Rook || king.Side != rook.Side {
		return invalid
	}
	if !validMove(king, from, to, core.NoPiece) || !validMove(rook, rookFrom, rookTo, core.NoPiece) {
		return invalid
	}
	if from.Rank() != to.Rank() || abs(to.File()-from.File()) != 2 ||
		rookFrom.Rank() != from.Rank() || rookTo.Rank() != from.Rank() {
		return invalid
	}
	e := blank(KindCastling)
	e.piece, e.from, e.to = king, from, to
	e.rookPiece, e.rookFrom, e.rookTo = rook, rookFrom, rookTo
	e.side = king.Side
	return e
}

// NewLoss records that side lost the game.
func NewLoss(t LossType, side core.Side) Event {
	if t < Checkmate || t > TimeControl || !side.Valid() {
		return invalid
	}
	e := blank(KindLoss)
	e.lossType, e.side = t, side
	return e
}

// NewDraw records a drawn game.
func NewDraw(t DrawType) Event {
	if t < Stalemate || t > ByAgreement {
		return invalid
	}
	e := blank(KindDraw)
	e.drawType = t
	return e
}

func validMove(piece core.Piece, from, to core.Square, promotion core.Piece) bool {
	if !piece.Valid() || !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if promotion.IsEmpty() {
		return true
	}
	if piece.Type != core.Pawn || !promotion.Valid() || promotion.Side != piece.Side {
		return false
	}
	if promotion.Type == core.King || promotion.Type == core.Pawn {
		return false
	}
	return to.Rank() == lastRank(piece.Side)
}

func validVictim(piece, captured core.Piece) bool {
	return captured.Valid() && captured.Side == core.Opponent(piece.Side) && captured.Type != core.King
}

func lastRank(side core.Side) int {
	if side == core.White {
		return 7
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (e Event) Valid() bool { return e.kind != KindInvalid }

func (e Event) Kind() Kind { return e.kind }

// Piece is the moving piece (the king for castling).
func (e Event) Piece() core.Piece { return e.piece }

func (e Event) From() core.Square { return e.from }

func (e Event) To() core.Square { return e.to }

func (e Event) Promotion() core.Piece { return e.promotion }

func (e Event) Captured() core.Piece { return e.captured }

// CapturedSquare differs from To only for en passant.
func (e Event) CapturedSquare() core.Square { return e.capturedSquare }

func (e Event) PassedSquare() core.Square { return e.passedSquare }

func (e Event) RookPiece() core.Piece { return e.rookPiece }

func (e Event) RookFrom() core.Square { return e.rookFrom }

func (e Event) RookTo() core.Square { return e.rookTo }

func (e Event) LossType() LossType { return e.lossType }

func (e Event) DrawType() DrawType { return e.drawType }

// Side is the mover for board events, the loser for a loss, NoSide for a draw.
func (e Event) Side() core.Side { return e.side }

// Equal reports whether both events are the same variant with equal fields.
func (e Event) Equal(other Event) bool { return e == other }

// IsMove reports whether the event changes the board.
func (e Event) IsMove() bool {
	return e.kind >= KindMove && e.kind <= KindCastling
}

func (e Event) IsCapture() bool {
	return e.kind == KindCapture || e.kind == KindEnPassant
}

// IsTerminal reports whether the event ends the game.
func (e Event) IsTerminal() bool {
	return e.kind == KindLoss || e.kind == KindDraw
}

func (e Event) IsKingside() bool {
	return e.kind == KindCastling && e.to.File() > e.from.File()
}

// CompactCode is the engine wire form: from and to squares plus a promotion letter.
func (e Event) CompactCode() string {
	if !e.IsMove() {
		return ""
	}
	code := e.from.String() + e.to.String()
	if e.promotion.Valid() {
		code += string(core.NewPiece(core.Black, e.promotion.Type).Code())
	}
	return code
}

func (e Event) String() string { return e.Notation() }
