package core

// Request types

type CreateGameRequest struct {
	White  PlayerConfig `json:"white" validate:"required"`
	Black  PlayerConfig `json:"black" validate:"required"`
	FEN    string       `json:"fen,omitempty" validate:"omitempty,max=100"`
	Record string       `json:"record,omitempty" validate:"omitempty,max=20000"` // replayed from FEN when both are set
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=4,max=5"` // "cccc" asks the engine, otherwise a compact code
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=300"`
}

type SideRequest struct {
	Side string `json:"side" validate:"required,oneof=w b"`
}

type DrawRequest struct {
	Type string `json:"type" validate:"required,oneof=stalemate dead_position fifty_move threefold_repetition by_agreement"`
}

type WarResultRequest struct {
	Victor string `json:"victor" validate:"required,oneof=w b -"` // "-" for no victor
}

// Response types

type GameResponse struct {
	GameID    string          `json:"gameId"`
	FEN       string          `json:"fen"`
	Turn      string          `json:"turn"`  // "w" or "b"
	State     string          `json:"state"` // "ongoing", "white_wins", "black_wins", "draw"
	Moves     []string        `json:"moves"`
	History   []string        `json:"history"`
	Players   PlayersResponse `json:"players"`
	Engine    string          `json:"engine"` // "ready", "disabled" or "none"
	LastEvent *EventInfo      `json:"lastEvent,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

type EventInfo struct {
	Notation    string `json:"notation"`
	Move        string `json:"move,omitempty"` // compact code for board moves
	Description string `json:"description"`
	Side        string `json:"side"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type RecordResponse struct {
	GameID     string   `json:"gameId"`
	InitialFEN string   `json:"initialFen"`
	Record     string   `json:"record"`
	Warnings   []string `json:"warnings,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// StateName is the API name of a game outcome.
func StateName(r Result, victor Side) string {
	switch {
	case r == ResultDrawn:
		return "draw"
	case r == ResultWon && victor == White:
		return "white_wins"
	case r == ResultWon && victor == Black:
		return "black_wins"
	default:
		return "ongoing"
	}
}
