package core

import "errors"

// Error codes returned to API clients
const (
	ErrCodeGameNotFound      = "GAME_NOT_FOUND"
	ErrCodeInvalidMove       = "INVALID_MOVE"
	ErrCodeNotHumanTurn      = "NOT_HUMAN_TURN"
	ErrCodeGameOver          = "GAME_OVER"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidFEN        = "INVALID_FEN"
	ErrCodeInvalidRecord     = "INVALID_RECORD"
	ErrCodeEngine            = "ENGINE_UNAVAILABLE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Usage errors: the caller broke a contract of the rules core.
var (
	ErrInvalidSquare    = errors.New("invalid square")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrIllegalMove      = errors.New("illegal move")
	ErrGameOver         = errors.New("game is over")
	ErrAutomaticOnly    = errors.New("result type is only recorded automatically")
	ErrNotActiveSide    = errors.New("side is not the active side")
	ErrClaimUnavailable = errors.New("draw claim condition not met")
	ErrInvalidUndo      = errors.New("invalid undo count")
)

// Parse errors: persisted boards, notation or records are corrupt.
var (
	ErrInvalidFEN      = errors.New("invalid FEN")
	ErrInvalidNotation = errors.New("invalid move notation")
	ErrInvalidRecord   = errors.New("invalid game record")
)

// ErrEngine marks every failure of the external engine process.
var ErrEngine = errors.New("engine failure")

// Service errors
var (
	ErrGameNotFound    = errors.New("game not found")
	ErrNotHumanTurn    = errors.New("side to move is computer controlled")
	ErrNotComputerTurn = errors.New("side to move is not computer controlled")
)

// ErrorCode maps an error to the API code of its category.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGameNotFound):
		return ErrCodeGameNotFound
	case errors.Is(err, ErrNotHumanTurn):
		return ErrCodeNotHumanTurn
	case errors.Is(err, ErrEngine):
		return ErrCodeEngine
	case errors.Is(err, ErrGameOver):
		return ErrCodeGameOver
	case errors.Is(err, ErrInvalidFEN):
		return ErrCodeInvalidFEN
	case errors.Is(err, ErrInvalidRecord), errors.Is(err, ErrInvalidNotation):
		return ErrCodeInvalidRecord
	case errors.Is(err, ErrIllegalMove), errors.Is(err, ErrInvalidEvent),
		errors.Is(err, ErrInvalidSquare):
		return ErrCodeInvalidMove
	case errors.Is(err, ErrAutomaticOnly), errors.Is(err, ErrNotActiveSide),
		errors.Is(err, ErrClaimUnavailable), errors.Is(err, ErrNotComputerTurn),
		errors.Is(err, ErrInvalidUndo):
		return ErrCodeInvalidRequest
	default:
		return ErrCodeInternalError
	}
}
