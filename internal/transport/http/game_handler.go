package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"chessrules/internal/core"
)

func badGameID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid game ID format",
		Code:    core.ErrCodeInvalidRequest,
		Details: "game ID must be a valid UUID",
	})
}

func bypass(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: err.Error(),
		Code:  core.ErrCodeInternalError,
	})
}

// withBody runs fn with the validated request of a game route.
func withBody[T any](h *HTTPHandler, c *fiber.Ctx, fn func(id string, req *T) (any, error)) error {
	id := c.Params("gameId")
	if !isValidUUID(id) {
		return badGameID(c)
	}
	req, err := validatedBody[T](c)
	if err != nil {
		return bypass(c, err)
	}
	resp, err := fn(id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// CreateGame creates a game from scratch, a FEN or a record
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateGameRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	resp, err := h.svc.CreateGame(*req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetGame returns the game state. With wait=true it long-polls until the
// history length differs from moveCount.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	id := c.Params("gameId")
	if !isValidUUID(id) {
		return badGameID(c)
	}

	if c.Query("wait", "false") != "true" {
		resp, err := h.svc.GetGame(id)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(resp)
	}

	moveCount, err := strconv.Atoi(c.Query("moveCount", "-1"))
	if err != nil {
		moveCount = -1
	}
	resp, err := h.svc.WaitForChange(c.Context(), id, moveCount)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil // client gone
		}
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// DeleteGame ends and removes a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	id := c.Params("gameId")
	if !isValidUUID(id) {
		return badGameID(c)
	}
	if err := h.svc.DeleteGame(id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MakeMove plays a compact move, or the engine move for "cccc"
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	return withBody(h, c, func(id string, req *core.MoveRequest) (any, error) {
		return h.svc.MakeMove(id, req.Move)
	})
}

// UndoMove takes back one or more history entries
func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	return withBody(h, c, func(id string, req *core.UndoRequest) (any, error) {
		return h.svc.Undo(id, req.Count)
	})
}

// Resign records a resignation of the side to move
func (h *HTTPHandler) Resign(c *fiber.Ctx) error {
	return withBody(h, c, func(id string, req *core.SideRequest) (any, error) {
		return h.svc.Resign(id, core.ParseSide(req.Side))
	})
}

// Timeout records a loss on time
func (h *HTTPHandler) Timeout(c *fiber.Ctx) error {
	return withBody(h, c, func(id string, req *core.SideRequest) (any, error) {
		return h.svc.RecordTimeout(id, core.ParseSide(req.Side))
	})
}

// ClaimDraw ends the game as a draw when the claim holds
func (h *HTTPHandler) ClaimDraw(c *fiber.Ctx) error {
	return withBody(h, c, func(id string, req *core.DrawRequest) (any, error) {
		return h.svc.ClaimDraw(id, req.Type)
	})
}

// WarResult ends the game by decree
func (h *HTTPHandler) WarResult(c *fiber.Ctx) error {
	return withBody(h, c, func(id string, req *core.WarResultRequest) (any, error) {
		return h.svc.WarResult(id, core.ParseSide(req.Victor))
	})
}

// GetBoard returns the FEN and an ASCII diagram
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	id := c.Params("gameId")
	if !isValidUUID(id) {
		return badGameID(c)
	}
	resp, err := h.svc.Board(id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// GetRecord returns the replayable game record
func (h *HTTPHandler) GetRecord(c *fiber.Ctx) error {
	id := c.Params("gameId")
	if !isValidUUID(id) {
		return badGameID(c)
	}
	resp, err := h.svc.Record(id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}
