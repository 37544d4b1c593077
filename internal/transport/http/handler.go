// Package http exposes the game service as a JSON API on fiber.
package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"chessrules/internal/core"
	"chessrules/internal/service"
)

const rateLimitRate = 10 // req/sec

// Config tunes the HTTP layer.
type Config struct {
	DevMode   bool
	RateLimit int // requests per second per client, rateLimitRate if zero
	AccessLog bool
	Logger    *zap.Logger
}

type HTTPHandler struct {
	svc *service.Service
	log *zap.Logger
}

func NewHTTPHandler(svc *service.Service, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, log: log}
}

func NewFiberApp(svc *service.Service, cfg Config) *fiber.App {
	h := NewHTTPHandler(svc, cfg.Logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second, // long-poll waits up to 25s
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	maxReq := cfg.RateLimit
	if maxReq <= 0 {
		maxReq = rateLimitRate
		if cfg.DevMode {
			maxReq = rateLimitRate * 2
		}
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrCodeRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games/:gameId", h.GetGame)
	api.Delete("/games/:gameId", h.DeleteGame)
	api.Post("/games/:gameId/moves", h.MakeMove)
	api.Post("/games/:gameId/undo", h.UndoMove)
	api.Post("/games/:gameId/resign", h.Resign)
	api.Post("/games/:gameId/timeout", h.Timeout)
	api.Post("/games/:gameId/draw", h.ClaimDraw)
	api.Post("/games/:gameId/war", h.WarResult)
	api.Get("/games/:gameId/board", h.GetBoard)
	api.Get("/games/:gameId/record", h.GetRecord)

	return app
}

// contentTypeValidator ensures POST requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if idx := strings.Index(contentType, ";"); idx != -1 {
			contentType = strings.TrimSpace(contentType[:idx])
		}
		if contentType != fiber.MIMEApplicationJSON && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrCodeInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrCodeInternalError,
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrCodeGameNotFound
		case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed:
			response.Code = core.ErrCodeInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrCodeRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps an API error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case core.ErrCodeGameNotFound:
		return fiber.StatusNotFound
	case core.ErrCodeNotHumanTurn, core.ErrCodeGameOver:
		return fiber.StatusConflict
	case core.ErrCodeEngine:
		return fiber.StatusServiceUnavailable
	case core.ErrCodeInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// fail writes the error response for a service error.
func (h *HTTPHandler) fail(c *fiber.Ctx, err error) error {
	code := core.ErrorCode(err)
	status := statusFor(code)
	if status >= fiber.StatusInternalServerError {
		h.log.Warn("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(status).JSON(core.ErrorResponse{
		Error:   errorMessage(code),
		Code:    code,
		Details: err.Error(),
	})
}

func errorMessage(code string) string {
	switch code {
	case core.ErrCodeGameNotFound:
		return "game not found"
	case core.ErrCodeInvalidMove:
		return "invalid move"
	case core.ErrCodeNotHumanTurn:
		return "not a human turn"
	case core.ErrCodeGameOver:
		return "game is over"
	case core.ErrCodeInvalidFEN:
		return "invalid FEN"
	case core.ErrCodeInvalidRecord:
		return "invalid game record"
	case core.ErrCodeEngine:
		return "engine unavailable"
	case core.ErrCodeInvalidRequest:
		return "invalid request"
	default:
		return "internal server error"
	}
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"time":          time.Now().Unix(),
		"storage":       h.svc.GetStorageHealth(),
		"computerGames": h.svc.ComputerGames(),
	})
}
