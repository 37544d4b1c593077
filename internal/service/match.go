package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chessrules/internal/core"
	"chessrules/internal/game"
	"chessrules/internal/move"
	"chessrules/internal/storage"
)

// ComputerMoveCode asks for the engine move instead of a human one.
const ComputerMoveCode = "cccc"

// Match is one running game with its players and engine opponent.
type Match struct {
	mu         sync.Mutex
	id         string
	game       *game.Game
	white      *core.Player
	black      *core.Player
	engine     Opponent
	engineLost bool
	persisted  int    // history entries already written to storage
	result     string // result last written to storage
	created    time.Time
}

func newMatch(id string, g *game.Game, white, black *core.Player) *Match {
	return &Match{
		id:      id,
		game:    g,
		white:   white,
		black:   black,
		result:  "ongoing",
		created: time.Now().UTC(),
	}
}

func (m *Match) player(side core.Side) *core.Player {
	if side == core.Black {
		return m.black
	}
	return m.white
}

// computerPlayer is the computer player the engine serves, White first.
func (m *Match) computerPlayer() *core.Player {
	switch {
	case m.white.IsComputer():
		return m.white
	case m.black.IsComputer():
		return m.black
	}
	return nil
}

func (m *Match) version() int {
	return len(m.game.History())
}

func (m *Match) engineStatus() string {
	switch {
	case m.engine != nil:
		return "ready"
	case m.engineLost:
		return "disabled"
	default:
		return "none"
	}
}

func (m *Match) response() *core.GameResponse {
	g := m.game
	resp := &core.GameResponse{
		GameID:   m.id,
		FEN:      g.Position().FEN(),
		Turn:     g.Turn().Code(),
		State:    core.StateName(g.Result(), g.Victor()),
		Moves:    []string{},
		History:  []string{},
		Engine:   m.engineStatus(),
		Warnings: g.Warnings(),
	}
	for _, ev := range g.PossibleMoves() {
		resp.Moves = append(resp.Moves, ev.CompactCode())
	}
	for _, e := range g.History() {
		resp.History = append(resp.History, e.Event.Notation())
	}
	white, black := *m.white, *m.black
	resp.Players = core.PlayersResponse{White: &white, Black: &black}

	if last := g.LastEvent(); last.Valid() {
		resp.LastEvent = &core.EventInfo{
			Notation:    last.Notation(),
			Move:        last.CompactCode(),
			Description: last.Describe(),
			Side:        last.Side().Code(),
		}
	}
	return resp
}

// withMatch runs fn on a locked match, then persists and notifies watchers.
func (s *Service) withMatch(gameID string, fn func(m *Match) error) (*core.GameResponse, error) {
	m, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.version()
	if err := fn(m); err != nil {
		return nil, err
	}
	s.persist(m)
	if m.version() != before {
		s.waiter.NotifyGame(gameID, m.version())
	}
	return m.response(), nil
}

// MakeMove plays a human move given in compact form, or the engine move for
// ComputerMoveCode.
func (s *Service) MakeMove(gameID, code string) (*core.GameResponse, error) {
	if code == ComputerMoveCode {
		return s.ComputerMove(gameID)
	}
	return s.withMatch(gameID, func(m *Match) error {
		g := m.game
		if g.IsOver() {
			return fmt.Errorf("%w: %s", core.ErrGameOver, g.LastEvent().Describe())
		}
		if m.player(g.Turn()).IsComputer() {
			return fmt.Errorf("%w: %s", core.ErrNotHumanTurn, g.Turn())
		}
		ev, ok := g.FindCompactMove(code)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrIllegalMove, code)
		}
		if err := g.MakeMove(ev); err != nil {
			return err
		}
		s.syncEngine(m)
		return nil
	})
}

// ComputerMove lets the engine play for the side to move. Engine failures
// disable the opponent and are returned; the game is left as it was.
func (s *Service) ComputerMove(gameID string) (*core.GameResponse, error) {
	return s.withMatch(gameID, func(m *Match) error {
		g := m.game
		if g.IsOver() {
			return fmt.Errorf("%w: %s", core.ErrGameOver, g.LastEvent().Describe())
		}
		if !m.player(g.Turn()).IsComputer() || m.engine == nil {
			return fmt.Errorf("%w: %s", core.ErrNotComputerTurn, g.Turn())
		}

		code, err := s.think(m)
		if err != nil {
			s.degrade(m, err)
			return err
		}
		ev, ok := g.FindCompactMove(code)
		if !ok {
			err := fmt.Errorf("%w: engine proposed illegal move %q", core.ErrEngine, code)
			s.degrade(m, err)
			return err
		}
		if err := g.MakeMove(ev); err != nil {
			return err
		}
		s.log.Debug("computer move", zap.String("game", m.id), zap.String("move", ev.Notation()))
		return nil
	})
}

func (s *Service) think(m *Match) (string, error) {
	if err := m.engine.SetPosition(m.game.Position()); err != nil {
		return "", err
	}
	if _, err := m.engine.StartCalculation(); err != nil {
		return "", err
	}
	return m.engine.WaitBestMove()
}

// syncEngine pushes the current position to the opponent.
func (s *Service) syncEngine(m *Match) {
	if m.engine == nil || m.game.IsOver() {
		return
	}
	if err := m.engine.SetPosition(m.game.Position()); err != nil {
		s.degrade(m, err)
	}
}

// Resign records the resignation of side, which must be the side to move.
func (s *Service) Resign(gameID string, side core.Side) (*core.GameResponse, error) {
	return s.withMatch(gameID, func(m *Match) error {
		return m.game.RecordLoss(move.Resignation, side)
	})
}

// RecordTimeout records a loss on time for side.
func (s *Service) RecordTimeout(gameID string, side core.Side) (*core.GameResponse, error) {
	return s.withMatch(gameID, func(m *Match) error {
		return m.game.RecordLoss(move.TimeControl, side)
	})
}

// ClaimDraw ends the game as a draw of the named type when the claim holds.
func (s *Service) ClaimDraw(gameID, drawType string) (*core.GameResponse, error) {
	t := move.ParseDrawType(drawType)
	if t == move.NoDraw {
		return nil, fmt.Errorf("%w: unknown draw type %q", core.ErrInvalidEvent, drawType)
	}
	return s.withMatch(gameID, func(m *Match) error {
		return m.game.RecordDraw(t)
	})
}

// WarResult ends the game by decree. core.NoSide means nobody won.
func (s *Service) WarResult(gameID string, victor core.Side) (*core.GameResponse, error) {
	return s.withMatch(gameID, func(m *Match) error {
		return m.game.RecordWarResult(victor)
	})
}

// Undo takes back count history entries.
func (s *Service) Undo(gameID string, count int) (*core.GameResponse, error) {
	return s.withMatch(gameID, func(m *Match) error {
		if err := m.game.Undo(count); err != nil {
			return err
		}
		s.syncEngine(m)
		return nil
	})
}

// Board returns the position of a game as FEN and ASCII diagram
func (s *Service) Board(gameID string) (*core.BoardResponse, error) {
	m, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.game.Position()
	return &core.BoardResponse{FEN: p.FEN(), Board: p.ASCII()}, nil
}

// Record returns the game record and the position it replays from.
func (s *Service) Record(gameID string) (*core.RecordResponse, error) {
	m, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &core.RecordResponse{
		GameID:     m.id,
		InitialFEN: m.game.Initial().FEN(),
		Record:     m.game.Record(),
		Warnings:   m.game.Warnings(),
	}, nil
}

// persist writes history entries added since the last call and the result.
// After an undo the stored tail is dropped first.
func (s *Service) persist(m *Match) {
	if s.store == nil {
		return
	}
	history := m.game.History()
	if len(history) < m.persisted {
		s.store.DeleteUndoneMoves(m.id, len(history))
		m.persisted = len(history)
	}

	now := time.Now().UTC()
	for i := m.persisted; i < len(history); i++ {
		after := m.game.Position()
		if i+1 < len(history) {
			after = &history[i+1].Before
		}
		ev := history[i].Event
		s.store.RecordMove(storage.MoveRecord{
			GameID:       m.id,
			MoveNumber:   i + 1,
			Notation:     ev.Notation(),
			MoveCode:     ev.CompactCode(),
			FENAfterMove: after.FEN(),
			PlayerColor:  ev.Side().Code(),
			MoveTimeUTC:  now,
		})
	}
	m.persisted = len(history)

	if result := core.StateName(m.game.Result(), m.game.Victor()); result != m.result {
		s.store.RecordResult(m.id, result, now)
		m.result = result
	}
}
