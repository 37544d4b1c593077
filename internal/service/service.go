// Package service keeps the running games, drives the engine opponent of
// computer controlled sides and mirrors every change into storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chessrules/internal/board"
	"chessrules/internal/core"
	"chessrules/internal/engine"
	"chessrules/internal/game"
	"chessrules/internal/storage"
)

const (
	DefaultMaxComputerGames = 10
	deleteFlushTimeout      = time.Second
)

// Opponent is the engine seen by a match. *engine.Client implements it.
type Opponent interface {
	SetPosition(pos *board.Position) error
	StartCalculation() (time.Duration, error)
	WaitBestMove() (string, error)
	Close() error
}

// Config wires a Service.
type Config struct {
	// Engine is the template for every engine launched; the difficulty is
	// taken from the computer player it serves.
	Engine engine.Config
	// NewEngine launches an opponent. Defaults to engine.Start.
	NewEngine func(engine.Config) (Opponent, error)
	// MaxComputerGames bounds the number of live engine processes.
	MaxComputerGames int

	Store  *storage.Store // nil disables persistence
	Logger *zap.Logger
}

// Service coordinates game state, engine opponents and storage
type Service struct {
	cfg    Config
	log    *zap.Logger
	store  *storage.Store
	waiter *WaitRegistry

	mu            sync.RWMutex
	matches       map[string]*Match
	computerGames atomic.Int32
}

// New creates a new service instance with optional storage
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewEngine == nil {
		cfg.NewEngine = startEngine
	}
	if cfg.MaxComputerGames <= 0 {
		cfg.MaxComputerGames = DefaultMaxComputerGames
	}
	return &Service{
		cfg:     cfg,
		log:     cfg.Logger,
		store:   cfg.Store,
		waiter:  NewWaitRegistry(),
		matches: make(map[string]*Match),
	}
}

func startEngine(cfg engine.Config) (Opponent, error) {
	c, err := engine.Start(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateGame starts a game from a record, a FEN or the standard layout. A
// record together with a FEN is replayed from that FEN.
func (s *Service) CreateGame(req core.CreateGameRequest) (*core.GameResponse, error) {
	var (
		g   *game.Game
		err error
	)
	switch {
	case req.Record != "" && req.FEN != "":
		var start *board.Position
		if start, err = board.ParseFEN(req.FEN); err == nil {
			g, err = game.ParseRecordFrom(start, req.Record)
		}
	case req.Record != "":
		g, err = game.ParseRecord(req.Record)
	case req.FEN != "":
		var p *board.Position
		if p, err = board.ParseFEN(req.FEN); err == nil {
			g = game.FromPosition(p)
		}
	default:
		g = game.New()
	}
	if err != nil {
		return nil, err
	}

	white := core.NewPlayer(req.White, core.White)
	black := core.NewPlayer(req.Black, core.Black)
	m := newMatch(s.generateID(), g, white, black)

	s.attachEngine(m)

	s.mu.Lock()
	s.matches[m.id] = m
	s.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.store != nil {
		s.store.RecordNewGame(storage.GameRecord{
			GameID:          m.id,
			InitialFEN:      g.Initial().FEN(),
			WhitePlayerID:   white.ID,
			WhiteType:       int(white.Type),
			WhiteDifficulty: white.Difficulty,
			BlackPlayerID:   black.ID,
			BlackType:       int(black.Type),
			BlackDifficulty: black.Difficulty,
			StartTimeUTC:    m.created,
		})
	}
	s.persist(m)

	s.log.Info("game created",
		zap.String("game", m.id),
		zap.Stringer("white", white.Type),
		zap.Stringer("black", black.Type),
		zap.Int("history", len(g.History())))
	return m.response(), nil
}

// attachEngine launches the opponent for a match with a computer player. A
// launch failure leaves the match playable with both sides human.
func (s *Service) attachEngine(m *Match) {
	p := m.computerPlayer()
	if p == nil {
		return
	}
	if !s.reserveComputerGame() {
		s.degrade(m, fmt.Errorf("%w: computer game limit %d reached", core.ErrEngine, s.cfg.MaxComputerGames))
		return
	}

	cfg := s.cfg.Engine
	cfg.Difficulty, _ = engine.ParseDifficulty(p.Difficulty)
	cfg.Logger = s.log.With(zap.String("game", m.id))

	eng, err := s.cfg.NewEngine(cfg)
	if err != nil {
		s.computerGames.Add(-1)
		s.degrade(m, err)
		return
	}
	m.engine = eng
	if err := eng.SetPosition(m.game.Position()); err != nil {
		s.degrade(m, err)
	}
}

// reserveComputerGame takes one engine slot, failing once the limit is held.
func (s *Service) reserveComputerGame() bool {
	for {
		n := s.computerGames.Load()
		if int(n) >= s.cfg.MaxComputerGames {
			return false
		}
		if s.computerGames.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// degrade tears down the engine of m and hands every side to a human. The
// game itself is untouched.
func (s *Service) degrade(m *Match, cause error) {
	if m.engine != nil {
		if err := m.engine.Close(); err != nil {
			s.log.Debug("engine close failed", zap.String("game", m.id), zap.Error(err))
		}
		m.engine = nil
		s.computerGames.Add(-1)
	}
	m.engineLost = true
	for _, p := range []*core.Player{m.white, m.black} {
		p.Type = core.PlayerHuman
		p.Difficulty = ""
	}
	s.log.Warn("engine opponent disabled, both sides now human",
		zap.String("game", m.id), zap.Error(cause))
}

func (s *Service) generateID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		id := uuid.New().String()
		if _, exists := s.matches[id]; !exists {
			return id
		}
	}
}

// lookup finds a live match, restoring it from storage when needed.
func (s *Service) lookup(gameID string) (*Match, error) {
	s.mu.RLock()
	m, ok := s.matches[gameID]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrGameNotFound, gameID)
	}
	return s.RestoreGame(gameID)
}

// RestoreGame reloads a persisted game into memory by replaying its record.
func (s *Service) RestoreGame(gameID string) (*Match, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrGameNotFound, gameID)
	}
	games, err := s.store.QueryGames(gameID, "", "")
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrGameNotFound, gameID)
	}
	rec := games[0]

	initialFEN, record, err := s.store.LoadRecord(gameID)
	if err != nil {
		return nil, err
	}
	start, err := board.ParseFEN(initialFEN)
	if err != nil {
		return nil, fmt.Errorf("%w: stored initial position: %w", core.ErrInvalidRecord, err)
	}
	g, err := game.ParseRecordFrom(start, record, game.WithVictor(storedVictor(rec.Result)))
	if err != nil {
		return nil, err
	}

	white := &core.Player{ID: rec.WhitePlayerID, Side: core.White.Code(), Type: core.PlayerType(rec.WhiteType), Difficulty: rec.WhiteDifficulty}
	black := &core.Player{ID: rec.BlackPlayerID, Side: core.Black.Code(), Type: core.PlayerType(rec.BlackType), Difficulty: rec.BlackDifficulty}
	m := newMatch(gameID, g, white, black)
	m.created = rec.StartTimeUTC
	m.persisted = len(g.History())
	m.result = core.StateName(g.Result(), g.Victor())

	s.mu.Lock()
	if existing, ok := s.matches[gameID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.matches[gameID] = m
	s.mu.Unlock()

	m.mu.Lock()
	s.attachEngine(m)
	m.mu.Unlock()

	s.log.Info("game restored", zap.String("game", gameID), zap.Int("history", m.persisted))
	return m, nil
}

// storedVictor maps a persisted result back to the winning side.
func storedVictor(result string) core.Side {
	switch result {
	case "white_wins":
		return core.White
	case "black_wins":
		return core.Black
	default:
		return core.NoSide
	}
}

// GetGame returns the current state of a game
func (s *Service) GetGame(gameID string) (*core.GameResponse, error) {
	m, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.response(), nil
}

// DeleteGame removes a game from memory and storage
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	m, ok := s.matches[gameID]
	delete(s.matches, gameID)
	s.mu.Unlock()

	if !ok && s.store == nil {
		return fmt.Errorf("%w: %s", core.ErrGameNotFound, gameID)
	}
	if !ok {
		games, err := s.store.QueryGames(gameID, "", "")
		if err != nil {
			return err
		}
		if len(games) == 0 {
			return fmt.Errorf("%w: %s", core.ErrGameNotFound, gameID)
		}
	}

	if m != nil {
		m.mu.Lock()
		if m.engine != nil {
			_ = m.engine.Close()
			m.engine = nil
			s.computerGames.Add(-1)
		}
		m.mu.Unlock()
	}

	if s.store != nil {
		s.store.DeleteGame(gameID)
		ctx, cancel := context.WithTimeout(context.Background(), deleteFlushTimeout)
		if err := s.store.Flush(ctx); err != nil {
			s.log.Warn("game delete not confirmed by storage", zap.String("game", gameID), zap.Error(err))
		}
		cancel()
	}
	s.waiter.RemoveGame(gameID)
	return nil
}

// WaitForChange blocks until the history length of a game differs from
// version, the wait times out or ctx ends.
func (s *Service) WaitForChange(ctx context.Context, gameID string, version int) (*core.GameResponse, error) {
	m, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	changed := s.waiter.RegisterWait(ctx, gameID, version)

	m.mu.Lock()
	current := m.version()
	m.mu.Unlock()
	if current == version {
		select {
		case <-changed:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.GetGame(gameID)
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// ComputerGames is the number of live engine opponents.
func (s *Service) ComputerGames() int {
	return int(s.computerGames.Load())
}

// Close stops every engine, releases waiters and closes storage.
func (s *Service) Close(timeout time.Duration) error {
	s.mu.Lock()
	matches := s.matches
	s.matches = make(map[string]*Match)
	s.mu.Unlock()

	for _, m := range matches {
		m.mu.Lock()
		if m.engine != nil {
			_ = m.engine.Close()
			m.engine = nil
			s.computerGames.Add(-1)
		}
		m.mu.Unlock()
	}

	var errs []error
	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
