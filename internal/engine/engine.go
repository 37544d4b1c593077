// Package engine drives an external UCI chess engine over its standard pipes.
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chessrules/internal/board"
	"chessrules/internal/core"
)

var (
	ErrTimeout = errors.New("timeout waiting for engine reply")
	ErrNoPipe  = errors.New("engine pipe not available")
	ErrClosed  = errors.New("engine output closed")
	ErrBusy    = errors.New("engine not ready for command")
)

// State is the protocol state of a Client.
type State int

const (
	StateNotStarted State = iota
	StateReady
	StateCalculating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateReady:
		return "ready"
	case StateCalculating:
		return "calculating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Client owns one engine process and its pipe pair.
type Client struct {
	cfg Config
	log *zap.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	in    *bufio.Writer
	lines chan string
	done  chan struct{}

	mu         sync.Mutex
	state      State
	gameActive bool
	name       string
	author     string
	bestMove   string
	budget     time.Duration
	readErr    error
	readErrMu  sync.Mutex
}

// Start launches the engine binary and completes the uci handshake.
func Start(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: no engine path configured", core.ErrEngine)
	}

	cmd := exec.Command(cfg.Path, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngine, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngine, err)
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %w", core.ErrEngine, cfg.Path, err)
	}

	c := newClient(cfg, stdin, stdout)
	c.cmd = cmd
	if err := c.handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewWithPipes runs the handshake over caller supplied pipes. w receives the
// commands and r yields the engine replies.
func NewWithPipes(w io.WriteCloser, r io.Reader, cfg Config) (*Client, error) {
	if w == nil || r == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngine, ErrNoPipe)
	}
	c := newClient(cfg.withDefaults(), w, r)
	if err := c.handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(cfg Config, w io.WriteCloser, r io.Reader) *Client {
	c := &Client{
		cfg:   cfg,
		log:   cfg.Logger,
		stdin: w,
		in:    bufio.NewWriter(w),
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

// readLoop feeds reply lines to the client until the pipe closes.
func (c *Client) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case c.lines <- strings.TrimSuffix(scanner.Text(), "\r"):
		case <-c.done:
			return
		}
	}
	c.readErrMu.Lock()
	c.readErr = scanner.Err()
	c.readErrMu.Unlock()
	close(c.lines)
}

func (c *Client) handshake() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send("uci"); err != nil {
		return err
	}
	if err := c.await("uciok", c.cfg.MaxPolls); err != nil {
		return err
	}

	debug := "debug off"
	if c.cfg.Debug {
		debug = "debug on"
	}
	if err := c.send(debug); err != nil {
		return err
	}
	if err := c.send(fmt.Sprintf("setoption name OwnBook value %t", c.cfg.OwnBook)); err != nil {
		return err
	}
	if c.cfg.BookFile != "" {
		if err := c.send("setoption name Book File value " + c.cfg.BookFile); err != nil {
			return err
		}
	}
	if err := c.sync(); err != nil {
		return err
	}

	c.state = StateReady
	c.log.Info("engine ready",
		zap.String("name", c.name),
		zap.String("author", c.author),
		zap.String("difficulty", c.cfg.Difficulty.String()))
	return nil
}

// send writes one command line and flushes it.
func (c *Client) send(cmd string) error {
	if c.in == nil || c.state == StateTerminated {
		return fmt.Errorf("%w: %w", core.ErrEngine, ErrNoPipe)
	}
	c.log.Debug("engine <", zap.String("cmd", cmd))
	if _, err := fmt.Fprintln(c.in, cmd); err != nil {
		return fmt.Errorf("%w: write %q: %w", core.ErrEngine, cmd, err)
	}
	if err := c.in.Flush(); err != nil {
		return fmt.Errorf("%w: write %q: %w", core.ErrEngine, cmd, err)
	}
	return nil
}

// await consumes replies until one starts with token. Each poll waits at most
// PollInterval for a line; polls without a line count against maxPolls.
func (c *Client) await(token string, maxPolls int) error {
	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for polls := 0; polls < maxPolls; {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return c.closedError(token)
			}
			if c.handle(line, token) {
				return nil
			}
		case <-timer.C:
			polls++
			timer.Reset(c.cfg.PollInterval)
		}
	}
	return fmt.Errorf("%w: %w: no %q after %s", core.ErrEngine, ErrTimeout, token,
		time.Duration(maxPolls)*c.cfg.PollInterval)
}

func (c *Client) closedError(token string) error {
	c.readErrMu.Lock()
	err := c.readErr
	c.readErrMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %w while waiting for %q: %w", core.ErrEngine, ErrClosed, token, err)
	}
	return fmt.Errorf("%w: %w while waiting for %q", core.ErrEngine, ErrClosed, token)
}

// handle interprets one reply line and reports whether it is the awaited token.
func (c *Client) handle(line, awaited string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	c.log.Debug("engine >", zap.String("line", line))

	switch fields[0] {
	case "id":
		if len(fields) >= 3 {
			value := strings.Join(fields[2:], " ")
			switch fields[1] {
			case "name":
				c.name = value
			case "author":
				c.author = value
			}
		}
	case "bestmove":
		if len(fields) >= 2 && fields[1] != "(none)" {
			c.bestMove = fields[1]
		}
		if c.state == StateCalculating {
			c.state = StateReady
		}
	}
	return fields[0] == awaited
}

// sync sends isready and drains replies until readyok.
func (c *Client) sync() error {
	if err := c.send("isready"); err != nil {
		return err
	}
	return c.await("readyok", c.cfg.MaxPolls)
}

// StartGame opens a new game, from pos or from the standard layout when pos is nil.
func (c *Client) StartGame(pos *board.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startGame(pos)
}

func (c *Client) startGame(pos *board.Position) error {
	if err := c.send("ucinewgame"); err != nil {
		return err
	}
	c.gameActive = true
	c.bestMove = ""
	if err := c.sendPosition(pos); err != nil {
		return err
	}
	return c.sync()
}

func (c *Client) sendPosition(pos *board.Position) error {
	if pos == nil {
		return c.send("position startpos")
	}
	return c.send("position fen " + pos.FEN())
}

// SetPosition pushes pos to the engine, starting a game first when none is active.
func (c *Client) SetPosition(pos *board.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gameActive {
		return c.startGame(pos)
	}
	return c.sendPosition(pos)
}

// StartCalculation asks for a move within the configured difficulty limits and
// returns the time budget the engine was given.
func (c *Client) StartCalculation() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return 0, fmt.Errorf("%w: %w: state %s", core.ErrEngine, ErrBusy, c.state)
	}
	limit := c.cfg.Difficulty.Limit()
	c.bestMove = ""
	if err := c.send(fmt.Sprintf("go depth %d movetime %d", limit.Depth, limit.MoveTime.Milliseconds())); err != nil {
		return 0, err
	}
	c.state = StateCalculating
	c.budget = limit.MoveTime
	return limit.MoveTime, nil
}

// StopCalculation asks the engine to finish early. The move arrives with the
// next Sync or WaitBestMove.
func (c *Client) StopCalculation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send("stop")
}

// Sync waits until the engine has processed every command sent so far.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync()
}

// WaitBestMove blocks until the running calculation reports its move. The wait
// is bounded by the calculation budget plus the usual reply ceiling.
func (c *Client) WaitBestMove() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCalculating {
		if c.bestMove != "" {
			return c.bestMove, nil
		}
		return "", fmt.Errorf("%w: %w: no calculation running", core.ErrEngine, ErrBusy)
	}

	polls := c.cfg.MaxPolls + int(c.budget/c.cfg.PollInterval)
	if err := c.await("bestmove", polls); err != nil {
		return "", err
	}
	if c.bestMove == "" {
		return "", fmt.Errorf("%w: engine reported no move", core.ErrEngine)
	}
	return c.bestMove, nil
}

// BestMove is the last reported move in compact form, empty if none.
func (c *Client) BestMove() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bestMove
}

// TakeBestMove returns the last reported move and forgets it.
func (c *Client) TakeBestMove() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.bestMove
	c.bestMove = ""
	return m
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) Author() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.author
}

// Close sends quit and releases the pipes. A launched process that does not exit
// within the grace period is killed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminated {
		return nil
	}
	_ = c.send("quit")
	c.state = StateTerminated
	c.gameActive = false
	close(c.done)
	_ = c.stdin.Close()

	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(c.cfg.CloseGrace):
		c.log.Warn("engine did not exit, killing", zap.Int("pid", c.cmd.Process.Pid))
		err := c.cmd.Process.Kill()
		<-done
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
}
