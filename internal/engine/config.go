package engine

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = time.Millisecond
	DefaultMaxPolls     = 250
	DefaultCloseGrace   = time.Second
)

// Difficulty selects the search limits sent with every go command.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// Limit is one row of the difficulty table.
type Limit struct {
	Depth    int
	MoveTime time.Duration
}

var limits = [...]Limit{
	Easy:   {Depth: 2, MoveTime: 250 * time.Millisecond},
	Medium: {Depth: 6, MoveTime: time.Second},
	Hard:   {Depth: 12, MoveTime: 3 * time.Second},
}

// Limit returns the search limits for d. Out of range values clamp to the table.
func (d Difficulty) Limit() Limit {
	switch {
	case d < Easy:
		return limits[Easy]
	case d > Hard:
		return limits[Hard]
	}
	return limits[d]
}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// ParseDifficulty accepts easy, medium or hard.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium", "":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Medium, fmt.Errorf("unknown difficulty %q", s)
}

// Config describes how to launch and talk to an engine.
type Config struct {
	Path       string
	Args       []string
	Difficulty Difficulty

	// Reply polling: each poll waits PollInterval, MaxPolls bounds a wait
	PollInterval time.Duration
	MaxPolls     int
	CloseGrace   time.Duration

	Debug    bool
	OwnBook  bool
	BookFile string

	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = DefaultCloseGrace
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
