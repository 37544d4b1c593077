package core

import (
	"github.com/google/uuid"
)

type PlayerType int

const (
	PlayerHuman PlayerType = iota + 1
	PlayerComputer
)

func (t PlayerType) String() string {
	if t == PlayerComputer {
		return "computer"
	}
	return "human"
}

// Player controls one side of a game.
type Player struct {
	ID         string     `json:"id"`
	Side       string     `json:"side"` // "w" or "b"
	Type       PlayerType `json:"type"`
	Difficulty string     `json:"difficulty,omitempty"` // Only for computer
}

// PlayerConfig for API requests and configuration
type PlayerConfig struct {
	Type       PlayerType `json:"type" validate:"required,oneof=1 2"`
	Difficulty string     `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

type PlayersResponse struct {
	White *Player `json:"white"`
	Black *Player `json:"black"`
}

// NewPlayer creates a Player for side from its configuration.
func NewPlayer(config PlayerConfig, side Side) *Player {
	player := &Player{
		ID:   uuid.New().String(),
		Side: side.Code(),
		Type: config.Type,
	}
	if player.Type != PlayerComputer {
		player.Type = PlayerHuman
	}

	if player.Type == PlayerComputer {
		player.Difficulty = config.Difficulty
		if player.Difficulty == "" {
			player.Difficulty = "medium"
		}
	}

	return player
}

func (p *Player) IsComputer() bool {
	return p != nil && p.Type == PlayerComputer
}
