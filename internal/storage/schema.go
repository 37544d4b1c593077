package storage

import "time"

// GameRecord represents a row in the games table
type GameRecord struct {
	GameID          string     `db:"game_id"`
	InitialFEN      string     `db:"initial_fen"`
	WhitePlayerID   string     `db:"white_player_id"`
	WhiteType       int        `db:"white_type"`
	WhiteDifficulty string     `db:"white_difficulty"`
	BlackPlayerID   string     `db:"black_player_id"`
	BlackType       int        `db:"black_type"`
	BlackDifficulty string     `db:"black_difficulty"`
	Result          string     `db:"result"`
	StartTimeUTC    time.Time  `db:"start_time_utc"`
	EndTimeUTC      *time.Time `db:"end_time_utc"`
}

// MoveRecord represents one history event in the moves table. Terminal
// events are stored too, with an empty move code.
type MoveRecord struct {
	MoveID       int64     `db:"move_id"`
	GameID       string    `db:"game_id"`
	MoveNumber   int       `db:"move_number"`
	Notation     string    `db:"notation"`
	MoveCode     string    `db:"move_code"`
	FENAfterMove string    `db:"fen_after_move"`
	PlayerColor  string    `db:"player_color"` // "w", "b" or "-" for draws
	MoveTimeUTC  time.Time `db:"move_time_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	initial_fen TEXT NOT NULL,
	white_player_id TEXT NOT NULL,
	white_type INTEGER NOT NULL,
	white_difficulty TEXT NOT NULL DEFAULT '',
	black_player_id TEXT NOT NULL,
	black_type INTEGER NOT NULL,
	black_difficulty TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL DEFAULT 'ongoing'
		CHECK(result IN ('ongoing', 'white_wins', 'black_wins', 'draw')),
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	end_time_utc DATETIME
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id TEXT NOT NULL,
	move_number INTEGER NOT NULL,
	notation TEXT NOT NULL,
	move_code TEXT NOT NULL DEFAULT '',
	fen_after_move TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b', '-')),
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	UNIQUE(game_id, move_number)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
CREATE INDEX IF NOT EXISTS idx_games_white_player ON games(white_player_id);
CREATE INDEX IF NOT EXISTS idx_games_black_player ON games(black_player_id);
CREATE INDEX IF NOT EXISTS idx_games_result ON games(result);
`
