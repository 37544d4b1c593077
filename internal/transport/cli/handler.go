// Package cli connects the terminal view to the game service.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chessrules/internal/board"
	"chessrules/internal/cli"
	"chessrules/internal/core"
)

// GameAPI is the game backend the terminal drives: the in-process service or a
// remote server through its API client.
type GameAPI interface {
	CreateGame(req core.CreateGameRequest) (*core.GameResponse, error)
	GetGame(gameID string) (*core.GameResponse, error)
	MakeMove(gameID, code string) (*core.GameResponse, error)
	ComputerMove(gameID string) (*core.GameResponse, error)
	Undo(gameID string, count int) (*core.GameResponse, error)
	Resign(gameID string, side core.Side) (*core.GameResponse, error)
	ClaimDraw(gameID, drawType string) (*core.GameResponse, error)
	RecordTimeout(gameID string, side core.Side) (*core.GameResponse, error)
	Record(gameID string) (*core.RecordResponse, error)
}

type CLIHandler struct {
	svc    GameAPI
	view   *cli.CLI
	gameID string
}

func New(svc GameAPI, view *cli.CLI) *CLIHandler {
	return &CLIHandler{
		svc:  svc,
		view: view,
	}
}

// Run is the main loop; it returns on quit or end of input
func (h *CLIHandler) Run() error {
	for {
		cmd, err := h.view.GetCommand(h.prompt())
		if err != nil {
			return err
		}
		if !h.ProcessCommand(cmd) {
			return nil
		}
	}
}

// current returns the active game, or nil with a message when there is none.
func (h *CLIHandler) current() *core.GameResponse {
	if h.gameID == "" {
		h.view.ShowMessage("No active game. Use 'new' or 'resume <record>'.")
		return nil
	}
	g, err := h.svc.GetGame(h.gameID)
	if err != nil {
		h.view.ShowError(err)
		h.gameID = ""
		return nil
	}
	return g
}

func (h *CLIHandler) prompt() string {
	if h.gameID == "" {
		return "> "
	}
	g, err := h.svc.GetGame(h.gameID)
	if err != nil || g.State != "ongoing" {
		return "> "
	}
	prompt := fmt.Sprintf("[%s]> ", g.Turn)
	if turnPlayer(g).IsComputer() {
		prompt = "ENTER to execute computer move\n" + prompt
	}
	return prompt
}

func turnPlayer(g *core.GameResponse) *core.Player {
	if g.Turn == "b" {
		return g.Players.Black
	}
	return g.Players.White
}

// ProcessCommand handles one command and returns false to exit
func (h *CLIHandler) ProcessCommand(cmd *cli.Command) bool {
	switch cmd.Type {
	case cli.CmdQuit:
		return false

	case cli.CmdNone:
		if h.gameID == "" {
			return true
		}
		if g, err := h.svc.GetGame(h.gameID); err == nil && g.State == "ongoing" && turnPlayer(g).IsComputer() {
			h.computerMove()
		}

	case cli.CmdGo:
		if h.current() != nil {
			h.computerMove()
		}

	case cli.CmdNew:
		h.newGame(cmd.Args, "", "")

	case cli.CmdResume:
		if cmd.Raw == "" {
			h.view.ShowMessage("Usage: resume <record or FEN> [from <initial FEN>]")
			return true
		}
		record, fen, _ := strings.Cut(cmd.Raw, resumeFrom)
		h.newGame(nil, strings.TrimSpace(record), strings.TrimSpace(fen))

	case cli.CmdMove:
		if h.current() == nil {
			return true
		}
		resp, err := h.svc.MakeMove(h.gameID, cmd.Args[0])
		if err != nil {
			h.showMoveError(err)
			return true
		}
		h.view.ShowEvent("You", resp.LastEvent)
		h.showState(resp)

	case cli.CmdUndo:
		if h.current() == nil {
			return true
		}
		count := 1
		if len(cmd.Args) > 0 {
			n, err := strconv.Atoi(cmd.Args[0])
			if err != nil || n < 1 {
				h.view.ShowMessage("Invalid undo count. Usage: undo [count]")
				return true
			}
			count = n
		}
		resp, err := h.svc.Undo(h.gameID, count)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("%d history entries undone", count))
		h.showState(resp)

	case cli.CmdResign:
		g := h.current()
		if g == nil {
			return true
		}
		h.finish(h.svc.Resign(h.gameID, core.ParseSide(g.Turn)))

	case cli.CmdDraw:
		if h.current() == nil {
			return true
		}
		if len(cmd.Args) != 1 {
			h.view.ShowMessage("Usage: draw <fifty_move|threefold_repetition|by_agreement>")
			return true
		}
		h.finish(h.svc.ClaimDraw(h.gameID, cmd.Args[0]))

	case cli.CmdTimeout:
		if h.current() == nil {
			return true
		}
		side := core.NoSide
		if len(cmd.Args) == 1 {
			side = core.ParseSide(cmd.Args[0])
		}
		if side == core.NoSide {
			h.view.ShowMessage("Usage: timeout <w|b>")
			return true
		}
		h.finish(h.svc.RecordTimeout(h.gameID, side))

	case cli.CmdRecord:
		if h.current() == nil {
			return true
		}
		rec, err := h.svc.Record(h.gameID)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		if rec.InitialFEN != board.StartingFEN {
			h.view.ShowMessage(rec.Record + resumeFrom + rec.InitialFEN)
			return true
		}
		h.view.ShowMessage(rec.Record)

	case cli.CmdMoves:
		g := h.current()
		if g == nil {
			return true
		}
		if len(g.Moves) == 0 {
			h.view.ShowMessage("No legal moves.")
			return true
		}
		h.view.ShowMessage(strings.Join(g.Moves, " "))

	case cli.CmdBoard:
		if g := h.current(); g != nil {
			h.displayBoard(g.FEN)
		}

	case cli.CmdColor:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: color <off|brown|green|gray>")
			return true
		}
		theme := cli.ColorTheme(cmd.Args[0])
		if err := h.view.SetTheme(theme); err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", theme))
		if h.gameID != "" {
			if g, err := h.svc.GetGame(h.gameID); err == nil {
				h.displayBoard(g.FEN)
			}
		}

	case cli.CmdVerbose:
		verbose := h.view.ToggleVerbose()
		h.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", verbose))

	case cli.CmdHistory:
		g := h.current()
		if g == nil {
			return true
		}
		rec, err := h.svc.Record(h.gameID)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowHistory(g, rec.InitialFEN)

	case cli.CmdHelp:
		h.view.ShowHelp()
	}

	return true
}

func (h *CLIHandler) computerMove() {
	resp, err := h.svc.ComputerMove(h.gameID)
	if err != nil {
		if errors.Is(err, core.ErrEngine) {
			h.view.ShowError(fmt.Errorf("%v; both sides are now played by humans", err))
			return
		}
		h.view.ShowError(err)
		return
	}
	h.view.ShowEvent(fmt.Sprintf("Computer (%s)", resp.LastEvent.Side), resp.LastEvent)
	h.showState(resp)
}

func (h *CLIHandler) showMoveError(err error) {
	switch {
	case errors.Is(err, core.ErrNotHumanTurn):
		h.view.ShowMessage("It's not a human player's turn. Press ENTER to execute computer move.")
	case errors.Is(err, core.ErrIllegalMove):
		h.view.ShowError(fmt.Errorf("%v (type 'moves' for the legal moves)", err))
	default:
		h.view.ShowError(err)
	}
}

func (h *CLIHandler) finish(resp *core.GameResponse, err error) {
	if err != nil {
		h.view.ShowError(err)
		return
	}
	h.showState(resp)
}

func (h *CLIHandler) showState(resp *core.GameResponse) {
	h.displayBoard(resp.FEN)
	for _, w := range resp.Warnings {
		h.view.ShowMessage("Warning: " + w)
	}
	if resp.State != "ongoing" {
		h.view.ShowGameOver(resp)
	}
}

func (h *CLIHandler) displayBoard(fen string) {
	p, err := board.ParseFEN(fen)
	if err != nil {
		h.view.ShowError(err)
		return
	}
	h.view.DisplayBoard(p)
}

// resumeFrom separates a record from the position it was played from.
const resumeFrom = " from "

// newGame asks for the players unless given and starts a game from record,
// which may be empty, a bare FEN or a full record. A non-empty fen is the
// position the record is replayed from.
func (h *CLIHandler) newGame(args []string, record, fen string) {
	var white, black core.PlayerConfig
	if len(args) >= 2 {
		white, black = parsePlayer(args[0]), parsePlayer(args[1])
	} else {
		white = parsePlayer(h.view.ReadLine("Select White player (h/c[:level]): "))
		black = parsePlayer(h.view.ReadLine("Select Black player (h/c[:level]): "))
	}

	resp, err := h.svc.CreateGame(core.CreateGameRequest{White: white, Black: black, FEN: fen, Record: record})
	if err != nil {
		h.view.ShowError(fmt.Errorf("could not start the game: %w", err))
		return
	}
	h.gameID = resp.GameID

	h.view.ShowMessage("Game started.")
	if resp.Engine == "disabled" {
		h.view.ShowMessage("Engine unavailable, both sides are played by humans.")
	}
	h.showState(resp)
}

// parsePlayer reads "h", "c" or "c:<difficulty>".
func parsePlayer(s string) core.PlayerConfig {
	kind, level, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	if kind != "c" && kind != "computer" {
		return core.PlayerConfig{Type: core.PlayerHuman}
	}
	switch level {
	case "easy", "medium", "hard":
	default:
		level = ""
	}
	return core.PlayerConfig{Type: core.PlayerComputer, Difficulty: level}
}
