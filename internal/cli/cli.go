// Package cli is the terminal view: command parsing and board rendering.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"chessrules/internal/board"
	"chessrules/internal/core"
)

type CommandType int

const (
	CmdNone CommandType = iota
	CmdNew
	CmdResume
	CmdMove
	CmdGo
	CmdUndo
	CmdResign
	CmdDraw
	CmdTimeout
	CmdRecord
	CmdMoves
	CmdBoard
	CmdColor
	CmdVerbose
	CmdHistory
	CmdHelp
	CmdQuit
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeBrown ColorTheme = "brown"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	lightBg string
	darkBg  string
	white   string
	black   string
	reset   string
}

var themes = map[ColorTheme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg: "\033[48;5;230m", // Beige
		darkBg:  "\033[48;5;94m",  // Brown
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGreen: {
		lightBg: "\033[48;5;157m", // Light green
		darkBg:  "\033[48;5;22m",  // Dark green
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGray: {
		lightBg: "\033[48;5;251m", // Light gray
		darkBg:  "\033[48;5;240m", // Dark gray
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
}

// LineReader yields one input line per call. io.EOF ends the session.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
	output  io.Writer
}

func (r *scannerReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.output, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

type CLI struct {
	input   LineReader
	output  io.Writer
	theme   ColorTheme
	verbose bool
}

// New reads plain lines from input.
func New(input io.Reader, output io.Writer) *CLI {
	return NewWithReader(&scannerReader{scanner: bufio.NewScanner(input), output: output}, output)
}

// NewWithReader reads lines through r, a line editor for instance.
func NewWithReader(r LineReader, output io.Writer) *CLI {
	return &CLI{
		input:  r,
		output: output,
		theme:  ThemeOff,
	}
}

// GetCommand shows prompt and reads one command
func (c *CLI) GetCommand(prompt string) (*Command, error) {
	line, err := c.input.ReadLine(prompt)
	if errors.Is(err, io.EOF) {
		return &Command{Type: CmdQuit}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseCommand(line), nil
}

// ParseCommand maps an input line to a command. Unknown words are moves.
func ParseCommand(input string) *Command {
	input = strings.TrimSpace(input)
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "new":
		return &Command{Type: CmdNew, Args: args}
	case "resume", "load":
		return &Command{Type: CmdResume, Args: args, Raw: strings.TrimSpace(strings.TrimPrefix(input, cmd))}
	case "go":
		return &Command{Type: CmdGo}
	case "undo":
		return &Command{Type: CmdUndo, Args: args}
	case "resign":
		return &Command{Type: CmdResign}
	case "draw":
		return &Command{Type: CmdDraw, Args: args}
	case "timeout":
		return &Command{Type: CmdTimeout, Args: args}
	case "record":
		return &Command{Type: CmdRecord}
	case "moves":
		return &Command{Type: CmdMoves}
	case "board":
		return &Command{Type: CmdBoard}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "verbose":
		return &Command{Type: CmdVerbose}
	case "history":
		return &Command{Type: CmdHistory}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit":
		return &Command{Type: CmdQuit}
	default:
		return &Command{Type: CmdMove, Args: []string{cmd}}
	}
}

func (c *CLI) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	c.theme = theme
	return nil
}

func (c *CLI) ToggleVerbose() bool {
	c.verbose = !c.verbose
	return c.verbose
}

func (c *CLI) IsVerbose() bool {
	return c.verbose
}

func (c *CLI) ShowMessage(msg string) {
	fmt.Fprintln(c.output, msg)
}

func (c *CLI) ShowError(err error) {
	c.ShowMessage(fmt.Sprintf("Error: %v", err))
}

// ReadLine asks a question and returns the trimmed answer, "" on end of input.
func (c *CLI) ReadLine(prompt string) string {
	line, err := c.input.ReadLine(prompt)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func (c *CLI) DisplayBoard(p *board.Position) {
	theme := themes[c.theme]
	var sb strings.Builder

	sb.WriteString("\n  a b c d e f g h\n")

	for r := 7; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for f := 0; f < 8; f++ {
			sq := core.NewSquare(f, r)
			piece := p.PieceAt(sq)

			if c.theme == ThemeOff {
				if piece.IsEmpty() {
					sb.WriteString(". ")
				} else {
					sb.WriteString(fmt.Sprintf("%c ", piece.Code()))
				}
				continue
			}

			bg := theme.darkBg
			if sq.IsLight() {
				bg = theme.lightBg
			}
			if piece.IsEmpty() {
				sb.WriteString(fmt.Sprintf("%s  %s", bg, theme.reset))
			} else {
				color := theme.black
				if piece.Side == core.White {
					color = theme.white
				}
				sb.WriteString(fmt.Sprintf("%s%s%c %s", bg, color, piece.Code(), theme.reset))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h\n")

	c.ShowMessage(sb.String())
}

func (c *CLI) ShowHelp() {
	help := `Commands:
  new [w] [b]      - Start a new game; w and b are h (human) or c[:easy|medium|hard]
  resume <record>  - Load a game record or a bare FEN
                     append 'from <FEN>' when the record starts elsewhere
  <move>           - Make a move (e.g., e2e4, g1f3, e7e8q)
  go (or ENTER)    - Let the engine move for a computer side
  undo [count]     - Undo last history entries, default 1
  resign           - The side to move resigns
  draw <type>      - Claim a draw: fifty_move, threefold_repetition, by_agreement
  timeout <w|b>    - Record a loss on time
  moves            - List the legal moves
  board            - Show the board
  record           - Print the game record
  history          - Show the event history
  color <theme>    - Set board color theme (off|brown|green|gray)
  verbose          - Toggle event descriptions
  quit/exit        - Exit the program
  help/?           - Show this help message`

	c.ShowMessage(help)
}

func (c *CLI) ShowWelcome() {
	c.ShowMessage("Welcome to Chess!")
	c.ShowMessage("Commands: new, resume <record>, <move>, go, undo, resign, draw, record, history, help/?, quit")
	c.ShowMessage("Example: 'resume 4k3/8/8/8/8/8/8/4K2R w K - 0 1' to start from a puzzle.")
	c.ShowMessage("")
}

// ShowHistory prints the events two per line, White first.
func (c *CLI) ShowHistory(resp *core.GameResponse, initialFEN string) {
	c.ShowMessage(fmt.Sprintf("Starting FEN: %s", initialFEN))

	history := resp.History
	for i := 0; i < len(history); i += 2 {
		line := fmt.Sprintf("%d. %s", i/2+1, history[i])
		if i+1 < len(history) {
			line += " | " + history[i+1]
		}
		c.ShowMessage(line)
	}
	c.ShowMessage(fmt.Sprintf("Current FEN: %s", resp.FEN))
	c.ShowMessage(fmt.Sprintf("Game state: %s", resp.State))
}

// ShowEvent reports the last event, with its description in verbose mode.
func (c *CLI) ShowEvent(who string, ev *core.EventInfo) {
	if ev == nil {
		return
	}
	if c.verbose {
		c.ShowMessage(fmt.Sprintf("%s: %s (%s)", who, ev.Notation, ev.Description))
		return
	}
	c.ShowMessage(fmt.Sprintf("%s: %s", who, ev.Notation))
}

func (c *CLI) ShowGameOver(resp *core.GameResponse) {
	msg := "\nGame Over: " + resp.State
	if resp.LastEvent != nil {
		msg += " (" + resp.LastEvent.Description + ")"
	}
	c.ShowMessage(msg)
	c.ShowMessage("Undo, or start a new game with 'new' or 'resume'.")
}
