// Package cli implements the "chessd db" maintenance commands.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"chessrules/internal/storage"
)

// Run is the entry point for the db mini-app. Output goes to stdout.
func Run(args []string) error {
	return RunTo(os.Stdout, args)
}

// RunTo runs a db subcommand writing its report to out.
func RunTo(out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query or record")
	}

	switch args[0] {
	case "init":
		return runInit(out, args[1:])
	case "delete":
		return runDelete(out, args[1:])
	case "query":
		return runQuery(out, args[1:])
	case "record":
		return runRecord(out, args[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func openStore(name string, args []string, extra func(*flag.FlagSet)) (*storage.Store, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if *path == "" {
		return nil, nil, fmt.Errorf("database path required")
	}

	store, err := storage.NewStore(*path, false, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, fs, nil
}

func runInit(out io.Writer, args []string) error {
	store, fs, err := openStore("init", args, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(out, "Database initialized at: %s\n", fs.Lookup("path").Value)
	return nil
}

func runDelete(out io.Writer, args []string) error {
	store, fs, err := openStore("delete", args, nil)
	if err != nil {
		return err
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(out, "Database deleted: %s\n", fs.Lookup("path").Value)
	return nil
}

func runQuery(out io.Writer, args []string) error {
	var gameID, playerID, result string
	store, _, err := openStore("query", args, func(fs *flag.FlagSet) {
		fs.StringVar(&gameID, "gameId", "", "Game ID to filter (optional, * for all)")
		fs.StringVar(&playerID, "playerId", "", "Player ID to filter (optional, * for all)")
		fs.StringVar(&result, "result", "", "Result to filter: ongoing, white_wins, black_wins, draw (optional)")
	})
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames(gameID, playerID, result)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tWhite Player\tBlack Player\tResult\tStart Time\tEnd Time")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, g := range games {
		end := "-"
		if g.EndTimeUTC != nil {
			end = g.EndTimeUTC.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			short(g.GameID)+"...",
			playerInfo(g.WhitePlayerID, g.WhiteType, g.WhiteDifficulty),
			playerInfo(g.BlackPlayerID, g.BlackType, g.BlackDifficulty),
			g.Result,
			g.StartTimeUTC.Format("2006-01-02 15:04:05"),
			end,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

func runRecord(out io.Writer, args []string) error {
	var gameID string
	store, _, err := openStore("record", args, func(fs *flag.FlagSet) {
		fs.StringVar(&gameID, "gameId", "", "Game ID (required)")
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if gameID == "" {
		return fmt.Errorf("game ID required")
	}

	initial, record, err := store.LoadRecord(gameID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Initial: %s\nRecord:  %s\n", initial, record)
	return nil
}

func playerInfo(id string, typ int, difficulty string) string {
	info := fmt.Sprintf("%s (T%d)", short(id), typ)
	if difficulty != "" {
		info += " " + difficulty
	}
	return info
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
