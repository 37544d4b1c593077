// Package main runs an interactive chess game in the terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"chessrules/internal/cli"
	"chessrules/internal/engine"
	"chessrules/internal/service"
	clitransport "chessrules/internal/transport/cli"
)

func main() {
	enginePath := flag.String("engine", "stockfish", "UCI engine binary used for computer players")
	bookFile := flag.String("book", "", "Opening book file passed to the engine")
	theme := flag.String("color", "", "Board color theme: off, brown, green, gray (default brown on a terminal)")
	debug := flag.Bool("debug", false, "Log engine traffic to stderr")
	flag.Parse()

	log := zap.NewNop()
	if *debug {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	svc := service.New(service.Config{
		Engine: engine.Config{
			Path:     *enginePath,
			Debug:    *debug,
			OwnBook:  *bookFile != "",
			BookFile: *bookFile,
		},
		MaxComputerGames: 1,
		Logger:           log,
	})
	defer svc.Close(time.Second)

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	var view *cli.CLI
	if interactive {
		editor, rl, err := cli.NewLineEditor(".chess_history")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start line editor: %v\n", err)
			os.Exit(1)
		}
		defer rl.Close()
		view = cli.NewWithReader(editor, os.Stdout)
	} else {
		view = cli.New(os.Stdin, os.Stdout)
	}

	selected := cli.ColorTheme(*theme)
	if selected == "" {
		selected = cli.ThemeOff
		if interactive {
			selected = cli.ThemeBrown
		}
	}
	if err := view.SetTheme(selected); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	handler := clitransport.New(svc, view)

	view.ShowWelcome()
	if err := handler.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
		os.Exit(1)
	}
}
