// Package main plays games hosted by a chessd server from the terminal.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"chessrules/internal/cli"
	"chessrules/internal/client"
	clitransport "chessrules/internal/transport/cli"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "chessd server base URL")
	theme := flag.String("color", "", "Board color theme: off, brown, green, gray (default brown on a terminal)")
	debug := flag.Bool("debug", false, "Log API requests to stderr")
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

	api := client.New(*apiURL, log)
	health, err := api.Health()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server %s unreachable: %v\n", api.BaseURL(), err)
		os.Exit(1)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	var view *cli.CLI
	if interactive {
		editor, rl, err := cli.NewLineEditor(".chess_client_history")
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

	view.ShowWelcome()
	view.ShowMessage(fmt.Sprintf("Connected to %s (storage %s)", api.BaseURL(), health.Storage))

	if err := clitransport.New(api, view).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
		os.Exit(1)
	}
}
