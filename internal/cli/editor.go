package cli

import (
	"errors"

	"github.com/chzyer/readline"
)

// lineEditor adapts readline to LineReader. Ctrl-C yields an empty line.
type lineEditor struct {
	rl *readline.Instance
}

// NewLineEditor starts a readline session keeping its history in historyFile.
// Close the returned instance when done.
func NewLineEditor(historyFile string) (LineReader, *readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, nil, err
	}
	return &lineEditor{rl: rl}, rl, nil
}

func (e *lineEditor) ReadLine(prompt string) (string, error) {
	e.rl.SetPrompt(prompt)
	line, err := e.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", nil
	}
	return line, err
}
