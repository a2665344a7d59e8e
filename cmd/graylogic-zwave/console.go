package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
)

// lineReader is the part of *readline.Instance the console loop uses.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// newConsole opens the interactive prompt on the controlling terminal.
func newConsole() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zwave> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// waitForExit reads lines from r until the operator asks to stop. It returns
// true when an empty line was entered, meaning the network configuration
// should be saved. End of input, an interrupt or ctx ending return false.
// Non-empty lines are ignored. r is closed before returning.
func waitForExit(ctx context.Context, r lineReader) bool {
	defer r.Close() //nolint:errcheck // closing the terminal on exit

	result := make(chan bool, 1)
	go func() {
		for {
			line, err := r.Readline()
			if err != nil {
				// io.EOF, readline.ErrInterrupt or a closed reader
				result <- false
				return
			}
			if strings.TrimSpace(line) == "" {
				result <- true
				return
			}
		}
	}()

	select {
	case save := <-result:
		return save
	case <-ctx.Done():
		return false
	}
}
