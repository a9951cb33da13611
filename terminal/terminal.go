// Package terminal is the interactive memwatch console.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"memwatch/coloransi"
	"memwatch/mediator"
	"memwatch/process"
	"memwatch/resolver"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	prompt      = "(memwatch) "
	historyFile = ".memwatch_history"
)

// Target is what the console inspects; *session.Session satisfies it.
type Target interface {
	Resolver() *resolver.Resolver
	Mediator() *mediator.Mediator
	Process() process.Process
}

// Term reads commands from a liner prompt and writes results to out.
type Term struct {
	target  Target
	cmds    *Commands
	out     io.Writer
	palette coloransi.Palette

	mu        sync.Mutex
	watching  bool
	workSub   mediator.Subscription
	selectSub mediator.Subscription
}

// New creates a console on stdout, colored when stdout is a terminal.
func New(target Target) *Term {
	fd := os.Stdout.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewWithWriter(target, colorable.NewColorableStdout(), color)
}

// NewWithWriter creates a console writing to w.
func NewWithWriter(target Target, w io.Writer, color bool) *Term {
	t := &Term{
		target:  target,
		cmds:    NewCommands(),
		out:     &lockedWriter{w: w},
		palette: coloransi.Palette{Enabled: color},
	}
	t.selectSub = target.Mediator().SubscribeSelection(func(region string) {
		fmt.Fprintln(t.out, "selected", t.palette.Foreground(coloransi.Orange, region))
	})
	return t
}

// Exec runs one command line.
func (t *Term) Exec(line string) error {
	return t.cmds.Call(t, line)
}

// Run prompts until exit or EOF.
func (t *Term) Run() error {
	defer t.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(t.completer())

	history := historyPath()
	if f, err := os.Open(history); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.OpenFile(history, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return
		}
		_, _ = line.WriteHistory(f)
		f.Close()
	}()

	fmt.Fprintln(t.out, "Type 'help' for list of commands.")

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(t.out, "exit")
				return nil
			}
			return fmt.Errorf("prompt: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if err := t.Exec(input); err != nil {
			var exitReq ExitRequestError
			if errors.As(err, &exitReq) {
				return nil
			}
			fmt.Fprintln(t.out, t.palette.Foreground(coloransi.Red, "Command failed:", err))
		}
	}
}

// Close drops the console's subscriptions.
func (t *Term) Close() {
	t.watchOff()
	t.target.Mediator().Unsubscribe(t.selectSub)
}

func (t *Term) watchOn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.watching {
		return
	}
	t.watching = true
	t.workSub = t.target.Mediator().SubscribeWork(func() {
		printSnapshot(t, t.target.Resolver().Snapshot())
	})
}

func (t *Term) watchOff() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.watching {
		return
	}
	t.watching = false
	t.target.Mediator().Unsubscribe(t.workSub)
}

// completer offers command names, then region names for commands taking one.
func (t *Term) completer() liner.Completer {
	cmds := trie.New()
	for _, alias := range t.cmds.Aliases() {
		cmds.Add(alias, nil)
	}
	regions := trie.New()
	for _, name := range t.target.Resolver().Offsets().Names() {
		regions.Add(name, nil)
	}

	return func(line string) []string {
		name, rest, found := strings.Cut(line, " ")
		if !found {
			return cmds.PrefixSearch(line)
		}

		cmd, ok := t.cmds.Find(name)
		if !ok || strings.Contains(rest, " ") || !takesRegion(cmd) {
			return nil
		}
		var out []string
		for _, r := range regions.PrefixSearch(rest) {
			out = append(out, name+" "+r)
		}
		return out
	}
}

func takesRegion(cmd command) bool {
	for _, name := range []string{"select", "read", "get", "set", "find"} {
		if cmd.match(name) {
			return true
		}
	}
	return false
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, historyFile)
}

// lockedWriter serializes command output with watch output from the poll goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
