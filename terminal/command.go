package terminal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"memwatch/coloransi"
	"memwatch/hexdump"
	"memwatch/pod"
	"memwatch/process"
	"memwatch/resolver"
	"memwatch/search"

	"github.com/google/shlex"
)

// largest read the console will dump
const maxReadSize = 0x10000

// find limits
const (
	maxFindResults = 64
	findStructSize = 0x400
)

var errNoCmd = errors.New("command not available")

// ExitRequestError is returned by the exit command.
type ExitRequestError struct{}

func (ExitRequestError) Error() string { return "exit requested" }

type cmdFn func(t *Term, args []string) error

type command struct {
	aliases []string
	usage   string
	help    string
	fn      cmdFn
}

func (c command) match(name string) bool {
	for _, a := range c.aliases {
		if a == name {
			return true
		}
	}
	return false
}

// Commands is the console command table.
type Commands struct {
	cmds []command
}

func NewCommands() *Commands {
	c := &Commands{}
	c.cmds = []command{
		{aliases: []string{"help", "h"}, usage: "help [command]", help: "list commands or show help for one", fn: c.help},
		{aliases: []string{"ready"}, usage: "ready", help: "report whether the target is still running", fn: ready},
		{aliases: []string{"show", "ls"}, usage: "show", help: "print the resolved address of every region", fn: show},
		{aliases: []string{"select", "sel"}, usage: "select <region>", help: "announce a region selection to subscribers", fn: selectRegion},
		{aliases: []string{"read", "x"}, usage: "read <region> <size> [offset...]", help: "follow a pointer chain from a region and hex dump size bytes", fn: read},
		{aliases: []string{"get"}, usage: "get <region> <type> [offset...]", help: "read a typed value at the end of a pointer chain", fn: get},
		{aliases: []string{"set"}, usage: "set <region> <type> <value> [offset...]", help: "write a typed value at the end of a pointer chain", fn: set},
		{aliases: []string{"find"}, usage: "find <region> <type> <value> [depth]", help: "search structs reachable from a region for a typed value", fn: find},
		{aliases: []string{"watch", "w"}, usage: "watch on|off", help: "print the address set after every poll", fn: watch},
		{aliases: []string{"exit", "quit", "q"}, usage: "exit", help: "leave the console", fn: exit},
	}
	return c
}

// Find looks up a command by any alias.
func (c *Commands) Find(name string) (command, bool) {
	for _, cmd := range c.cmds {
		if cmd.match(name) {
			return cmd, true
		}
	}
	return command{}, false
}

// Aliases returns every command alias.
func (c *Commands) Aliases() []string {
	var out []string
	for _, cmd := range c.cmds {
		out = append(out, cmd.aliases...)
	}
	return out
}

// Call splits line shell-style and runs the named command.
func (c *Commands) Call(t *Term, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := c.Find(args[0])
	if !ok {
		return fmt.Errorf("%s: %w", args[0], errNoCmd)
	}
	return cmd.fn(t, args[1:])
}

func (c *Commands) help(t *Term, args []string) error {
	if len(args) > 0 {
		cmd, ok := c.Find(args[0])
		if !ok {
			return fmt.Errorf("%s: %w", args[0], errNoCmd)
		}
		fmt.Fprintf(t.out, "%s\n\t%s\n", cmd.usage, cmd.help)
		return nil
	}

	fmt.Fprintln(t.out, "The following commands are available:")
	w := tabwriter.NewWriter(t.out, 0, 8, 1, ' ', 0)
	for _, cmd := range c.cmds {
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s)\t%s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), cmd.help)
		} else {
			fmt.Fprintf(w, "    %s\t%s\n", cmd.aliases[0], cmd.help)
		}
	}
	return w.Flush()
}

func argCount(args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("invalid number of arguments, expected %d-%d, actual %d", lo, hi, len(args))
	}
	return nil
}

func ready(t *Term, args []string) error {
	if t.target.Resolver().IsReady() {
		fmt.Fprintln(t.out, t.palette.Foreground(coloransi.Green, "ready"))
	} else {
		fmt.Fprintln(t.out, t.palette.Foreground(coloransi.Red, "process exited"))
	}
	return nil
}

func show(t *Term, args []string) error {
	printSnapshot(t, t.target.Resolver().Snapshot())
	return nil
}

func printSnapshot(t *Term, snap *resolver.AddressSet) {
	if !snap.Resolved() {
		fmt.Fprintln(t.out, t.palette.Foreground(coloransi.BrightBlack, "(unresolved)"))
		return
	}

	w := tabwriter.NewWriter(t.out, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "generation\t%d\n", snap.Generation())
	fmt.Fprintf(w, "module\t%s\n", t.palette.Foreground(coloransi.Cyan, process.FormatHex(snap.ModuleBase())))
	for _, name := range snap.Names() {
		fmt.Fprintf(w, "%s\t%s\n", name, t.palette.Foreground(coloransi.Cyan, snap.Hex(name)))
	}
	w.Flush()
}

func selectRegion(t *Term, args []string) error {
	if err := argCount(args, 1, 1); err != nil {
		return err
	}
	region := args[0]
	if _, ok := t.target.Resolver().Offsets().Get(region); !ok {
		return fmt.Errorf("unknown region %q", region)
	}

	t.target.Mediator().SendSelection(region)
	return nil
}

// descriptor joins a region's resolved address with the offsets that follow it.
func descriptor(t *Term, region string, offs []string) (string, error) {
	snap := t.target.Resolver().Snapshot()
	if !snap.Resolved() {
		return "", errors.New("addresses are not resolved yet")
	}
	base := snap.Hex(region)
	if base == "" {
		return "", fmt.Errorf("unknown region %q", region)
	}
	return resolver.Concat(append([]string{base}, offs...)...), nil
}

// liveProcess returns the target process with its memory map reloaded, so
// chains can reach heap allocated after attach.
func liveProcess(t *Term) (process.Process, error) {
	proc := t.target.Process()
	if err := proc.UpdateMemoryMap(); err != nil {
		return nil, fmt.Errorf("reload memory map: %w", err)
	}
	return proc, nil
}

func lookupScalar(name string) (pod.Scalar, error) {
	s, ok := pod.LookupScalar(name)
	if !ok {
		return s, fmt.Errorf("unknown type %q, expected one of %s", name, strings.Join(pod.ScalarNames(), " "))
	}
	return s, nil
}

func get(t *Term, args []string) error {
	if err := argCount(args, 2, 16); err != nil {
		return err
	}
	kind, err := lookupScalar(args[1])
	if err != nil {
		return err
	}
	desc, err := descriptor(t, args[0], args[2:])
	if err != nil {
		return err
	}

	proc, err := liveProcess(t)
	if err != nil {
		return err
	}
	addr, err := process.ResolveAddressString(proc, desc)
	if err != nil {
		return err
	}
	v, err := kind.Read(proc, addr)
	if err != nil {
		return fmt.Errorf("read %s: %w", desc, err)
	}
	fmt.Fprintln(t.out, t.palette.Foreground(coloransi.BrightBlack, desc), kind.Name, v)
	return nil
}

func set(t *Term, args []string) error {
	if err := argCount(args, 3, 17); err != nil {
		return err
	}
	kind, err := lookupScalar(args[1])
	if err != nil {
		return err
	}
	if _, err := kind.Parse(args[2]); err != nil {
		return err
	}
	desc, err := descriptor(t, args[0], args[3:])
	if err != nil {
		return err
	}

	proc, err := liveProcess(t)
	if err != nil {
		return err
	}
	addr, err := process.ResolveAddressString(proc, desc)
	if err != nil {
		return err
	}
	if err := kind.Write(proc, addr, args[2]); err != nil {
		return fmt.Errorf("write %s: %w", desc, err)
	}
	return nil
}

func find(t *Term, args []string) error {
	if err := argCount(args, 3, 4); err != nil {
		return err
	}
	kind, err := lookupScalar(args[1])
	if err != nil {
		return err
	}
	pattern, err := kind.Parse(args[2])
	if err != nil {
		return err
	}
	depth := 3
	if len(args) == 4 {
		if depth, err = strconv.Atoi(args[3]); err != nil || depth < 0 {
			return fmt.Errorf("depth %q: expected a non-negative integer", args[3])
		}
	}

	desc, err := descriptor(t, args[0], nil)
	if err != nil {
		return err
	}
	base, err := process.ParseHex(desc)
	if err != nil {
		return err
	}

	proc, err := liveProcess(t)
	if err != nil {
		return err
	}
	results, err := search.Search(proc, base, pattern,
		search.WithMaxDepth(depth),
		search.WithMinAlignment(uint(kind.Size)),
		search.WithMaxStructSize(findStructSize),
		search.WithMaxResults(maxFindResults),
	)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(t.out, args[0], strings.ReplaceAll(r.String(), process.AddressSeparator, " "))
	}
	fmt.Fprintf(t.out, "%d matches\n", len(results))
	return nil
}

func read(t *Term, args []string) error {
	if err := argCount(args, 2, 16); err != nil {
		return err
	}

	desc, err := descriptor(t, args[0], args[2:])
	if err != nil {
		return err
	}

	size, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil || size == 0 || size > maxReadSize {
		return fmt.Errorf("size %q: expected 1-%#x", args[1], maxReadSize)
	}

	proc, err := liveProcess(t)
	if err != nil {
		return err
	}
	addr, err := process.ResolveAddressString(proc, desc)
	if err != nil {
		return err
	}
	data, err := proc.ReadMemory(addr, process.ProcessMemorySize(size))
	if err != nil {
		return fmt.Errorf("read %s: %w", desc, err)
	}

	mm, _ := proc.GetMemoryMap()
	fmt.Fprintln(t.out, t.palette.Foreground(coloransi.BrightBlack, desc))
	hexdump.Write(t.out, data, hexdump.Options{
		Address:   uint64(addr),
		MemoryMap: mm,
		Palette:   t.palette,
	})
	return nil
}

func watch(t *Term, args []string) error {
	if err := argCount(args, 1, 1); err != nil {
		return err
	}

	switch args[0] {
	case "on":
		t.watchOn()
	case "off":
		t.watchOff()
	default:
		return fmt.Errorf("watch: expected on or off, got %q", args[0])
	}
	return nil
}

func exit(t *Term, args []string) error {
	return ExitRequestError{}
}
