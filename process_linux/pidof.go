//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"memwatch/process"

	"golang.org/x/sys/unix"
)

// LinuxProcessFinder implements the process.ProcessFinder interface by walking /proc
type LinuxProcessFinder struct{}

// NewProcessFinder creates a new LinuxProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &LinuxProcessFinder{}
}

// FindProcessByPID finds a process by its PID
func (f *LinuxProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	if !procExists(int(pid)) {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}
	return getProcessInfo(int(pid))
}

// FindProcessByName returns all processes whose comm or exe basename equals name.
// Windows images running under Wine report "name.exe", so that form matches too.
// The match is case-sensitive (like pidof).
func (f *LinuxProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", procRoot, err)
	}

	selfPID := os.Getpid()
	var out []process.ProcessInfo

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue // skip ourselves
		}

		info, err := getProcessInfo(pid)
		if err != nil {
			// process may have terminated while we were reading
			continue
		}

		if matchName(info.Name, name) || (info.Exe != "" && matchName(filepath.Base(info.Exe), name)) {
			out = append(out, *info)
		}
	}

	return out, nil
}

func matchName(candidate, name string) bool {
	return candidate == name || candidate == name+".exe"
}

func getProcessInfo(pid int) (*process.ProcessInfo, error) {
	dir := filepath.Join(procRoot, strconv.Itoa(pid))

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}

	// may fail for zombies or without permission
	exe, _ := os.Readlink(filepath.Join(dir, "exe"))

	info := &process.ProcessInfo{
		PID:   process.ProcessID(pid),
		Name:  string(bytesTrimNL(comm)),
		Exe:   exe,
		State: readState(pid),
	}
	info.PPID = readPPID(pid)

	return info, nil
}

// ----- helpers -----

func procExists(pid int) bool {
	// Fast path: stat /proc/<pid>
	_, err := os.Stat(filepath.Join(procRoot, strconv.Itoa(pid)))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	return unix.Kill(pid, 0) == nil
}

// statFields returns the fields of /proc/<pid>/stat that follow the command
// name, which is parenthesised and may itself contain spaces or ')'.
func statFields(pid int) []string {
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return nil
	}
	s := string(data)
	end := strings.LastIndexByte(s, ')')
	if end < 0 {
		return nil
	}
	return strings.Fields(s[end+1:])
}

// readState returns the state letter from /proc/<pid>/stat, empty when unreadable.
func readState(pid int) process.ProcessState {
	fields := statFields(pid)
	if len(fields) < 1 {
		return ""
	}
	return process.ProcessState(fields[0])
}

func readPPID(pid int) process.ProcessID {
	fields := statFields(pid)
	if len(fields) < 2 {
		return 0
	}
	ppid, _ := strconv.Atoi(fields[1])
	return process.ProcessID(ppid)
}

// readStartTime returns the start time in clock ticks since boot, 0 when unreadable.
func readStartTime(pid int) uint64 {
	fields := statFields(pid)
	// starttime is field 22 of stat, the 20th after the command name
	if len(fields) < 20 {
		return 0
	}
	start, _ := strconv.ParseUint(fields[19], 10, 64)
	return start
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
