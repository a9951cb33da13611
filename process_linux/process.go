//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"memwatch/process"
	"memwatch/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// procRoot is where procfs is mounted; tests point it at a fake tree.
var procRoot = "/proc"

// mapsRefreshInterval limits how often a lookup miss reloads the memory map.
var mapsRefreshInterval = 250 * time.Millisecond

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid      process.ProcessID
	image    string // name the process was looked up by, may be empty
	exe      string
	start    uint64 // starttime from /proc/<pid>/stat, in clock ticks
	base     process.ProcessMemoryAddress
	log      *logger.Logger
	mm       []memory_map.MemoryMapItem
	mapsRead time.Time
	mu       sync.Mutex
	exited   atomic.Bool
}

// New creates a new LinuxProcess instance
func New() process.Process {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &LinuxProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewWithImage opens pid, locating the module base by image name when the
// executable link names a loader such as wine64-preloader.
func NewWithImage(pid process.ProcessID, image string) (process.Process, error) {
	p := &LinuxProcess{image: image}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	procPath := filepath.Join(procRoot, strconv.Itoa(int(pid)))
	if _, err := os.Stat(procPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &process.OpenError{PID: pid, Err: process.ErrProcessNotFound}
		}
		return &process.OpenError{PID: pid, Err: err}
	}

	exe, err := os.Readlink(filepath.Join(procPath, "exe"))
	if err != nil {
		return &process.OpenError{PID: pid, Err: fmt.Errorf("resolve executable: %w", err)}
	}

	image := p.image
	if image == "" {
		comm, _ := os.ReadFile(filepath.Join(procPath, "comm"))
		image = string(bytesTrimNL(comm))
	}

	p.mu.Lock()
	p.pid = pid
	p.exe = exe
	p.start = readStartTime(int(pid))
	p.exited.Store(false)
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		return &process.OpenError{PID: pid, Err: fmt.Errorf("failed to initialize memory map: %w", err)}
	}

	p.mu.Lock()
	base, path, ok := imageBase(exe, image, p.mm)
	if ok {
		p.base = process.ProcessMemoryAddress(base)
	}
	p.mu.Unlock()

	if !ok {
		return &process.OpenError{PID: pid, Err: fmt.Errorf("no mapping backed by %s", exe)}
	}

	p.log.Infoln("Process opened,", filepath.Base(path), "loaded at", p.base.ToString())

	return nil
}

// imageBase finds the load address of the main image. Under Wine the exe link
// names the preloader, so the mapping of the image itself is found by name.
func imageBase(exe, image string, mm []memory_map.MemoryMapItem) (uint64, string, bool) {
	if image != "" && !matchName(filepath.Base(exe), image) {
		var path string
		base, ok := memory_map.ImageBaseFunc(func(p string) bool {
			if matchImage(filepath.Base(p), image) {
				path = p
				return true
			}
			return false
		}, mm)
		if ok {
			return base, path, true
		}
	}

	base, ok := memory_map.ImageBase(exe, mm)
	return base, exe, ok
}

// Wine keeps Windows file names, whose case need not match the name asked for.
func matchImage(file, image string) bool {
	image = strings.TrimSuffix(image, ".exe")
	return strings.EqualFold(file, image) || strings.EqualFold(file, image+".exe")
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.exe = ""
	p.start = 0
	p.base = 0
	p.mm = nil
	p.mapsRead = time.Time{}

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// HasExited reports whether the process is gone. Once it returns true it keeps
// returning true. A PID now held by a process with another start time counts
// as exited.
func (p *LinuxProcess) HasExited() bool {
	if p.exited.Load() {
		return true
	}

	p.mu.Lock()
	pid, start, log := p.pid, p.start, p.log
	p.mu.Unlock()

	if pid == 0 {
		return true
	}

	if !procExists(int(pid)) || readState(int(pid)).IsExited() || reused(int(pid), start) {
		if !p.exited.Swap(true) {
			log.Infoln("Process exited")
		}
		return true
	}
	return false
}

func reused(pid int, start uint64) bool {
	now := readStartTime(pid)
	return start != 0 && now != 0 && now != start
}

// ModuleBaseAddress returns the address the executable image was mapped at when
// the process was opened.
func (p *LinuxProcess) ModuleBaseAddress() (process.ProcessMemoryAddress, error) {
	if p.HasExited() {
		return 0, process.ErrProcessExited
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.base, nil
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}
	return p.updateMemoryMapInternal()
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) updateMemoryMapInternal() error {
	maps := &memory_map.LinuxMemoryMap{Root: procRoot}
	mm, err := maps.ReadMemoryMap(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	// FindRegion requires the memory map to be sorted by address
	memory_map.SortByAddress(mm)

	p.mm = mm
	p.mapsRead = time.Now()
	return nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isValidAddressInternal(addr)
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	if item := p.lookupRegion(addr); item != nil {
		return isReadablePerms(item.Perms)
	}
	return false
}

// lookupRegion finds the region holding addr. A miss reloads the map, at most
// once per mapsRefreshInterval, so regions mapped after Open are found.
// The mutex must be held.
func (p *LinuxProcess) lookupRegion(addr process.ProcessMemoryAddress) *memory_map.MemoryMapItem {
	if p.pid == 0 || addr <= 0x10000 {
		return nil
	}

	if item := memory_map.FindRegion(uint64(addr), p.mm); item != nil {
		return item
	}
	if time.Since(p.mapsRead) < mapsRefreshInterval {
		return nil
	}
	if err := p.updateMemoryMapInternal(); err != nil {
		p.log.Debugln("memory map reload failed:", err)
		return nil
	}
	return memory_map.FindRegion(uint64(addr), p.mm)
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	// Make a copy of the memory map to prevent external modification
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}

// Helper functions for checking permissions using the Linux memory map
var memoryMapHelper = memory_map.NewLinuxMemoryMap()

func isReadablePerms(perms string) bool {
	return memoryMapHelper.IsReadablePerms(perms)
}

func isWritablePerms(perms string) bool {
	return memoryMapHelper.IsWritablePerms(perms)
}
