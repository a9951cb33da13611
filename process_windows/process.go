//go:build windows

package process_windows

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"memwatch/process"
	"memwatch/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

// exit code reported by GetExitCodeProcess while the process runs
const stillActive = 259

// mapsRefreshInterval limits how often a lookup miss reloads the memory map.
var mapsRefreshInterval = 250 * time.Millisecond

const openAccess = windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	base   process.ProcessMemoryAddress
	log    *logger.Logger
	mm       []memory_map.MemoryMapItem
	mapsRead time.Time
	mu       sync.Mutex
	exited   atomic.Bool
}

// New creates a new WindowsProcess instance
func New() process.Process {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &WindowsProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	handle, err := windows.OpenProcess(openAccess, false, uint32(pid))
	if err != nil {
		return &process.OpenError{PID: pid, Err: fmt.Errorf("OpenProcess: %w", err)}
	}

	base, err := mainModuleBase(handle)
	if err != nil {
		windows.CloseHandle(handle)
		return &process.OpenError{PID: pid, Err: err}
	}

	p.mu.Lock()
	p.pid = pid
	p.handle = handle
	p.base = base
	p.exited.Store(false)
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	if err := p.updateMemoryMapInternal(); err != nil {
		p.log.Warn("Failed to initialize memory map: ", err)
	}
	p.mu.Unlock()

	p.log.Infoln("Process opened, main module loaded at", base.ToString())
	return nil
}

// mainModuleBase returns the load address of the first module, which is the executable.
func mainModuleBase(handle windows.Handle) (process.ProcessMemoryAddress, error) {
	var module windows.Handle
	var needed uint32
	if err := windows.EnumProcessModules(handle, &module, uint32(unsafe.Sizeof(module)), &needed); err != nil {
		return 0, fmt.Errorf("EnumProcessModules: %w", err)
	}

	var info windows.ModuleInfo
	if err := windows.GetModuleInformation(handle, module, &info, uint32(unsafe.Sizeof(info))); err != nil {
		return 0, fmt.Errorf("GetModuleInformation: %w", err)
	}

	return process.ProcessMemoryAddress(info.BaseOfDll), nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.base = 0
	p.mm = nil
	p.mapsRead = time.Time{}
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	p.log.Infoln("Process closed")

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// HasExited reports whether the process terminated. The answer never flips back.
func (p *WindowsProcess) HasExited() bool {
	if p.exited.Load() {
		return true
	}

	p.mu.Lock()
	handle, log := p.handle, p.log
	p.mu.Unlock()

	if handle == 0 {
		return true
	}

	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil || code != stillActive {
		if !p.exited.Swap(true) {
			log.Infoln("Process exited with code", code)
		}
		return true
	}
	return false
}

func (p *WindowsProcess) ModuleBaseAddress() (process.ProcessMemoryAddress, error) {
	if p.HasExited() {
		return 0, process.ErrProcessExited
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.base, nil
}

func (p *WindowsProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateMemoryMapInternal()
}

func (p *WindowsProcess) updateMemoryMapInternal() error {
	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewWindowsMemoryMap(p.handle).ReadMemoryMap(int(p.pid))
	if err != nil {
		return err
	}
	memory_map.SortByAddress(mm)
	p.mm = mm
	p.mapsRead = time.Now()
	return nil
}

// IsValidAddress reports whether addr lies in a readable region. A miss reloads
// the map, at most once per mapsRefreshInterval, so heap committed after Open
// is found.
func (p *WindowsProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	item := memory_map.FindRegion(uint64(addr), p.mm)
	if item == nil && p.handle != 0 && time.Since(p.mapsRead) >= mapsRefreshInterval {
		if err := p.updateMemoryMapInternal(); err != nil {
			p.log.Debugln("memory map reload failed:", err)
			return false
		}
		item = memory_map.FindRegion(uint64(addr), p.mm)
	}
	return item != nil && item.IsReadable()
}

func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return nil, process.ErrProcessNotOpen
	}
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if p.exited.Load() {
		return nil, process.ErrProcessExited
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, fmt.Errorf("ReadProcessMemory at %s: %w", addr.ToString(), err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}

	return buf, nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return process.ErrProcessNotOpen
	}
	if p.exited.Load() {
		return process.ErrProcessExited
	}

	var written uintptr
	if err := windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &written); err != nil {
		return fmt.Errorf("WriteProcessMemory at %s: %w", addr.ToString(), err)
	}
	if written != uintptr(len(data)) {
		return fmt.Errorf("only wrote %d of %d bytes", written, len(data))
	}
	return nil
}
