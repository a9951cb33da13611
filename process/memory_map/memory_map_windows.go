//go:build windows

package memory_map

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// highest user-mode address on x64
const maxUserAddress = 0x7FFFFFFEFFFF

// WindowsMemoryMap implements MemoryMap for Windows using VirtualQueryEx
type WindowsMemoryMap struct {
	handle windows.Handle
}

// NewWindowsMemoryMap creates a new WindowsMemoryMap for an open process handle
func NewWindowsMemoryMap(handle windows.Handle) *WindowsMemoryMap {
	return &WindowsMemoryMap{handle: handle}
}

// ReadMemoryMap walks the committed regions of the process. pid is unused, the
// handle given at construction identifies the process.
func (w *WindowsMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	var mbi windows.MemoryBasicInformation

	addr := uintptr(0)
	for addr < maxUserAddress {
		if err := windows.VirtualQueryEx(w.handle, addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
			break
		}
		if mbi.RegionSize == 0 {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			memoryMap = append(memoryMap, MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   protectToPerms(mbi.Protect),
			})
		}

		addr = mbi.BaseAddress + mbi.RegionSize
	}

	return memoryMap, nil
}

func protectToPerms(protect uint32) string {
	if protect&windows.PAGE_GUARD != 0 {
		return "---p"
	}
	switch protect &^ (windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		return "r--p"
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return "rw-p"
	case windows.PAGE_EXECUTE:
		return "--xp"
	case windows.PAGE_EXECUTE_READ:
		return "r-xp"
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return "rwxp"
	}
	return "---p"
}

func (w *WindowsMemoryMap) IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func (w *WindowsMemoryMap) IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func (w *WindowsMemoryMap) IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}
