//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"memwatch/process"

	"golang.org/x/sys/windows"
)

// WindowsProcessFinder implements process.ProcessFinder with a toolhelp snapshot
type WindowsProcessFinder struct{}

// NewProcessFinder creates a new WindowsProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &WindowsProcessFinder{}
}

func (f *WindowsProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	all, err := snapshotProcesses()
	if err != nil {
		return nil, err
	}
	for _, info := range all {
		if info.PID == pid {
			return &info, nil
		}
	}
	return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
}

// FindProcessByName matches image names case-insensitively, with or without ".exe".
func (f *WindowsProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	all, err := snapshotProcesses()
	if err != nil {
		return nil, err
	}

	var out []process.ProcessInfo
	for _, info := range all {
		if strings.EqualFold(info.Name, name) || strings.EqualFold(info.Name, name+".exe") {
			out = append(out, info)
		}
	}
	return out, nil
}

func snapshotProcesses() ([]process.ProcessInfo, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []process.ProcessInfo
	for err = windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		out = append(out, process.ProcessInfo{
			PID:  process.ProcessID(entry.ProcessID),
			PPID: process.ProcessID(entry.ParentProcessID),
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		})
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Process32Next: %w", err)
	}
	return out, nil
}

// WindowsProcessHelper implements process.ProcessOpener
type WindowsProcessHelper struct {
	Finder process.ProcessFinder
}

// NewHelper creates a new WindowsProcessHelper
func NewHelper() process.ProcessOpener {
	return &WindowsProcessHelper{Finder: NewProcessFinder()}
}

func (h *WindowsProcessHelper) NewWithPID(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}

func (h *WindowsProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	pid, err := process.FindProcessID(h.Finder, name)
	if err != nil {
		return nil, fmt.Errorf("find process '%s': %w", name, err)
	}
	return NewWithPID(pid)
}
