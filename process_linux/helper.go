//go:build linux

package process_linux

import (
	"fmt"

	"memwatch/process"
)

// LinuxProcessHelper implements the process.ProcessOpener interface
type LinuxProcessHelper struct {
	Finder process.ProcessFinder
}

// NewHelper creates a new LinuxProcessHelper
func NewHelper() process.ProcessOpener {
	return &LinuxProcessHelper{
		Finder: NewProcessFinder(),
	}
}

// NewWithPID creates a new Process instance and opens it with the given PID
func (h *LinuxProcessHelper) NewWithPID(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}

// OpenProcessByName opens the lowest-PID process with the given name. The name
// also locates the module base when the process runs under a loader.
func (h *LinuxProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	pid, err := process.FindProcessID(h.Finder, name)
	if err != nil {
		return nil, fmt.Errorf("find process '%s': %w", name, err)
	}

	return NewWithImage(pid, name)
}
