package process

// ProcessOpener defines operations for attaching to a process
type ProcessOpener interface {
	// NewWithPID creates a new Process instance and opens it with the given PID
	NewWithPID(pid ProcessID) (Process, error)

	// OpenProcessByName opens a process by its name (lowest PID wins)
	OpenProcessByName(name string) (Process, error)
}
