package process

// ProcessFinder defines operations for discovering processes
type ProcessFinder interface {
	// FindProcessByPID finds a process by its PID
	FindProcessByPID(pid ProcessID) (*ProcessInfo, error)

	// FindProcessByName finds processes by their name (exact match)
	FindProcessByName(name string) ([]ProcessInfo, error)
}

// FindProcessID returns the lowest PID whose name matches, or ErrProcessNotFound.
func FindProcessID(finder ProcessFinder, name string) (ProcessID, error) {
	processes, err := finder.FindProcessByName(name)
	if err != nil {
		return 0, err
	}
	if len(processes) == 0 {
		return 0, ErrProcessNotFound
	}

	pid := processes[0].PID
	for _, p := range processes[1:] {
		if p.PID < pid {
			pid = p.PID
		}
	}
	return pid, nil
}
