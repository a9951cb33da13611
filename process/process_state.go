package process

// ProcessState represents the state of a process
type ProcessState string

const (
	ProcessRunning    ProcessState = "R" // Running
	ProcessSleeping   ProcessState = "S" // Sleeping in an interruptible wait
	ProcessWaiting    ProcessState = "D" // Waiting in uninterruptible disk sleep
	ProcessZombie     ProcessState = "Z" // Zombie
	ProcessStopped    ProcessState = "T" // Stopped (on a signal)
	ProcessTracingStp ProcessState = "t" // Tracing stop
	ProcessDead       ProcessState = "X" // Dead
	ProcessIdle       ProcessState = "I" // Idle kernel thread
)

// IsExited reports whether the state belongs to a process that is gone
// even though its /proc entry may still be visible.
func (s ProcessState) IsExited() bool {
	return s == ProcessZombie || s == ProcessDead
}
