package peer

// Process is a running peer process.
type Process struct {
	PID  int
	Path string // install path; empty when the platform cannot tell
}

// ProcessTable answers "is a process with this name running?".
type ProcessTable interface {
	Find(name string) (Process, bool)
}

// ProcessTableFunc adapts a function to ProcessTable.
type ProcessTableFunc func(name string) (Process, bool)

// Find implements ProcessTable.
func (f ProcessTableFunc) Find(name string) (Process, bool) { return f(name) }

// SystemProcesses probes the operating system's process table.
type SystemProcesses struct{}

// Find implements ProcessTable.
func (SystemProcesses) Find(name string) (Process, bool) {
	if name == "" {
		return Process{}, false
	}
	return findProcess(name)
}

// truncateComm shortens name to the kernel's command name length.
func truncateComm(name string, max int) string {
	if len(name) > max {
		return name[:max]
	}
	return name
}
