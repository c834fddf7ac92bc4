//go:build linux

package peer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TASK_COMM_LEN minus the terminating NUL.
const maxCommLen = 15

var procRoot = "/proc"

func findProcess(name string) (Process, bool) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return Process{}, false
	}

	want := truncateComm(name, maxCommLen)
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(procRoot, e.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) != want {
			continue
		}
		exe, _ := os.Readlink(filepath.Join(procRoot, e.Name(), "exe"))
		return Process{PID: pid, Path: exe}, true
	}
	return Process{}, false
}
