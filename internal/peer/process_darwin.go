//go:build darwin

package peer

import (
	"bytes"
	"strings"

	"golang.org/x/sys/unix"
)

// MAXCOMLEN
const maxCommLen = 16

func findProcess(name string) (Process, bool) {
	procs, err := unix.SysctlKinfoProcSlice("kern.proc.all")
	if err != nil {
		return Process{}, false
	}

	want := truncateComm(name, maxCommLen)
	for _, p := range procs {
		if unix.ByteSliceToString(p.Proc.P_comm[:]) != want {
			continue
		}
		pid := int(p.Proc.P_pid)
		return Process{PID: pid, Path: bundlePath(executablePath(pid))}, true
	}
	return Process{}, false
}

// executablePath reads the exec path from kern.procargs2, which starts with
// a 32-bit argc followed by the NUL-terminated executable path.
func executablePath(pid int) string {
	buf, err := unix.SysctlRaw("kern.procargs2", pid)
	if err != nil || len(buf) <= 4 {
		return ""
	}
	rest := buf[4:]
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		return string(rest[:i])
	}
	return ""
}

// bundlePath trims ".../Clop.app/Contents/MacOS/Clop" to ".../Clop.app".
func bundlePath(exe string) string {
	if i := strings.Index(exe, ".app/"); i >= 0 {
		return exe[:i+len(".app")]
	}
	return exe
}
