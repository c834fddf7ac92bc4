package channel

import (
	"os"
	"testing"
)

// shortTempDir returns a temp dir whose socket paths stay under the
// sun_path limit on every platform; t.TempDir can be too deep on macOS.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "clop")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func listen(t *testing.T, dir, name string, h Handler) *Listener {
	t.Helper()
	l, err := Listen(dir, name, h)
	if err != nil {
		t.Fatalf("Listen(%q) error = %v", name, err)
	}
	return l
}
