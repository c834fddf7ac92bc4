package peer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Searcher runs a system-wide indexed search for an installed bundle.
type Searcher interface {
	Search(ctx context.Context, bundleName string) ([]string, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, bundleName string) ([]string, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, bundleName string) ([]string, error) {
	return f(ctx, bundleName)
}

// namePlaceholder in a search command is replaced by the bundle file name.
const namePlaceholder = "{name}"

var execCommandContextFn = exec.CommandContext

// DefaultSearchCommand returns the platform's file index query for an
// application bundle with an exact file name.
func DefaultSearchCommand() []string {
	if runtime.GOOS == "darwin" {
		return []string{
			"mdfind",
			"kMDItemContentTypeTree == 'com.apple.application-bundle' && kMDItemFSName == '" + namePlaceholder + "'",
		}
	}
	return []string{"locate", "-b", `\` + namePlaceholder}
}

// IndexSearch queries a file index by running an external command that
// prints one path per line.
type IndexSearch struct {
	Command []string
}

// Search implements Searcher. Results are filtered to exact bundle name
// matches and ordered most recently touched first.
func (s IndexSearch) Search(ctx context.Context, bundleName string) ([]string, error) {
	argv := s.Command
	if len(argv) == 0 {
		argv = DefaultSearchCommand()
	}
	args := make([]string, len(argv))
	for i, a := range argv {
		args[i] = strings.ReplaceAll(a, namePlaceholder, bundleName)
	}

	out, err := execCommandContextFn(ctx, args[0], args[1:]...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// locate exits 1 when nothing matched.
		if !errors.As(err, &exitErr) || len(bytes.TrimSpace(out)) > 0 {
			return nil, fmt.Errorf("running %s: %w", args[0], err)
		}
	}

	var found []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || filepath.Base(line) != bundleName {
			continue
		}
		found = append(found, line)
	}
	sortByRecency(found)
	return found, nil
}

// sortByRecency orders paths by modification time, newest first. Paths that
// cannot be stat'ed sort last in their original order.
func sortByRecency(found []string) {
	mtimes := make(map[string]time.Time, len(found))
	for _, p := range found {
		if info, err := os.Stat(p); err == nil {
			mtimes[p] = info.ModTime()
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return mtimes[found[i]].After(mtimes[found[j]])
	})
}

// pickInstall prefers the alternate distribution channel install, then the
// primary Applications install, then whatever the index ranked first.
func pickInstall(found []string, bundleName string) string {
	for _, suffix := range []string{
		"/Setapp/" + bundleName,
		"/Applications/" + bundleName,
	} {
		for _, p := range found {
			if strings.HasSuffix(p, suffix) {
				return p
			}
		}
	}
	if len(found) > 0 {
		return found[0]
	}
	return ""
}
