package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lydakis/clop"
	"github.com/lydakis/clop/internal/stubpeer"
)

type cliTestEnv struct {
	channelDir string
	configPath string
}

// shortTempDir keeps socket paths under the sun_path limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "clop")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func setupCLITestEnv(t *testing.T) cliTestEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("CLOP_LOG_LEVEL", "")

	env := cliTestEnv{
		channelDir: shortTempDir(t),
		configPath: filepath.Join(home, "clop.toml"),
	}
	raw := fmt.Sprintf(`channel_dir = %q

[peer]
process_name = "clop-test-absent-peer"
install_paths = []
search_command = ["false"]
search_timeout = "200ms"
launch_settle = "20ms"

[timeouts]
reply = "2s"
ready = "300ms"

[log]
level = "error"
`, env.channelDir)
	if err := os.WriteFile(env.configPath, []byte(raw), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, stdin string) (int, string, string) {
	t.Helper()
	oldOut, oldErr, oldIn := rootStdout, rootStderr, rootStdin
	t.Cleanup(func() {
		rootStdout, rootStderr, rootStdin = oldOut, oldErr, oldIn
	})

	var out, errOut bytes.Buffer
	rootStdout = &out
	rootStderr = &errOut
	rootStdin = strings.NewReader(stdin)

	code := Run(args)
	return code, out.String(), errOut.String()
}

func startStub(t *testing.T, dir string, opts stubpeer.Options) *stubpeer.Peer {
	t.Helper()
	p, err := stubpeer.Start(dir, opts)
	if err != nil {
		t.Fatalf("stubpeer.Start() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func waitReceived(t *testing.T, p *stubpeer.Peer) {
	t.Helper()
	select {
	case <-p.Received():
	case <-time.After(5 * time.Second):
		t.Fatal("stub peer received nothing")
	}
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, size), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestVersionFlag(t *testing.T) {
	old := buildVersion
	t.Cleanup(func() { buildVersion = old })
	buildVersion = "1.2.3"

	code, out, errOut := runCLI(t, []string{"--version"}, "")
	if code != ExitOK {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitOK, errOut)
	}
	if out != "clop 1.2.3\n" {
		t.Fatalf("output = %q, want %q", out, "clop 1.2.3\n")
	}
}

func TestResolveBuildVersionKeepsExplicitValue(t *testing.T) {
	if got := resolveBuildVersion("v0.3.0"); got != "v0.3.0" {
		t.Fatalf("resolveBuildVersion() = %q, want v0.3.0", got)
	}
}

func TestUsageErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, args := range [][]string{
		{"frobnicate"},
		{"--config", env.configPath, "optimise", "--bogus", "a.png"},
		{"--config", env.configPath, "optimise"},
		{"--config", env.configPath, "optimise", "--crop", "wide", "a.png"},
		{"--config", env.configPath, "optimise", "--downscale", "2", "a.png"},
		{"--config", env.configPath, "stop"},
		{"--config", env.configPath, "wait", "extra"},
	} {
		code, _, errOut := runCLI(t, args, "")
		if code != ExitUsageErr {
			t.Errorf("Run(%q) = %d, want %d (stderr %q)", args, code, ExitUsageErr, errOut)
		}
	}
}

func TestInvalidConfigIsUsageError(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte(`channel_dir = "relative"`), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	code, _, errOut := runCLI(t, []string{"--config", env.configPath, "locate"}, "")
	if code != ExitUsageErr {
		t.Fatalf("code = %d, want %d", code, ExitUsageErr)
	}
	if !strings.Contains(errOut, "invalid config") {
		t.Fatalf("stderr = %q, want invalid config", errOut)
	}
}

func TestOptimisePrintsResultsInInputOrder(t *testing.T) {
	env := setupCLITestEnv(t)
	startStub(t, env.channelDir, stubpeer.Options{Reverse: true})

	files := t.TempDir()
	a := writeFile(t, files, "a.png", 2048)
	b := writeFile(t, files, "b.png", 10)

	code, out, errOut := runCLI(t, []string{"--config", env.configPath, "optimise", "--json", a, b}, "")
	if code != ExitOK {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitOK, errOut)
	}

	var got []clop.OptimisationResponse
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output %q: %v", out, err)
	}
	paths := make([]string, len(got))
	for i, r := range got {
		paths[i] = r.Path
	}
	if diff := cmp.Diff([]string{a, b}, paths); diff != "" {
		t.Fatalf("result order mismatch (-want +got):\n%s", diff)
	}
}

func TestOptimiseTableAndStdinInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	p := startStub(t, env.channelDir, stubpeer.Options{})

	files := t.TempDir()
	a := writeFile(t, files, "a.png", 4096)
	b := writeFile(t, files, "b.png", 1)

	code, out, errOut := runCLI(t, []string{"--config", env.configPath, "optimise", "--aggressive", "--crop", "1280x"}, a+"\n\n"+b+"\n")
	if code != ExitOK {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitOK, errOut)
	}
	for _, want := range []string{"Input", "Saved", "a.png", "b.png", "4.1 kB"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	reqs := p.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if len(req.URLs) != 2 || !req.AggressiveOptimisation {
		t.Fatalf("request = %+v", req)
	}
	if req.Size == nil || req.Size.Width != 1280 || req.Size.Height != 0 {
		t.Fatalf("size = %+v, want 1280xAuto", req.Size)
	}
}

func TestOptimiseBackground(t *testing.T) {
	env := setupCLITestEnv(t)
	p := startStub(t, env.channelDir, stubpeer.Options{})

	a := writeFile(t, t.TempDir(), "a.png", 16)
	code, out, errOut := runCLI(t, []string{"--config", env.configPath, "optimise", "-b", a}, "")
	if code != ExitOK {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitOK, errOut)
	}
	if !strings.Contains(out, "Queued 1 file(s)") {
		t.Fatalf("output = %q", out)
	}
	waitReceived(t, p)
}

func TestOptimiseWithoutPeerFails(t *testing.T) {
	env := setupCLITestEnv(t)

	code, _, errOut := runCLI(t, []string{"--config", env.configPath, "optimise", "--wait", "0", "/tmp/a.png"}, "")
	if code != ExitFailed {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitFailed, errOut)
	}

	code, _, errOut = runCLI(t, []string{"--config", env.configPath, "optimise", "/tmp/a.png"}, "")
	if code != ExitFailed {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitFailed, errOut)
	}
	if !strings.Contains(errOut, "did not become ready") {
		t.Fatalf("stderr = %q, want not ready", errOut)
	}
}

func TestStopSendsPaths(t *testing.T) {
	env := setupCLITestEnv(t)
	p := startStub(t, env.channelDir, stubpeer.Options{})

	code, out, errOut := runCLI(t, []string{"--config", env.configPath, "stop", "--remove", "/tmp/a.png", "file:///tmp/b.png"}, "")
	if code != ExitOK {
		t.Fatalf("code = %d, want %d (stderr %q)", code, ExitOK, errOut)
	}
	if !strings.Contains(out, "Stop requested for 2 file(s)") {
		t.Fatalf("output = %q", out)
	}

	waitReceived(t, p)
	want := []clop.StopOptimisationRequest{{IDs: []string{"file:///tmp/a.png", "file:///tmp/b.png"}, Remove: true}}
	if diff := cmp.Diff(want, p.Stops()); diff != "" {
		t.Fatalf("stops mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitAndLocate(t *testing.T) {
	env := setupCLITestEnv(t)

	code, _, _ := runCLI(t, []string{"--config", env.configPath, "wait", "--timeout", "50ms"}, "")
	if code != ExitFailed {
		t.Fatalf("wait without peer: code = %d, want %d", code, ExitFailed)
	}
	code, _, errOut := runCLI(t, []string{"--config", env.configPath, "locate"}, "")
	if code != ExitFailed || !strings.Contains(errOut, clop.ErrPeerNotFound.Error()) {
		t.Fatalf("locate without install: code = %d, stderr %q", code, errOut)
	}

	startStub(t, env.channelDir, stubpeer.Options{})
	code, out, errOut := runCLI(t, []string{"--config", env.configPath, "wait"}, "")
	if code != ExitOK {
		t.Fatalf("wait with peer: code = %d (stderr %q)", code, errOut)
	}
	if !strings.Contains(out, "Ready (com.lowtechguys.Clop)") {
		t.Fatalf("output = %q", out)
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	code, out, errOut := runCLI(t, []string{"--config", env.configPath, "config", "validate"}, "")
	if code != ExitOK || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("config validate: code = %d, out %q, stderr %q", code, out, errOut)
	}

	code, out, _ = runCLI(t, []string{"config", "path"}, "")
	if code != ExitOK || strings.TrimSpace(out) != filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "clop", "config.toml") {
		t.Fatalf("config path: code = %d, out %q", code, out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	code, out, errOut = runCLI(t, []string{"config", "init", "--path", target}, "")
	if code != ExitOK || !strings.Contains(out, "Wrote configuration") {
		t.Fatalf("config init: code = %d, out %q, stderr %q", code, out, errOut)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if code, _, _ := runCLI(t, []string{"config", "init", "--path", target}, ""); code != ExitUsageErr {
		t.Fatalf("second config init: code = %d, want %d", code, ExitUsageErr)
	}
	if code, _, errOut := runCLI(t, []string{"--config", target, "config", "validate"}, ""); code != ExitOK {
		t.Fatalf("validating written defaults: code = %d, stderr %q", code, errOut)
	}
}

func TestParseCrop(t *testing.T) {
	tests := []struct {
		in       string
		longEdge bool
		want     clop.CropSize
		wantErr  bool
	}{
		{in: "1280x720", want: clop.CropSize{Width: 1280, Height: 720, Name: "1280×720"}},
		{in: "1280×", want: clop.CropSize{Width: 1280, Name: "1280×Auto"}},
		{in: "autox720", want: clop.CropSize{Height: 720, Name: "Auto×720"}},
		{in: "1080", longEdge: true, want: clop.CropSize{Width: 1080, Height: 1080, Name: "1080", LongEdge: true}},
		{in: "x", wantErr: true},
		{in: "1080", wantErr: true},
		{in: "-5x10", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCrop(tt.in, tt.longEdge)
		if tt.wantErr {
			var usage usageError
			if !errors.As(err, &usage) {
				t.Errorf("parseCrop(%q) error = %v, want usage error", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCrop(%q) error = %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parseCrop(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{usagef("bad"), ExitUsageErr},
		{fmt.Errorf("wrapped: %w", clop.ErrRequestFailed), ExitFailed},
		{clop.ErrReplyTimeout, ExitFailed},
		{errNotReady, ExitFailed},
		{errors.New("disk on fire"), ExitInternal},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
