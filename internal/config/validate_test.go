package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/lydakis/clop/internal/peer"
)

func TestValidateAcceptsEmptyAndFullConfigs(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Fatalf("Validate(nil) error = %v", err)
	}
	if err := Validate(&Config{}); err != nil {
		t.Fatalf("Validate(empty) error = %v", err)
	}

	cfg := &Config{
		Namespace:  "com.lowtechguys.Clop",
		ChannelDir: "/run/user/501/clop",
		Peer: PeerConfig{
			InstallPaths:  []string{"/Applications/Clop.app"},
			SearchCommand: []string{"mdfind", "kMDItemFSName == '{name}'"},
			SearchTimeout: "10s",
			LaunchSettle:  "500ms",
		},
		Timeouts: TimeoutConfig{Send: "5s", Reply: "10m", Ready: "5s"},
		Log:      LogConfig{Level: "info"},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Namespace:  "com/lowtechguys",
		ChannelDir: "relative/dir",
		Peer: PeerConfig{
			InstallPaths:  []string{"/Applications/Clop.app", "Clop.app"},
			SearchCommand: []string{" "},
			SearchTimeout: "abc",
			LaunchSettle:  "0s",
		},
		Timeouts: TimeoutConfig{Reply: "-1s"},
		Log:      LogConfig{Level: "loud"},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil, want non-nil")
	}

	msg := err.Error()
	for _, want := range []string{
		"namespace: must not contain",
		"channel_dir: must be an absolute path",
		"peer.install_paths[1]: must be an absolute path",
		"peer.search_command: first element",
		"peer.search_timeout: invalid duration",
		"peer.launch_settle: must be > 0",
		"timeouts.reply: must be > 0",
		"log.level:",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate() error = %q, want %q", msg, want)
		}
	}
}

func TestCheckPrerequisites(t *testing.T) {
	var looked []string
	found := func(file string) (string, error) {
		looked = append(looked, file)
		return "/usr/bin/" + file, nil
	}
	missing := func(file string) (string, error) {
		return "", errors.New("not found")
	}

	cfg := &Config{Peer: PeerConfig{SearchCommand: []string{"mdfind", "{name}"}}}
	if err := checkPrerequisitesWithLookup(cfg, found); err != nil {
		t.Fatalf("checkPrerequisites() error = %v", err)
	}
	if len(looked) != 1 || looked[0] != "mdfind" {
		t.Fatalf("looked up %v, want [mdfind]", looked)
	}

	err := checkPrerequisitesWithLookup(cfg, missing)
	if err == nil || !strings.Contains(err.Error(), `"mdfind" not found in PATH`) {
		t.Fatalf("checkPrerequisites() error = %v, want missing mdfind", err)
	}

	looked = nil
	if err := checkPrerequisitesWithLookup(nil, found); err != nil {
		t.Fatalf("checkPrerequisites(nil) error = %v", err)
	}
	if len(looked) != 1 || looked[0] != peer.DefaultSearchCommand()[0] {
		t.Fatalf("looked up %v, want default search program", looked)
	}
}
