package clop

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileURL(t *testing.T) {
	abs, err := filepath.Abs("photo.png")
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/a b.png", "file:///tmp/a%20b.png"},
		{"photo.png", "file://" + filepath.ToSlash(abs)},
		{"file:///tmp/a.png", "file:///tmp/a.png"},
		{"https://example.com/a.png", "https://example.com/a.png"},
	}
	for _, tt := range tests {
		got, err := fileURL(tt.in)
		if err != nil {
			t.Fatalf("fileURL(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("fileURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCorrelate(t *testing.T) {
	urls := []string{"file:///tmp/a.png", "file:///tmp/b.png"}
	a := OptimisationResponse{Path: "/tmp/a.png", ForURL: "file:///tmp/a.png"}
	b := OptimisationResponse{Path: "/tmp/b.png", ForURL: "/tmp/b.png"}

	got, err := correlate(urls, []OptimisationResponse{b, a})
	if err != nil {
		t.Fatalf("correlate() error = %v", err)
	}
	if diff := cmp.Diff([]OptimisationResponse{a, b}, got); diff != "" {
		t.Fatalf("correlate() mismatch (-want +got):\n%s", diff)
	}

	bad := map[string][]OptimisationResponse{
		"short":     {a},
		"long":      {a, b, b},
		"duplicate": {a, a},
		"foreign":   {a, {ForURL: "file:///tmp/other.png"}},
	}
	for name, responses := range bad {
		if _, err := correlate(urls, responses); !errors.Is(err, ErrRequestFailed) {
			t.Errorf("%s: correlate() error = %v, want ErrRequestFailed", name, err)
		}
	}
}

func TestOptimiseWithoutInputs(t *testing.T) {
	c := New(WithChannelDir(t.TempDir()))
	if _, err := c.Optimise(context.Background(), nil, Options{}); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("Optimise(nil) error = %v, want ErrRequestFailed", err)
	}
}

func TestStopWithoutBatchSendsNothing(t *testing.T) {
	// No listener exists, so any send would fail.
	c := New(WithChannelDir(t.TempDir()))
	if err := c.StopCurrentRequests(context.Background(), false); err != nil {
		t.Fatalf("StopCurrentRequests() error = %v, want nil with nothing in flight", err)
	}
}

func TestNewAppliesOptions(t *testing.T) {
	dir := t.TempDir()
	c := New(WithChannelDir(dir), WithNamespace("org.example.Clop"), WithSource("cli"))
	if got := c.Namespace(); got != "org.example.Clop" {
		t.Fatalf("Namespace() = %q", got)
	}
	if got := c.ChannelDir(); got != dir {
		t.Fatalf("ChannelDir() = %q, want %q", got, dir)
	}
	if c.source != "cli" {
		t.Fatalf("source = %q, want cli", c.source)
	}
	if got := c.dir.Work().Name(); got != "org.example.Clop.optimisationService" {
		t.Fatalf("work channel = %q", got)
	}
}
