// Package cli implements the clop command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lydakis/clop"
	"github.com/lydakis/clop/internal/config"
	"github.com/lydakis/clop/internal/log"
)

// Exit codes returned by Run.
const (
	ExitOK       = 0
	ExitFailed   = 1 // the peer could not be reached or did not do the work
	ExitUsageErr = 2
	ExitInternal = 3
)

var (
	rootStdout io.Writer = os.Stdout
	rootStderr io.Writer = os.Stderr
	rootStdin  io.Reader = os.Stdin

	newClientFn = clop.New
)

var errNotReady = errors.New("peer did not become ready")

// usageError marks mistakes in how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	ctx := &commandContext{}
	defer ctx.close()

	cmd := newRootCommand(ctx)
	cmd.SetArgs(args)
	cmd.SetIn(rootStdin)
	cmd.SetOut(rootStdout)
	cmd.SetErr(rootStderr)

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return ExitOK
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(rootStderr, "clop: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsageErr
	case errors.Is(err, clop.ErrRequestFailed),
		errors.Is(err, clop.ErrChannelUnreachable),
		errors.Is(err, clop.ErrSendTimeout),
		errors.Is(err, clop.ErrReplyTimeout),
		errors.Is(err, clop.ErrPeerNotFound),
		errors.Is(err, errNotReady),
		errors.Is(err, context.Canceled):
		return ExitFailed
	default:
		return ExitInternal
	}
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clop",
		Short:         "Optimise images, videos and PDFs through the Clop app",
		Version:       buildVersion,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("clop {{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (default "+config.ExampleConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newOptimiseCommand(ctx))
	rootCmd.AddCommand(newStopCommand(ctx))
	rootCmd.AddCommand(newWaitCommand(ctx))
	rootCmd.AddCommand(newLocateCommand(ctx))
	rootCmd.AddCommand(newMCPCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newStubPeerCommand(ctx))

	return rootCmd
}

// usageArgs reports argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

type commandContext struct {
	configFlag string
	logLevel   string

	config *config.Config
	client *clop.Client
}

func (c *commandContext) configPath() string {
	if p := strings.TrimSpace(c.configFlag); p != "" {
		return p
	}
	return config.ExampleConfigPath()
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.LoadFrom(c.configPath())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, usageError{err: fmt.Errorf("invalid config: %w", err)}
	}

	level := c.logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	log.Configure(log.Config{Level: level, Output: rootStderr})

	c.config = cfg
	return cfg, nil
}

func (c *commandContext) ensureClient() (*clop.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ClientOptions()
	if err != nil {
		return nil, usageError{err: fmt.Errorf("invalid config: %w", err)}
	}
	opts = append(opts, clop.WithLogger(log.WithComponent("client")))
	c.client = newClientFn(opts...)
	return c.client, nil
}

func (c *commandContext) close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
