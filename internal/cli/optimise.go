package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lydakis/clop"
)

type optimiseFlags struct {
	aggressive  bool
	downscale   float64
	crop        string
	longEdge    bool
	speed       float64
	hideGUI     bool
	copy        bool
	background  bool
	output      string
	removeAudio bool
	json        bool
	wait        time.Duration
}

func newOptimiseCommand(ctx *commandContext) *cobra.Command {
	var f optimiseFlags

	cmd := &cobra.Command{
		Use:     "optimise [flags] PATH...",
		Aliases: []string{"optimize"},
		Short:   "Optimise files and report the size change",
		Long: `Optimise sends the files to Clop and waits for the results, which are
printed in input order. Without arguments, paths are read one per line from
standard input when it is not a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return usagef("no files given")
			}
			opts, err := f.options()
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			wait := cfg.ReadyTimeout()
			if cmd.Flags().Changed("wait") {
				wait = f.wait
			}
			if wait > 0 && !client.WaitUntilReady(cmd.Context(), wait) {
				return fmt.Errorf("%w within %s", errNotReady, wait)
			}

			responses, err := client.Optimise(cmd.Context(), inputs, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.Background {
				fmt.Fprintf(out, "Queued %d file(s)\n", len(inputs))
				return nil
			}
			if f.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(responses)
			}
			fmt.Fprintln(out, renderResults(inputs, responses))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.aggressive, "aggressive", "a", false, "Use aggressive optimisation")
	flags.Float64Var(&f.downscale, "downscale", 0, "Downscale by this factor (0-1)")
	flags.StringVar(&f.crop, "crop", "", "Crop to WIDTHxHEIGHT; leave a side empty to keep the aspect ratio")
	flags.BoolVar(&f.longEdge, "long-edge", false, "Apply a single --crop size to the longest edge")
	flags.Float64Var(&f.speed, "speed", 0, "Change video playback speed by this factor")
	flags.BoolVar(&f.hideGUI, "hide-gui", false, "Do not show the floating result")
	flags.BoolVar(&f.copy, "copy", false, "Copy the result to the clipboard")
	flags.BoolVarP(&f.background, "background", "b", false, "Queue the files and return without waiting")
	flags.StringVarP(&f.output, "output", "o", "", "Output path or template")
	flags.BoolVar(&f.removeAudio, "remove-audio", false, "Strip audio from videos")
	flags.BoolVar(&f.json, "json", false, "Print results as JSON")
	flags.DurationVar(&f.wait, "wait", 0, "Start Clop and wait this long for it first (0 disables; defaults to timeouts.ready)")
	return cmd
}

func (f optimiseFlags) options() (clop.Options, error) {
	if f.downscale < 0 || f.downscale > 1 {
		return clop.Options{}, usagef("--downscale must be between 0 and 1")
	}
	if f.speed < 0 {
		return clop.Options{}, usagef("--speed must be positive")
	}
	opts := clop.Options{
		Aggressive:          f.aggressive,
		DownscaleFactor:     f.downscale,
		PlaybackSpeedFactor: f.speed,
		HideGUI:             f.hideGUI,
		CopyToClipboard:     f.copy,
		Background:          f.background,
		Output:              f.output,
		RemoveAudio:         f.removeAudio,
	}
	if f.crop != "" {
		crop, err := parseCrop(f.crop, f.longEdge)
		if err != nil {
			return clop.Options{}, err
		}
		opts.CropSize = &crop
	} else if f.longEdge {
		return clop.Options{}, usagef("--long-edge needs --crop")
	}
	return opts, nil
}

// parseCrop reads "1280x720", "1280x" or "x720". With longEdge a single
// number sizes the longest edge.
func parseCrop(s string, longEdge bool) (clop.CropSize, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "×", "x")
	if longEdge && !strings.Contains(s, "x") {
		n, err := parseSide(s)
		if err != nil || n == 0 {
			return clop.CropSize{}, usagef("invalid --crop %q", s)
		}
		return clop.CropSize{Width: n, Height: n, LongEdge: true, Name: s}, nil
	}

	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return clop.CropSize{}, usagef("invalid --crop %q: want WIDTHxHEIGHT", s)
	}
	width, err := parseSide(w)
	if err != nil {
		return clop.CropSize{}, usagef("invalid --crop width %q", w)
	}
	height, err := parseSide(h)
	if err != nil {
		return clop.CropSize{}, usagef("invalid --crop height %q", h)
	}
	if width == 0 && height == 0 {
		return clop.CropSize{}, usagef("invalid --crop %q: both sides are empty", s)
	}
	crop := clop.CropSize{Width: width, Height: height, LongEdge: longEdge}
	crop.Name = crop.ID()
	return crop, nil
}

func parseSide(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}

// collectInputs returns args, or the lines of stdin when there are no args
// and stdin is piped.
func collectInputs(args []string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if f, ok := stdin.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil, nil
	}

	var inputs []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			inputs = append(inputs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading paths from stdin: %w", err)
	}
	return inputs, nil
}

func renderResults(inputs []string, responses []clop.OptimisationResponse) string {
	rows := make([][]string, 0, len(responses))
	for i, r := range responses {
		rows = append(rows, []string{
			inputs[i],
			r.Path,
			humanize.Bytes(uint64(max(r.OldBytes, 0))),
			humanize.Bytes(uint64(max(r.NewBytes, 0))),
			savedPercent(r),
		})
	}
	return renderTable(
		[]string{"Input", "Output", "Before", "After", "Saved"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func savedPercent(r clop.OptimisationResponse) string {
	if r.OldBytes <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", 100*float64(r.SavedBytes())/float64(r.OldBytes))
}
