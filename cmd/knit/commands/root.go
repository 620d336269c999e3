// Package commands implements the CLI for the knit build tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/knit/internal/app"
	"go.trai.ch/knit/internal/build"
	"go.trai.ch/zerr"
)

// ErrUsage marks command-line errors that exit with status 2.
var ErrUsage = zerr.New("usage error")

// CLI represents the command line interface for knit.
type CLI struct {
	app      *app.App
	rootCmd  *cobra.Command
	toolArgs []string
}

// New creates a CLI over the app components.
func New(components *app.Components) *CLI {
	c := &CLI{app: components.App}

	rootCmd := &cobra.Command{
		Use:           "knit [options] [targets...]",
		Short:         "A small, fast build executor driven by a declarative manifest",
		Long:          "If targets are unspecified, knit builds the manifest's defaults.\nA target of the form 'path^' builds the first output that uses path.",
		Version:       build.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.run,
	}

	flags := rootCmd.Flags()
	flags.StringP("chdir", "C", "", "change to DIR before doing anything else")
	flags.StringP("file", "f", "build.ninja", "specify input build file")
	flags.IntP("jobs", "j", app.GuessParallelism(), "run N jobs in parallel")
	flags.IntP("keepgoing", "k", 1, "keep going until N jobs fail (0 means no limit)")
	flags.BoolP("dry-run", "n", false, "dry run (don't run commands but pretend they succeeded)")
	flags.BoolP("verbose", "v", false, "show all command lines while building")
	flags.StringP("debug", "d", "", "enable a debug mode (use '-d list' to list modes)")
	flags.StringP("tool", "t", "", "run a subtool (use '-t list' to list subtools)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return zerr.Wrap(ErrUsage, err.Error())
	})

	c.rootCmd = rootCmd
	return c
}

// Execute parses args and runs the invocation. Arguments after '-t TOOL'
// bypass top-level flag parsing and go to the tool unchanged.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	engineArgs, toolArgs := SplitToolArgs(args)
	c.toolArgs = toolArgs
	c.rootCmd.SetArgs(engineArgs)
	return c.rootCmd.ExecuteContext(ctx)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

// SplitToolArgs cuts the argument vector at the first -t/--tool occurrence:
// everything after the tool name belongs to the tool.
func SplitToolArgs(args []string) (engineArgs, toolArgs []string) {
	for i, arg := range args {
		var rest []string
		switch {
		case arg == "-t" || arg == "--tool":
			if i+1 < len(args) {
				rest = args[i+2:]
				engineArgs = append(append(engineArgs, args[:i+1]...), args[i+1])
			} else {
				engineArgs = args
			}
		case strings.HasPrefix(arg, "-t=") || strings.HasPrefix(arg, "--tool="):
			rest = args[i+1:]
			engineArgs = append(engineArgs, args[:i+1]...)
		case strings.HasPrefix(arg, "-t") && !strings.HasPrefix(arg, "--"):
			rest = args[i+1:]
			engineArgs = append(engineArgs, args[:i+1]...)
		default:
			continue
		}
		return engineArgs, rest
	}
	return args, nil
}

func (c *CLI) run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	if dir, _ := flags.GetString("chdir"); dir != "" {
		// The funny quoting matches make's "Entering directory" convention so
		// editors can track the working directory of subsequent messages.
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "knit: Entering directory `%s'\n", dir)
		if err := os.Chdir(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "chdir failed"), "dir", dir)
		}
	}

	stats := false
	switch debug, _ := flags.GetString("debug"); debug {
	case "":
	case "list":
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "debugging modes:")
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  stats  print operation counts/timing info")
		return nil
	case "stats":
		stats = true
	default:
		return zerr.New(fmt.Sprintf("unknown debug setting %q", debug))
	}

	opts, err := c.buildOptions(cmd, args, stats)
	if err != nil {
		return err
	}

	if tool, _ := flags.GetString("tool"); tool != "" {
		return c.app.RunTool(tool, c.toolArgs, opts)
	}
	return c.app.Run(cmd.Context(), opts)
}

// buildOptions resolves flags against the optional .knit.yaml defaults.
// Flags the user typed always win.
func (c *CLI) buildOptions(cmd *cobra.Command, args []string, stats bool) (app.Options, error) {
	flags := cmd.Flags()
	defaults, err := c.app.Defaults()
	if err != nil {
		return app.Options{}, err
	}

	jobs, _ := flags.GetInt("jobs")
	if !flags.Changed("jobs") && defaults.Jobs > 0 {
		jobs = defaults.Jobs
	}
	keepGoing, _ := flags.GetInt("keepgoing")
	if !flags.Changed("keepgoing") && defaults.KeepGoing != 0 {
		keepGoing = defaults.KeepGoing
	}
	verbose, _ := flags.GetBool("verbose")
	if !flags.Changed("verbose") && defaults.Verbose {
		verbose = true
	}
	manifestPath, _ := flags.GetString("file")
	dryRun, _ := flags.GetBool("dry-run")

	return app.Options{
		ManifestPath: manifestPath,
		Jobs:         jobs,
		KeepGoing:    keepGoing,
		DryRun:       dryRun,
		Verbose:      verbose,
		Stats:        stats,
		StatusMode:   defaults.Status,
		Targets:      args,
	}, nil
}
