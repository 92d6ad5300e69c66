package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/provide-io/launchguard/internal/config"
	"github.com/provide-io/launchguard/pkg/bus"
	"github.com/provide-io/launchguard/pkg/logging"
	"github.com/provide-io/launchguard/pkg/verify"
	"github.com/spf13/cobra"
)

const (
	programName = "launchguard"
	version     = "0.1.0"
)

func getBuildTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// app is one CLI invocation.
type app struct {
	flags       config.Flags
	versionFlag bool

	cfg      config.Config
	sink     *logging.Sink
	reporter *logging.Reporter

	stdout io.Writer
	stderr io.Writer
	exit   func(status int)

	// dial replaces the configured bus when set.
	dial bus.Dialer
	// stdinIsTerminal replaces the terminal check of the "guess" output.
	stdinIsTerminal func() bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, exit: os.Exit}
}

func main() {
	// Set up panic recovery to return specific exit code
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			debug.PrintStack()
			os.Exit(ExitPanic)
		}
	}()

	os.Exit(newApp(os.Stdout, os.Stderr).execute(os.Args[1:]))
}

func (a *app) execute(args []string) int {
	// Handle --version or -V before cobra parses other flags
	if len(args) > 0 && (args[0] == "--version" || args[0] == "-V") {
		a.printVersion()
		return ExitSuccess
	}

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.Execute()
	if a.sink != nil {
		_ = a.sink.Close()
	}
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if !errors.As(err, &ee) || !ee.reported {
		fmt.Fprintf(a.stderr, "%s: %v\n", programName, err)
	}
	return exitCode(err)
}

func (a *app) printVersion() {
	fmt.Fprintf(a.stdout, "%s %s\n", programName, version)
	fmt.Fprintf(a.stdout, "Built: %s\n", getBuildTimestamp())
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   programName,
		Short: "Check application launches against the permission authority",
		Long: `Check application launches against the permission authority.

A launch is allowed when the requested command line matches the
application's Exec line template and every permission the application
declares has been granted.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.versionFlag {
				a.printVersion()
				return nil
			}
			return cmd.Help()
		},
	}

	a.flags.Register(root.PersistentFlags())
	root.PersistentFlags().BoolVarP(&a.versionFlag, "version", "V", false, "Show version information")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: ExitInvalidArgs, err: err}
	})

	root.AddCommand(
		a.verifyCommand(),
		a.sandboxedCommand(),
		a.infoCommand(),
		a.matchCommand(),
		a.appsCommand(),
	)
	return root
}

// setup loads the configuration and opens the log sink.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags)
	if err != nil {
		a.terminate(ExitInvalidArgs, "invalid configuration: "+err.Error())
		return &exitError{code: ExitInvalidArgs, err: err, reported: true}
	}
	a.cfg = cfg

	a.sink = cfg.Sink(programName)
	a.sink.Console = a.stderr
	if a.stdinIsTerminal != nil {
		a.sink.StdinIsTerminal = a.stdinIsTerminal
	}
	a.reporter = logging.NewReporter(a.sink)
	a.reporter.Exit = a.exit

	if err := a.sink.Open(); err != nil {
		a.reporter.Log(logging.LevelWarning, err.Error())
	}
	a.reporter.Log(logging.LevelDebug, "log output: "+a.sink.Resolved().String())
	return nil
}

// terminate reports a startup failure on the console and exits.
func (a *app) terminate(status int, msg string) {
	sink := logging.NewSink(programName, "error", logging.OutputConsole)
	sink.Console = a.stderr
	reporter := logging.NewReporter(sink)
	reporter.Exit = a.exit
	reporter.Terminate(status, msg)
}

func (a *app) verifier() *verify.Verifier {
	dial := a.dial
	if dial == nil {
		dial = a.cfg.Dialer()
	}
	return verify.New(dial, a.reporter.Logger(), verify.Options{NoPrompt: !a.cfg.Prompt})
}
