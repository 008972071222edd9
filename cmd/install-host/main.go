// package main implements a command-line utility for registering a native
// messaging host with one or more browsers.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/p00ya/native-messaging/internal/nativemsg/install"
)

const (
	exitSuccess      = 0
	exitInvalidUsage = 1
	exitFailure      = 2
)

// usageError marks an error caused by how the command was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// errNotInstalled is returned by verify when no browser finds the host.  The
// report has already been printed.
var errNotInstalled = errors.New("host is not installed")

// run executes the command line and returns the process exit status.
func run(a *app, args []string) int {
	root := newRootCmd(a)
	if args == nil {
		// Cobra falls back to os.Args for nil.
		args = []string{}
	}
	root.SetArgs(args)
	err := root.Execute()

	var uerr usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &uerr):
		fmt.Fprintf(a.stderr, "Error: %v\nRun '%s --help' for usage.\n", err, root.Name())
		return exitInvalidUsage
	case errors.Is(err, errNotInstalled):
		return exitFailure
	default:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func main() {
	os.Exit(run(&app{stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:]))
}

// app carries the process environment into the commands, so tests can swap
// it out.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// installerOpts are appended to the options every command passes to
	// install.NewInstaller.
	installerOpts []install.Option
}
