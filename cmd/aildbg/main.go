// Command aildbg drives the embedded step-debugger engine
// (internal/trace) from the command line: it plays a scripted or
// interactive sequence of Actions against a source file and prints the
// Results, the way the teacher's cmd/ailang wraps internal/eval for
// one-shot runs and internal/repl for interactive ones.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version info, set by ldflags during build (teacher's cmd/ailang convention).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aildbg",
		Short: "An embedded step-debugger engine driver",
		Long:  bold("aildbg") + " runs a source file under the step-debugger engine (internal/trace), stepping through it and printing each paused-point Snapshot.",
	}

	root.AddCommand(newRunCmd(false))
	root.AddCommand(newRunCmd(true))
	root.AddCommand(newReplCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s %s (commit %s, built %s)\n", bold("aildbg"), Version, Commit, BuildTime)
			return nil
		},
	}
}
