package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/sunholo/ailang-debugger/internal/trace"
)

func newReplCmd() *cobra.Command {
	var sandbox bool

	cmd := &cobra.Command{
		Use:   "repl <file>",
		Short: "Interactively step a source file, typing STEP/EVAL/QUIT commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return runRepl(string(data), sandbox)
		},
	}

	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "run under the import-restricted sandbox scope")
	return cmd
}

// runRepl is a human-driven controller: it types STEP/EVAL/QUIT actions
// read from a liner-backed prompt and prints each Result, grounded on
// the teacher's internal/repl.REPL.Start history-backed prompt loop.
func runRepl(source string, sandbox bool) error {
	actions := make(chan trace.Action, 1) // see drive in run.go
	results := make(chan trace.Result)
	go trace.RunTrace("<module>", source, sandbox, actions, results)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCompleter(func(in string) (c []string) {
		for _, cmd := range []string{"step", "eval ", "quit"} {
			if strings.HasPrefix(cmd, in) {
				c = append(c, cmd)
			}
		}
		return
	})

	historyFile := filepath.Join(os.TempDir(), ".aildbg_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("%s %s\n", bold("aildbg repl"), Version)
	fmt.Println("commands: step, eval <expr>, quit")

	actions <- trace.Action{Name: trace.ActionStart}
	if !awaitResult(results) {
		return nil
	}

	for {
		input, err := line.Prompt("aildbg> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == "quit" || input == "q":
			actions <- trace.Action{Name: trace.ActionQuit}
			awaitResult(results)
			return nil
		case input == "step" || input == "s":
			actions <- trace.Action{Name: trace.ActionStep}
			if !awaitResult(results) {
				return nil
			}
		case strings.HasPrefix(input, "eval "):
			expr := strings.TrimPrefix(input, "eval ")
			actions <- trace.Action{Name: trace.ActionEval, Value: &trace.EvalPayload{Expression: expr, Inspect: true}}
			if !awaitResult(results) {
				return nil
			}
		default:
			fmt.Println(red("unknown command"), input)
		}
	}
	return nil
}

// awaitResult prints one Result and reports whether the engine is still
// alive (false once results is closed).
func awaitResult(results <-chan trace.Result) bool {
	r, ok := <-results
	if !ok {
		fmt.Println(green("engine exited"))
		return false
	}
	switch r.Name {
	case trace.ResultStarted:
		fmt.Println(green("started"))
	case trace.ResultError:
		if p, ok := r.Value.(*trace.ErrorPayload); ok {
			fmt.Println(red("error:"), p.Message)
		}
		return false
	case trace.ResultData:
		p, _ := r.Value.(*trace.DataPayload)
		if p != nil && p.Snapshot != nil {
			printSnapshot(*p.Snapshot)
		}
		if p == nil || !p.Finish {
			fmt.Println(green("finished"))
			return false
		}
	case trace.ResultProduct:
		p, _ := r.Value.(*trace.ProductPayload)
		if p != nil {
			fmt.Printf("%s %v\n", yellow("=>"), p.Product)
		}
	}
	return true
}

func printSnapshot(s trace.Snapshot) {
	fmt.Printf("%s %s\n", cyan("pause"), s.EventType)
	for _, frame := range s.Stack {
		fmt.Printf("  %s line %d\n", bold(frame.Name), frame.Line+1)
		for _, v := range frame.Variables {
			fmt.Printf("    %s = %v\n", v.Name, describeValue(v.Value, s.Heap))
		}
	}
}
