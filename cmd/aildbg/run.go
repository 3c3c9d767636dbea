package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunholo/ailang-debugger/internal/trace"
	"github.com/sunholo/ailang-debugger/internal/wire"
)

func newRunCmd(sandbox bool) *cobra.Command {
	use := "run <file>"
	short := "Step a source file under the unrestricted scope"
	if sandbox {
		use = "sandbox <file>"
		short = "Step a source file under the import-restricted sandbox scope"
	}

	var configPath string
	var steps int
	var format string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t wire.Trace
			switch {
			case configPath != "":
				loaded, err := wire.LoadTraceFile(configPath)
				if err != nil {
					return err
				}
				t = *loaded
			case len(args) == 1:
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("reading %s: %w", args[0], err)
				}
				t = wire.Trace{Source: string(data), Steps: int32(steps)}
			default:
				return fmt.Errorf("either a file argument or --config is required")
			}
			if t.Steps == 0 {
				t.Steps = int32(steps)
			}

			result, errMsg := drive(t, sandbox)
			if errMsg != "" {
				fmt.Fprintf(os.Stderr, "%s: %s\n", red("Error"), errMsg)
				os.Exit(1)
			}
			return printResult(result, format)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "load a wire.Trace request from a YAML or JSON file")
	cmd.Flags().IntVar(&steps, "steps", 10000, "maximum STEP actions to issue before stopping")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or yaml")
	return cmd
}

// drive plays a non-interactive STEP-only session against RunTrace,
// collecting every Snapshot the engine attaches to a DATA result, until
// natural termination, an explicit ERROR, or the step budget is spent.
func drive(t wire.Trace, sandbox bool) (*wire.Result, string) {
	// One slot of buffer: after the pause at an uncaught exception the
	// engine reports ERROR without reading another action, so the STEP
	// sent next must not block.
	actions := make(chan trace.Action, 1)
	results := make(chan trace.Result)

	go trace.RunTrace("<module>", t.Source, sandbox, actions, results)

	var out wire.Result
	actions <- trace.Action{Name: trace.ActionStart}
	r, ok := <-results
	if !ok {
		return &out, "engine closed results before STARTED"
	}
	if r.Name == trace.ResultError {
		return &out, errorMessage(r)
	}

	for i := int32(0); i < t.Steps; i++ {
		actions <- trace.Action{Name: trace.ActionStep}
		r, ok := <-results
		if !ok {
			return &out, ""
		}
		switch r.Name {
		case trace.ResultError:
			return &out, errorMessage(r)
		case trace.ResultData:
			payload, _ := r.Value.(*trace.DataPayload)
			if payload != nil && payload.Snapshot != nil {
				out.Steps = append(out.Steps, *payload.Snapshot)
			}
			if payload == nil || !payload.Finish {
				// Natural termination: the hook already returned after
				// answering this STEP, so no further action will ever be
				// read. Just drain the engine's closed results channel.
				<-results
				return &out, ""
			}
		}
	}
	actions <- trace.Action{Name: trace.ActionQuit}
	<-results
	return &out, ""
}

func errorMessage(r trace.Result) string {
	if payload, ok := r.Value.(*trace.ErrorPayload); ok {
		return payload.Message
	}
	return "unknown error"
}

func printResult(result *wire.Result, format string) error {
	switch format {
	case "json":
		data, err := wire.WriteResultJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := wire.WriteResultYAML(result)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		for i, step := range result.Steps {
			fmt.Printf("%s %d: %s\n", cyan("step"), i+1, yellow(step.EventType))
			for _, frame := range step.Stack {
				fmt.Printf("  %s line %d\n", bold(frame.Name), frame.Line+1)
				for _, v := range frame.Variables {
					fmt.Printf("    %s = %v\n", v.Name, describeValue(v.Value, step.Heap))
				}
			}
		}
		fmt.Println(green("done"))
	}
	return nil
}

func describeValue(v trace.Value, heap map[string]*trace.HeapObject) string {
	if !v.IsRef {
		return fmt.Sprintf("%v", v.Scalar)
	}
	obj, ok := heap[v.Ref]
	if !ok {
		return fmt.Sprintf("<ref %s>", v.Ref)
	}
	return fmt.Sprintf("%s(%s)#%s", obj.HeapType, obj.LanguageType, v.Ref)
}
