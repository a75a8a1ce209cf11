// Completion: 100% - Command line interface complete
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
)

const versionString = "bfjit 1.0.0"

// NewRootCommand builds the command.
func NewRootCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:     "bfjit [flags] <program.bf>",
		Short:   "JIT compiler for Brainfuck programs",
		Long:    "bfjit compiles a Brainfuck program to native machine code for the host CPU and runs it in-process.",
		Version: versionString,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := RunFile(args[0], opts)
			var pe *ParseError
			if errors.As(err, &pe) {
				return fmt.Errorf("%s:%d:%d: %s", args[0], pe.Line, pe.Column, pe.Message)
			}
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.Debug, "debug", false, "dump the IR, generated code and debug map")
	flags.BoolVar(&opts.NoOptimize, "no-optimize", false, "skip the optimization passes")
	flags.BoolVar(&opts.Timing, "timing", false, "report compile and execution time")
	flags.BoolVar(&opts.Unsafe, "unsafe", false, "omit tape bounds checks")
	flags.StringVar(&opts.ProfilePath, "profile", "", "sample execution and write folded stacks to this file")
	tapeFlags(flags, &opts)

	return cmd
}

// tapeFlags registers the geometry flags. Their defaults come from the
// environment so scripts can set them once.
func tapeFlags(flags *pflag.FlagSet, opts *Options) {
	flags.IntVar(&opts.MemorySize, "memory", env.Int("BFJIT_MEMORY", 65536), "tape size in cells")
	flags.IntVar(&opts.MemoryOffset, "memory-offset", env.Int("BFJIT_MEMORY_OFFSET", 4096), "initial cursor offset into the tape")
}
