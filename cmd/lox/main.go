// Command lox is the CLI front end for the compiler and VM: a REPL when
// run with no arguments, a script runner when given a file, and a
// disassemble subcommand for inspecting compiled bytecode.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kristofer/lox/pkg/compiler"
	"github.com/kristofer/lox/pkg/debug"
	"github.com/kristofer/lox/pkg/gc"
	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
	"github.com/kristofer/lox/pkg/vm"
)

// Exit codes follow the sysexits.h convention clox itself uses.
const (
	exitOK          = 0
	exitUsage       = 64
	exitDataErr     = 65 // compile error
	exitIOErr       = 74
	exitSoftware    = 70 // runtime error
)

var (
	flagPrintCode      bool
	flagTraceExecution bool
	flagStressGC       bool
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitUsage)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lox [script]",
		Short:         "Compile and run lox programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				runREPL()
				return nil
			}
			return runFile(args[0])
		},
	}

	root.PersistentFlags().BoolVar(&flagPrintCode, "debug-print-code", false, "disassemble compiled chunks before running them")
	root.PersistentFlags().BoolVar(&flagTraceExecution, "debug-trace-execution", false, "log every instruction the VM executes")
	root.PersistentFlags().BoolVar(&flagStressGC, "stress-gc", false, "collect garbage on every allocation")

	// Accept debug_print_code as a synonym for debug-print-code; some
	// shells make underscore-separated flags easier to tab-complete.
	root.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.AddCommand(newDisassembleCommand())
	root.AddCommand(newCompileCommand())
	return root
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !flagTraceExecution {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

func runFile(path string) error {
	log := newLogger()
	defer log.Sync()

	heap := gc.New(log)
	heap.SetStressMode(flagStressGC)
	machine := vm.New(heap, log)
	machine.SetTraceExecution(flagTraceExecution)

	var result vm.InterpretResult
	var rerr error

	if strings.HasSuffix(path, ".loxc") {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lox: %v\n", err)
			os.Exit(exitIOErr)
		}
		defer f.Close()

		fn, derr := heap.DecodeFunction(f)
		if derr != nil {
			fmt.Fprintf(os.Stderr, "lox: %v\n", derr)
			os.Exit(exitDataErr)
		}
		if flagPrintCode {
			printDisassembly(fn)
		}
		result, rerr = machine.InterpretFunction(fn)
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lox: %v\n", err)
			os.Exit(exitIOErr)
		}
		if flagPrintCode {
			fn, cerr := compiler.Compile(heap, string(src))
			if cerr != nil {
				os.Exit(exitDataErr)
			}
			printDisassembly(fn)
		}
		result, rerr = machine.Interpret(string(src))
	}

	switch result {
	case vm.InterpretCompileError:
		os.Exit(exitDataErr)
	case vm.InterpretRuntimeError:
		fmt.Fprintln(os.Stderr, rerr)
		os.Exit(exitSoftware)
	}
	return nil
}

func runREPL() {
	log := newLogger()
	defer log.Sync()

	heap := gc.New(log)
	heap.SetStressMode(flagStressGC)
	machine := vm.New(heap, log)
	machine.SetTraceExecution(flagTraceExecution)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("lox REPL — Ctrl-D to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		result, err := machine.Interpret(line)
		if result == vm.InterpretRuntimeError && err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func newDisassembleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble <script|chunk.loxc>",
		Short: "Print the bytecode for a script or a compiled .loxc chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			heap := gc.New(log)

			if strings.HasSuffix(args[0], ".loxc") {
				f, err := os.Open(args[0])
				if err != nil {
					fmt.Fprintf(os.Stderr, "lox: %v\n", err)
					os.Exit(exitIOErr)
				}
				defer f.Close()

				fn, derr := heap.DecodeFunction(f)
				if derr != nil {
					fmt.Fprintf(os.Stderr, "lox: %v\n", derr)
					os.Exit(exitDataErr)
				}
				printDisassembly(fn)
				return nil
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "lox: %v\n", err)
				os.Exit(exitIOErr)
			}

			fn, cerr := compiler.Compile(heap, string(src))
			if cerr != nil {
				os.Exit(exitDataErr)
			}
			printDisassembly(fn)
			return nil
		},
	}
}

// newCompileCommand compiles a script to a .loxc chunk without running it,
// the write side of the format newDisassembleCommand and runFile read.
func newCompileCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "compile <script>",
		Short: "Compile a script to a .loxc bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "lox: %v\n", err)
				os.Exit(exitIOErr)
			}

			log := newLogger()
			defer log.Sync()
			heap := gc.New(log)

			fn, cerr := compiler.Compile(heap, string(src))
			if cerr != nil {
				os.Exit(exitDataErr)
			}

			if outPath == "" {
				outPath = strings.TrimSuffix(args[0], ".lox") + ".loxc"
			}
			out, err := os.Create(outPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "lox: %v\n", err)
				os.Exit(exitIOErr)
			}
			defer out.Close()

			if err := gc.EncodeFunction(fn, out); err != nil {
				fmt.Fprintf(os.Stderr, "lox: %v\n", err)
				os.Exit(exitIOErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default: <script>.loxc)")
	return cmd
}

// printDisassembly dumps the top-level script's chunk and every nested
// function reachable from its constant pool, depth-first.
func printDisassembly(fn *object.Function) {
	seen := make(map[*object.Function]bool)
	var walk func(f *object.Function)
	walk = func(f *object.Function) {
		if seen[f] {
			return
		}
		seen[f] = true

		name := "<script>"
		if f.Name != nil {
			name = f.Name.Chars
		}
		fmt.Print(debug.DisassembleChunk(f.Chunk, name))

		for _, c := range f.Chunk.Constants {
			if c.IsObjType(value.ObjTypeFunction) {
				walk(object.AsFunction(c))
			}
		}
	}
	walk(fn)
}
