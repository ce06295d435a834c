// Command minicc compiles MiniC source to ARM32 assembly.
// The pipeline is lex/parse -> AST -> linear IR -> register assignment
// -> instruction selection -> assembly text.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/minic-lang/minicc/pkg/arm32"
	"github.com/minic-lang/minicc/pkg/ast"
	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/irgen"
	"github.com/minic-lang/minicc/pkg/lexer"
	"github.com/minic-lang/minicc/pkg/parser"
	"github.com/minic-lang/minicc/pkg/regalloc"
)

var version = "0.1.0"

// Command-line flags
var (
	emitAsm    bool   // -S: emit assembly text
	armBackend bool   // -A: choose the ARM32 backend
	outputPath string // -o: output file
	dumpIR     bool   // -i: dump the linear IR
	showIR     bool   // --show-ir: IR comments in the assembly
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "minicc [file]",
		Short:         "minicc is a MiniC compiler targeting ARM32",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			module, err := buildModule(filename, errOut)
			if err != nil {
				return err
			}

			if dumpIR {
				return writeOutput(irText(module), out, errOut)
			}

			if emitAsm {
				if !armBackend {
					fmt.Fprintf(errOut, "minicc: warning: no backend selected, defaulting to ARM32\n")
				}
				text, err := asmText(module)
				if err != nil {
					fmt.Fprintf(errOut, "minicc: %v\n", err)
					return err
				}
				path := outputPath
				if path == "" {
					path = asmOutputFilename(filename)
				}
				if err := writeFileLocked(text, path, errOut); err != nil {
					return err
				}
				fmt.Fprint(out, text)
				return nil
			}

			fmt.Fprintf(errOut, "minicc: compiling %s\n", filename)
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&emitAsm, "asm", "S", false, "Emit assembly text")
	rootCmd.Flags().BoolVarP(&armBackend, "arm32", "A", false, "Choose the ARM32 backend")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file")
	rootCmd.Flags().BoolVarP(&dumpIR, "dump-ir", "i", false, "Dump the linear IR")
	rootCmd.Flags().BoolVar(&showIR, "show-ir", false, "Keep IR instructions as assembly comments")

	return rootCmd
}

// buildModule runs the front end and the lowering, reporting
// diagnostics to errOut
func buildModule(filename string, errOut io.Writer) (*ir.Module, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "minicc: error reading %s: %v\n", filename, err)
		return nil, err
	}

	unit, err := parseSource(string(content))
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(errOut, "%s: %s\n", filename, line)
		}
		return nil, err
	}

	module := ir.NewModule()
	gen := irgen.New(module)
	genErr := gen.Run(unit)
	for _, d := range gen.Diagnostics() {
		fmt.Fprintf(errOut, "%s: %s\n", filename, d.String())
	}
	if genErr != nil {
		return nil, genErr
	}
	return module, nil
}

// parseSource lexes and parses, folding parse errors into one error
func parseSource(content string) (*ast.CompUnit, error) {
	l := lexer.New(content)
	p := parser.New(l)
	unit := p.ParseCompUnit()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return unit, nil
}

// irText renders the module's linear IR
func irText(m *ir.Module) string {
	var buf bytes.Buffer
	ir.NewPrinter(&buf).PrintModule(m)
	return buf.String()
}

// asmText runs the back end and renders the assembly
func asmText(m *ir.Module) (string, error) {
	regalloc.Run(m)

	var buf bytes.Buffer
	gen := arm32.NewCodeGenerator(&buf)
	gen.SetShowIR(showIR)
	if err := gen.EmitModule(m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeOutput writes text to the -o path when given, otherwise to
// stdout
func writeOutput(text string, out, errOut io.Writer) error {
	if outputPath == "" || outputPath == "-" {
		fmt.Fprint(out, text)
		return nil
	}
	return writeFileLocked(text, outputPath, errOut)
}

// writeFileLocked writes an output file under a lock so concurrent
// builds of the same output do not interleave
func writeFileLocked(text, path string, errOut io.Writer) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		fmt.Fprintf(errOut, "minicc: locking %s: %v\n", path, err)
		return err
	}
	defer func() {
		lock.Unlock()
		os.Remove(path + ".lock")
	}()

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		fmt.Fprintf(errOut, "minicc: error writing %s: %v\n", path, err)
		return err
	}
	return nil
}

// asmOutputFilename derives input.c -> input.s
func asmOutputFilename(filename string) string {
	if strings.HasSuffix(filename, ".c") {
		return strings.TrimSuffix(filename, ".c") + ".s"
	}
	return filename + ".s"
}

// resetFlags restores flag defaults between test invocations
func resetFlags() {
	emitAsm = false
	armBackend = false
	outputPath = ""
	dumpIR = false
	showIR = false
}
