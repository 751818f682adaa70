package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/teris-io/cli"

	"toyc/pkg/ast"
	"toyc/pkg/emit/cemit"
	"toyc/pkg/emit/obfc"
	"toyc/pkg/emit/x86"
	"toyc/pkg/parser"
	"toyc/pkg/toyc"
)

var Description = strings.ReplaceAll(`
The toyc compiler reads one or more source files written in the toy C/Go-flavored
language and emits a textual translation of each to stdout: pretty C, an obfuscated-C
stack machine, or 32-bit x86 assembly. The --emit option is sticky: once given it stays
in effect for every remaining file on the command line.
`, "\n", " ")

var Compiler = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source files to compile, in order").AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("emit", "Output format: c, obfc, or x64 (default c)").WithType(cli.TypeString)).
	WithOption(cli.NewOption("platform", "x64 symbol convention: elf or macho (default elf)").WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) (code int) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "ERROR: missing argument, expected at least one source file")
		return 1
	}

	emit := "c"
	if v, ok := options["emit"]; ok {
		emit = v
	}
	platform := x86.ELF
	if v, ok := options["platform"]; ok && v == "macho" {
		platform = x86.MachO
	}

	// spec.md §7: scanner/parser/emitter failures panic with *toyc.FatalError;
	// this is the only place in the program that recovers from one.
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*toyc.FatalError); ok {
				fmt.Fprintln(os.Stderr, fe.Error())
			} else {
				fmt.Fprintln(os.Stderr, r)
			}
			fmt.Fprintln(os.Stderr, string(debug.Stack()))
			code = 1
		}
	}()

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: unable to open input file: %s\n", err)
			return 2
		}

		file := parser.ParseFile(path, src)
		fmt.Fprint(os.Stdout, emitText(file, emit, platform))
	}

	return 0
}

func emitText(file *ast.File, emit string, platform x86.Platform) string {
	switch emit {
	case "c":
		return cemit.EmitFile(file)
	case "obfc":
		return obfc.EmitFile(file)
	case "x64":
		return x86.EmitFile(file, platform)
	default:
		toyc.Fatalf("toycompiler", 0, 0, "unknown --emit value %q, want c, obfc, or x64", emit)
		panic("unreachable")
	}
}

func main() { os.Exit(Compiler.Run(os.Args, os.Stdout)) }
