// Command quillc is a standalone driver for the Quill compiler, useful
// for compiling or checking a script outside of a host embedding.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/quillscript/compiler/pkg/compiler/quill"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		runCompile(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quillc <compile|check> <file>")
}

func runCompile(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: quillc compile <file>")
		os.Exit(1)
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result := quill.NewCompiler(nil).Compile(string(src))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !result.OK {
		os.Exit(1)
	}
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: quillc check <file>")
		os.Exit(1)
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result := quill.NewCompiler(nil).Compile(string(src))
	if !result.OK {
		fmt.Fprintln(os.Stderr, result.Error)
		os.Exit(1)
	}
	fmt.Printf("OK, inferred return type: %s\n", result.ReturnType)
}
