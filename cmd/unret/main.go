// Unret reads modules in the textual IR, eliminates their early exits,
// and prints the rewritten module.
//
// Usage:
//
//	unret [flags] [file ...]
//
// With no files, the module is read from standard input.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/eaburns/peggy/peg"
	"github.com/eaburns/pretty"
	"github.com/eaburns/unret/interp"
	"github.com/eaburns/unret/ir"
	"github.com/eaburns/unret/unret"
	"github.com/pkg/errors"
)

var (
	modPath    = flag.String("path", "main", "the current module's path")
	configFile = flag.String("config", "", "YAML file of pass options")
	share      = flag.Bool("share", false, "bind continuations shared by several branches to join points")
	prefix     = flag.String("prefix", "", "prefix of generated join point names")
	check      = flag.Bool("check", false, "check that the input and output are well formed")
	dump       = flag.Bool("pretty", false, "dump the rewritten module's tree instead of printing it")
	run        = flag.String("run", "", "call the named zero-argument function of the rewritten module")
	verbose    = flag.Bool("v", false, "enable verbose output")
	output     = flag.String("o", "", "output file; standard output if empty")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		die("", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "share":
			cfg.ShareJoins = *share
		case "prefix":
			cfg.NamePrefix = *prefix
		}
	})
	vprintf("config: %+v\n", cfg)

	m := parse(flag.Args())
	if *check {
		checkMod("input", m)
	}
	vprintf("rewriting %s\n", m.Path)
	out, errs := unret.Run(m, cfg.pass())
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(flag.CommandLine.Output(), err)
		}
		os.Exit(1)
	}
	if out == m {
		vprintf("%s: no early exits to rewrite\n", m.Path)
	}
	if *check {
		checkMod("output", out)
	}
	if *run != "" {
		vprintf("running %s\n", *run)
		v, err := interp.Run(out, *run)
		if err != nil {
			die("failed to run "+*run, err)
		}
		fmt.Println(interp.Format(v))
		return
	}
	write(out)
}

func parse(files []string) *ir.Mod {
	p := ir.NewParser(*modPath)
	if len(files) == 0 {
		vprintf("reading standard input\n")
		if err := p.Parse("", os.Stdin); err != nil {
			die("", err)
		}
		return p.Mod()
	}
	for _, file := range files {
		vprintf("reading %s\n", file)
		if err := p.ParseFile(file); err != nil {
			die("", err)
		}
	}
	return p.Mod()
}

func checkMod(what string, m *ir.Mod) {
	errs := ir.Check(m)
	if len(errs) == 0 {
		return
	}
	for _, err := range errs {
		fmt.Fprintln(flag.CommandLine.Output(), err)
	}
	die("", errors.Errorf("%s module is ill-formed", what))
}

func write(m *ir.Mod) {
	var w io.Writer = os.Stdout
	var f *os.File
	if *output != "" {
		var err error
		if f, err = os.Create(*output); err != nil {
			die("failed to create output file", err)
		}
		vprintf("writing %s\n", *output)
		w = f
	}
	bw := bufio.NewWriter(w)
	if *dump {
		pretty.Indent = "    "
		bw.WriteString(pretty.String(m.Groups))
	} else {
		bw.WriteString(m.String())
	}
	bw.WriteString("\n")
	if err := bw.Flush(); err != nil {
		die("failed to flush output", err)
	}
	if f != nil {
		if err := f.Close(); err != nil {
			die("failed to close output file", err)
		}
	}
}

func vprintf(f string, vs ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, f, vs...)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
	fmt.Fprintf(out, "%s [flags] [file ...]\n", os.Args[0])
	flag.PrintDefaults()
}

func die(s string, err error) {
	out := flag.CommandLine.Output()
	if pe, ok := errors.Cause(err).(interface{ Tree() *peg.Fail }); ok && *verbose {
		peg.PrettyWrite(out, pe.Tree())
		fmt.Fprintln(out, "")
	}
	if s == "" {
		fmt.Fprintln(out, err)
	} else {
		fmt.Fprintf(out, "%s: %s\n", s, err)
	}
	os.Exit(1)
}
