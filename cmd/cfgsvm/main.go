// cfgsvm runs compiled CFGS programs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/tliron/commonlog"
	"github.com/tliron/kutil/util"

	"github.com/cfgs-lang/cfgs/bytecode"
	"github.com/cfgs-lang/cfgs/config"
	"github.com/cfgs-lang/cfgs/vm"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes
const (
	exitOK        = 0
	exitException = 1
	exitFailure   = 2
)

func main() {
	util.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath   string
	verbosity    int
	verbositySet bool
	trace        bool
	disasm       bool
	output       string
	timeout      time.Duration
	program      string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cfgsvm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "Path to a cfgs.toml (default: search upward from the working directory)")
	fs.IntVar(&o.verbosity, "v", 0, "Log verbosity; 1 adds info, 2 adds debug (default from config)")
	fs.BoolVar(&o.trace, "trace", false, "Log every executed instruction (implies -v 2)")
	fs.BoolVar(&o.disasm, "disasm", false, "Print the disassembled program instead of running it")
	fs.StringVar(&o.output, "o", "", "Write the program as a binary image to this path instead of running it")
	fs.DurationVar(&o.timeout, "timeout", 0, "Cancel the run after this long (0 for no limit)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: cfgsvm [options] [program]\n\n")
		fmt.Fprintf(stderr, "Runs a CFGS program given as a YAML listing or a binary image.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  cfgsvm hello.yaml               # Run a listing\n")
		fmt.Fprintf(stderr, "  cfgsvm -o hello.cfgsi hello.yaml # Assemble to an image\n")
		fmt.Fprintf(stderr, "  cfgsvm -disasm hello.cfgsi       # Show the instructions\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			o.verbositySet = true
		}
	})
	switch fs.NArg() {
	case 0:
	case 1:
		o.program = fs.Arg(0)
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected one program, got %d", fs.NArg())
	}
	return &o, nil
}

func loadConfig(o *options) (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	c, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = config.Default()
		c.Dir = wd
	}
	return c, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	verbosity := cfg.Log.Verbosity
	if o.verbositySet {
		verbosity = o.verbosity
	}
	if o.trace {
		cfg.VM.Trace = true
		verbosity = max(verbosity, 2)
	}
	commonlog.Configure(verbosity, cfg.LogFile())
	log := commonlog.GetLogger("cfgs.cli")

	path := o.program
	if path == "" {
		path = cfg.EntryPath()
	}
	if path == "" {
		fmt.Fprintf(stderr, "Error: no program given and no program.entry in %s\n", config.FileName)
		return exitFailure
	}

	prog, err := bytecode.LoadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	log.Info("program loaded", "path", path, "instructions", len(prog.Code), "functions", len(prog.Functions))

	if o.disasm {
		fmt.Fprint(stdout, prog.Disassemble())
		return exitOK
	}
	output := o.output
	if output == "" && o.program == "" {
		output = cfg.ImagePath()
	}
	if output != "" {
		if err := writeImage(output, prog); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		log.Notice("image written", "path", output)
		return exitOK
	}

	return execute(prog, cfg, o.timeout, log, stdout, stderr)
}

func execute(prog *bytecode.Program, cfg *config.Config, timeout time.Duration, log commonlog.Logger, stdout, stderr io.Writer) int {
	out := bufio.NewWriter(stdout)
	defer out.Flush()

	opts := cfg.VMOptions()
	opts.Stdout = out
	it, err := vm.New(prog, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	util.OnExit(func() { closeInterpreter(it, log) })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	_, err = it.Run(ctx)
	if cerr := it.Close(); cerr != nil && err == nil {
		err = cerr
	}
	out.Flush()

	var exc *vm.ExceptionValue
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &exc):
		fmt.Fprintf(stderr, "Uncaught %s\n", exc.Error())
		if exc.StackTrace != "" {
			fmt.Fprintln(stderr, exc.StackTrace)
		}
		return exitException
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func writeImage(path string, prog *bytecode.Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bytecode.WriteImage(f, prog); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}

// closeInterpreter flushes and closes the files a run left open. It also runs
// from util.OnExit, where there is no caller left to return the error to.
func closeInterpreter(it *vm.Interpreter, log commonlog.Logger) {
	if err := it.Close(); err != nil {
		log.Error("closing files", "error", err.Error())
	}
}
