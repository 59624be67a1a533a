// bfi CLI - runs programs for the tape machine, locally or on a bfi server
package main

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/bfi/check"
	"github.com/chazu/bfi/history"
	"github.com/chazu/bfi/manifest"
	"github.com/chazu/bfi/runner"
	"github.com/chazu/bfi/server"
	"github.com/chazu/bfi/vm"
	"github.com/chazu/bfi/wire"

	_ "github.com/tliron/commonlog/simple"
)

//go:embed hello.bf
var defaultProgram string

var log = commonlog.GetLogger("bfi.cli")

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	verbose    bool
	file       string
	configPath string
	logPath    string
	maxSteps   int64
	tapeSize   int
	stackDepth int
	checkOnly  bool
	reportPath string
	record     bool
	serve      bool
	port       int
	lsp        bool
	remote     string
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "history" {
		return handleHistoryCommand(args[1:], stdout, stderr)
	}

	var opts options
	fs := flag.NewFlagSet("bfi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.StringVar(&opts.file, "f", "", "Read the program from a file")
	fs.StringVar(&opts.configPath, "config", "", "Path to bfi.toml (default: search upward from the current directory)")
	fs.StringVar(&opts.logPath, "log", "", "Write logs to this file instead of stderr")
	fs.Int64Var(&opts.maxSteps, "max-steps", 0, "Stop after this many instructions (overrides [machine] max-steps)")
	fs.IntVar(&opts.tapeSize, "tape", 0, "Tape size in cells (overrides [machine] tape-size)")
	fs.IntVar(&opts.stackDepth, "stack", 0, "Loop stack capacity (overrides [machine] stack-depth)")
	fs.BoolVar(&opts.checkOnly, "check", false, "Analyze the program without running it")
	fs.StringVar(&opts.reportPath, "report", "", "Write a CBOR run report to this file")
	fs.BoolVar(&opts.record, "record", false, "Record the run in the history database")
	fs.BoolVar(&opts.serve, "serve", false, "Start the interpreter service (gRPC + Connect HTTP)")
	fs.IntVar(&opts.port, "port", 0, "Service port (used with -serve, overrides [server] addr)")
	fs.BoolVar(&opts.lsp, "lsp", false, "Start the language server on stdio")
	fs.StringVar(&opts.remote, "remote", "", "Run on the bfi server at this URL")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: bfi [options] [program]\n")
		fmt.Fprintf(stderr, "       bfi history [list|show|stats] ...\n\n")
		fmt.Fprintf(stderr, "Runs the program given as an argument, read with -f, or the built-in greeting.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  bfi                            # Run the built-in Hello World\n")
		fmt.Fprintf(stderr, "  bfi '+++++[>+++++++++++++<-]>.'  # Run a program\n")
		fmt.Fprintf(stderr, "  bfi -f prog.bf -max-steps 100000 # Run a file with a step budget\n")
		fmt.Fprintf(stderr, "  bfi -check -f prog.bf          # Report problems without running\n")
		fmt.Fprintf(stderr, "  bfi -serve -port 8080          # Serve Run/Check on :8080\n")
		fmt.Fprintf(stderr, "  bfi -remote http://host:4567 -f prog.bf\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	configureLogging(opts.verbose, opts.logPath)

	m, err := loadManifest(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitUsage
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-steps":
			m.Machine.MaxSteps = opts.maxSteps
		case "tape":
			m.Machine.TapeSize = opts.tapeSize
		case "stack":
			m.Machine.StackDepth = opts.stackDepth
		case "record":
			m.History.Enabled = opts.record
		}
	})

	if opts.lsp {
		if err := server.NewLSP(m.Machine.StackDepth).Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	if opts.serve {
		return serve(m, opts.port, stderr)
	}

	source, err := programSource(opts.file, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if m.Source.FoldWhitespace {
		source = check.FoldLineBreaks(source)
	}

	if opts.verbose {
		fmt.Fprintln(stdout, "Welcome to Brainf**k interpreter!")
		fmt.Fprintf(stdout, "code: \"%s\"\n", source)
	}

	if opts.checkOnly {
		return checkSource(source, m.Machine.StackDepth, stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.remote != "" {
		return runRemote(ctx, opts.remote, source, m.Machine.MaxSteps, stdout, stderr)
	}
	return runLocal(ctx, m, source, opts.reportPath, opts.verbose, stdout, stderr)
}

func configureLogging(verbose bool, path string) {
	verbosity := 0
	if verbose {
		verbosity = 2
	}
	var logPath *string
	if path != "" {
		logPath = &path
	}
	commonlog.Configure(verbosity, logPath)
}

// loadManifest reads the config at path, or the nearest bfi.toml, or falls
// back to defaults when there is none.
func loadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

// programSource picks the program from -f, the argument, or the built-in
// default, in that order. Giving both -f and an argument is an error.
func programSource(file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("give a program argument or -f, not both")
	case len(args) > 1:
		return "", fmt.Errorf("expected one program argument, got %d", len(args))
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case len(args) == 1:
		return args[0], nil
	}
	return strings.TrimRight(defaultProgram, "\r\n"), nil
}

func checkSource(source string, maxDepth int, stdout io.Writer) int {
	diags := check.Analyze(source, maxDepth)
	for _, d := range diags {
		fmt.Fprintln(stdout, d)
	}
	if !check.Valid(diags) {
		return exitFailure
	}
	return exitOK
}

// runLocal executes source in-process. Output is flushed at every newline;
// a newline follows the output of a successful run. With verbose set, the
// final machine state goes to stderr.
func runLocal(ctx context.Context, m *manifest.Manifest, source, reportPath string, verbose bool, stdout, stderr io.Writer) int {
	out := newLineSink(stdout)

	cfg := runner.Config{
		MaxSteps:      m.Machine.MaxSteps,
		CaptureOutput: reportPath != "" || m.History.Enabled,
		Machine:       m.MachineOptions(),
	}
	report, runErr := runner.Run(ctx, source, out, cfg)
	if runErr == nil {
		out.Emit('\n')
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(stderr, "[ERR]write: %v\n", err)
		return exitFailure
	}

	if verbose {
		fmt.Fprintf(stderr, "ip %d, mp %d, open loops %d, steps %d\n", report.IP, report.MP, report.Loops, report.Steps)
		fmt.Fprintf(stderr, "cells[%d:] % x\n", report.WindowStart, report.Window)
	}
	if m.History.Enabled {
		recordRun(ctx, m.HistoryPath(), source, report)
	}
	if reportPath != "" {
		if err := writeReport(reportPath, report); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	if runErr != nil {
		log.Debugf("%s at ip %d after %d steps", report.Outcome, report.IP, report.Steps)
		fmt.Fprintf(stderr, "[ERR]%s\n", report.Message)
		return exitFailure
	}
	return exitOK
}

// lineSink buffers program output and flushes it whenever a newline is
// emitted.
type lineSink struct {
	bw       *bufio.Writer
	sink     *vm.WriterSink
	flushErr error
}

func newLineSink(w io.Writer) *lineSink {
	bw := bufio.NewWriter(w)
	return &lineSink{bw: bw, sink: vm.NewWriterSink(bw)}
}

func (s *lineSink) Emit(b byte) {
	s.sink.Emit(b)
	if b == '\n' && s.flushErr == nil {
		s.flushErr = s.bw.Flush()
	}
}

// Close flushes what is left and returns the first write error.
func (s *lineSink) Close() error {
	if err := s.sink.Err(); err != nil {
		return err
	}
	if s.flushErr != nil {
		return s.flushErr
	}
	return s.bw.Flush()
}

func recordRun(ctx context.Context, path, source string, report *runner.Report) {
	store, err := history.Open(path)
	if err != nil {
		log.Warningf("opening history: %s", err)
		return
	}
	defer store.Close()
	id, err := store.Record(ctx, source, report)
	if err != nil {
		log.Warningf("recording run: %s", err)
		return
	}
	log.Infof("recorded run %s in %s", id, store.Path())
}

func writeReport(path string, report *runner.Report) error {
	data, err := wire.MarshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func runRemote(ctx context.Context, url, source string, maxSteps int64, stdout, stderr io.Writer) int {
	client := server.NewClient(http.DefaultClient, url)
	resp, err := client.Run(ctx, &server.RunRequest{Source: source, MaxSteps: maxSteps})
	if err != nil {
		fmt.Fprintf(stderr, "[ERR]%v\n", err)
		return exitFailure
	}
	stdout.Write(resp.Output)
	if !resp.Success {
		fmt.Fprintf(stderr, "[ERR]%s\n", resp.Message)
		return exitFailure
	}
	fmt.Fprintln(stdout)
	return exitOK
}

func serve(m *manifest.Manifest, port int, stderr io.Writer) int {
	var opts []server.ServerOption
	if m.History.Enabled {
		store, err := history.Open(m.HistoryPath())
		if err != nil {
			fmt.Fprintf(stderr, "Error opening history: %v\n", err)
			return exitFailure
		}
		defer store.Close()
		opts = append(opts, server.WithHistory(store))
	}

	addr := m.Server.Addr
	if port > 0 {
		addr = fmt.Sprintf(":%d", port)
	}
	srv := server.New(m, opts...)
	defer srv.Stop()
	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return exitFailure
	}
	return exitOK
}
