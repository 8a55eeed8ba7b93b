package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"

	"github.com/cfgs-lang/cfgs/bytecode"
	"github.com/cfgs-lang/cfgs/vm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const helloListing = `
file: hello.cfgs
code:
  - {op: PUSH_CONST, str: "hello"}
  - {op: PRINT}
  - {op: HALT}
`

const throwingListing = `
file: boom.cfgs
code:
  - {op: CALL, name: fail, n: 0}
  - {op: HALT}
  - {function: fail}
  - {op: PUSH_CONST, str: "boom", line: 3, col: 5}
  - {op: THROW}
`

// writeFile writes content into dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

// emptyConfig returns a config file with no settings so runs do not pick up
// a cfgs.toml from the surrounding directories.
func emptyConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "cfgs.toml", "")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRunListing(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "hello.yaml", helloListing)

	code, out, errOut := runCLI(t, "-config", emptyConfig(t, dir), prog)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr: %s", code, errOut)
	}
	if out != "hello\n" {
		t.Errorf("stdout = %q, want %q", out, "hello\n")
	}
}

func TestUncaughtExceptionExitCode(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "boom.yaml", throwingListing)

	code, _, errOut := runCLI(t, "-config", emptyConfig(t, dir), prog)
	if code != exitException {
		t.Fatalf("exit = %d, want %d", code, exitException)
	}
	if !strings.Contains(errOut, "Uncaught Error: boom at boom.cfgs:3:5") {
		t.Errorf("stderr missing exception line: %q", errOut)
	}
	if !strings.Contains(errOut, "at fail (boom.cfgs:3:5)") {
		t.Errorf("stderr missing stack trace: %q", errOut)
	}
}

func TestImageRoundTripThroughCLI(t *testing.T) {
	dir := t.TempDir()
	cfg := emptyConfig(t, dir)
	prog := writeFile(t, dir, "hello.yaml", helloListing)
	image := filepath.Join(dir, "hello.cfgsi")

	if code, _, errOut := runCLI(t, "-config", cfg, "-o", image, prog); code != exitOK {
		t.Fatalf("-o exit = %d, stderr: %s", code, errOut)
	}
	code, out, errOut := runCLI(t, "-config", cfg, image)
	if code != exitOK || out != "hello\n" {
		t.Fatalf("running image: exit = %d, stdout = %q, stderr: %s", code, out, errOut)
	}

	code, out, _ = runCLI(t, "-config", cfg, "-disasm", image)
	if code != exitOK {
		t.Fatalf("-disasm exit = %d", code)
	}
	for _, want := range []string{"PUSH_CONST", "PRINT", "HALT"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %s:\n%s", want, out)
		}
	}
}

func TestEntryFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.yaml", helloListing)
	cfg := writeFile(t, dir, "cfgs.toml", "[program]\nentry = \"hello.yaml\"\n")

	code, out, errOut := runCLI(t, "-config", cfg)
	if code != exitOK || out != "hello\n" {
		t.Errorf("exit = %d, stdout = %q, stderr: %s", code, out, errOut)
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := emptyConfig(t, dir)
	bad := writeFile(t, dir, "bad.yaml", "code:\n  - {op: FROB}\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing program", []string{"-config", cfg, filepath.Join(dir, "nope.yaml")}},
		{"bad opcode", []string{"-config", cfg, bad}},
		{"no program", []string{"-config", cfg}},
		{"missing config", []string{"-config", filepath.Join(dir, "none.toml"), bad}},
		{"two programs", []string{"-config", cfg, bad, bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			if code != exitFailure {
				t.Errorf("exit = %d, want %d", code, exitFailure)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "sleep.yaml", `
code:
  - {op: PUSH_CONST, int: 60000}
  - {op: CALL, name: sleep, n: 1}
  - {op: HALT}
`)
	code, _, errOut := runCLI(t, "-config", emptyConfig(t, dir), "-timeout", "20ms", prog)
	if code != exitFailure || !strings.Contains(errOut, "deadline exceeded") {
		t.Errorf("exit = %d, stderr = %q", code, errOut)
	}
}

func TestCloseErrorIsLogged(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full")
	}

	var logged bytes.Buffer
	backend := simple.NewBackend()
	backend.Buffered = false
	backend.Writer = &logged
	backend.SetMaxLevel(commonlog.Error)
	commonlog.SetBackend(backend)
	t.Cleanup(func() {
		b := simple.NewBackend()
		b.Configure(0, nil)
		commonlog.SetBackend(b)
	})

	// The buffered write only fails when Close flushes it.
	b := bytecode.NewBuilder("full.cfgs")
	b.EmitConst(bytecode.Str("/dev/full"))
	b.EmitConst(bytecode.Str("w"))
	b.EmitCall(bytecode.OpCall, "open", 2)
	b.EmitConst(bytecode.Str("x"))
	b.EmitCall(bytecode.OpCallMethod, "write", 1)
	b.Emit(bytecode.OpPop)
	b.Emit(bytecode.OpHalt)
	it, err := vm.New(b.MustBuild(), vm.Options{Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := it.Run(testContext(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	closeInterpreter(it, commonlog.GetLogger("cfgs.cli"))
	if !strings.Contains(logged.String(), "closing files") {
		t.Errorf("log = %q, want the close failure", logged.String())
	}
}
