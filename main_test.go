package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/quire/config"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/engine"
	"github.com/ByLCY/quire/errs"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String() + stderr.String()
}

func TestExitCode(t *testing.T) {
	_, syntaxErr := dsl.ParseString("recipe {")
	if syntaxErr == nil {
		t.Fatalf("expected a recipe syntax error")
	}
	_, readErr := os.ReadFile(filepath.Join(t.TempDir(), "missing.pdf"))
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{usageErrorf("bad"), exitUsage},
		{errs.Validation("merge", "x"), exitUsage},
		{fmt.Errorf("wrapped: %w", syntaxErr), exitUsage},
		{config.ErrInvalidConfig, exitUsage},
		{errs.Parse(errs.StageHeader, errors.New("x")), exitParse},
		{config.ErrConfigParse, exitParse},
		{fmt.Errorf("读取输入文件: %w", readErr), exitIO},
		{config.ErrConfigNotFound, exitIO},
		{errors.New("boom"), exitGeneral},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		nil,
		{"frobnicate"},
		{"text", "--bogus"},
		{"text", "-o", "x.pdf"},
		{"merge"},
		{"run"},
	}
	for _, args := range cases {
		if code, out := runCLI(t, "", args...); code != exitUsage {
			t.Errorf("quire %v exited %d, want %d\n%s", args, code, exitUsage, out)
		}
	}
	if code, _ := runCLI(t, "", "text", "--help"); code != exitOK {
		t.Errorf("--help exited %d", code)
	}
}

func TestTextSplitAndMerge(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "notes.pdf")
	debug := filepath.Join(dir, "layout.json")
	text := strings.Repeat("line\n", 70)

	if code, out := runCLI(t, text, "text", "-i", "-", "-o", pdf, "--font", "Courier", "--margin", "1in", "--debug", debug); code != exitOK {
		t.Fatalf("text exited %d\n%s", code, out)
	}
	raw, err := os.ReadFile(debug)
	if err != nil {
		t.Fatalf("debug JSON not written: %v", err)
	}
	var dump struct {
		PageCount int `json:"pageCount"`
	}
	if err := json.Unmarshal(raw, &dump); err != nil || dump.PageCount < 2 {
		t.Fatalf("debug JSON = %s (err %v)", raw, err)
	}

	pages := filepath.Join(dir, "pages")
	if code, out := runCLI(t, "", "split", "-d", pages, pdf); code != exitOK {
		t.Fatalf("split exited %d\n%s", code, out)
	}
	entries, err := os.ReadDir(pages)
	if err != nil || len(entries) != dump.PageCount {
		t.Fatalf("split wrote %d files, want %d (err %v)", len(entries), dump.PageCount, err)
	}

	merged := filepath.Join(dir, "merged.pdf")
	args := []string{"merge", "-o", merged}
	for i := dump.PageCount; i >= 1; i-- {
		args = append(args, filepath.Join(pages, engine.PageName(i)))
	}
	if code, out := runCLI(t, "", args...); code != exitOK {
		t.Fatalf("merge exited %d\n%s", code, out)
	}
	numbered := filepath.Join(dir, "numbered.pdf")
	if code, out := runCLI(t, "", "number", "-o", numbered, "--position", "bottom-right", "--start", "5", merged); code != exitOK {
		t.Fatalf("number exited %d\n%s", code, out)
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(junk, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, out := runCLI(t, "", "compress", "-o", filepath.Join(dir, "out.pdf"), junk); code != exitParse {
		t.Fatalf("compress of junk exited %d, want %d\n%s", code, exitParse, out)
	}
	if code, out := runCLI(t, "", "rotate", filepath.Join(dir, "missing.pdf")); code != exitIO {
		t.Fatalf("rotate of missing file exited %d, want %d\n%s", code, exitIO, out)
	}
	if code, out := runCLI(t, "", "text", "--config", filepath.Join(dir, "none.yaml"), "-i", junk, "-o", "x.pdf"); code != exitIO {
		t.Fatalf("missing config exited %d, want %d\n%s", code, exitIO, out)
	}
}

func TestRunRecipe(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.txt", "first document")
	write("b.txt", "second document")
	write("cfg.yaml", "numbering:\n  position: bottom-left\n")
	write("job.quire", `recipe Job v1 {
  text "a.txt"
  text "b.txt" font times
  merge
  number
  save "${client}/${recipe}.pdf"
}
`)
	code, out := runCLI(t, "", "run", "--config", filepath.Join(dir, "cfg.yaml"), "--data", `{"client":"acme"}`, filepath.Join(dir, "job.quire"))
	if code != exitOK {
		t.Fatalf("run exited %d\n%s", code, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "acme", "Job.pdf")); err != nil {
		t.Fatalf("recipe output missing: %v\n%s", err, out)
	}

	write("bad.quire", "recipe Bad v1 {\n  explode\n}\n")
	if code, out := runCLI(t, "", "run", filepath.Join(dir, "bad.quire")); code != exitUsage {
		t.Fatalf("bad recipe exited %d, want %d\n%s", code, exitUsage, out)
	}
}

func TestServeRequiresSecret(t *testing.T) {
	t.Setenv(config.EnvJWTSecret, "")
	if code, out := runCLI(t, "", "serve", "--addr", "127.0.0.1:0"); code != exitUsage {
		t.Fatalf("serve without secret exited %d, want %d\n%s", code, exitUsage, out)
	}
}
