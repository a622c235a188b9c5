package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/raaihank/loggov/internal/governance"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRedactCommand(t *testing.T) {
	in := "mail jane@example.com\nno pii here\nssn 123-45-6789\n"
	out, err := execute(t, in, "redact")
	if err != nil {
		t.Fatalf("redact failed: %v", err)
	}

	want := "mail ***@example.com\nno pii here\nssn ***-**-****\n"
	if out != want {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestRedactCommandJSON(t *testing.T) {
	in := `{"User":"jane","Email":"jane@example.com","Amount":42}` + "\n" + `"card 4111 1111 1111 1111"` + "\n"
	out, err := execute(t, in, "redact", "--json")
	if err != nil {
		t.Fatalf("redact failed: %v", err)
	}

	want := `{"Amount":42,"Email":"***@example.com","User":"jane"}` + "\n" + `"card ****-****-****-****"` + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}
}

func TestRedactCommandJSONInvalid(t *testing.T) {
	if _, err := execute(t, "42\n", "redact", "--json"); err == nil {
		t.Error("Expected error for a numeric payload")
	}
}

func TestRedactCommandJSONKeepsNumbers(t *testing.T) {
	in := `{"id":12345678901234567891,"note":"hello"}` + "\n"
	out, err := execute(t, in, "redact", "--json")
	if err != nil {
		t.Fatalf("redact failed: %v", err)
	}

	want := `{"id":12345678901234567891,"note":"hello"}` + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRedactLinesWriteError(t *testing.T) {
	err := redactLines(strings.NewReader("hello\n"), failingWriter{}, governance.DefaultConfig(), false)
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Expected write error, got %v", err)
	}
}

func TestRedactWithDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governance.yaml")
	doc := "piiRules:\n  - name: email\n    pattern: '[a-z]+@[a-z.]+'\n    replacement: '[email]'\nactions:\n  onContainsPII: block\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "hi a@b.io\nhello\n", "redact", "--governance", path)
	if err != nil {
		t.Fatalf("redact failed: %v", err)
	}
	if out != governance.BlockedSentinel+"\nhello\n" {
		t.Errorf("Unexpected output:\n%s", out)
	}

	if _, err := execute(t, "", "redact", "--governance", filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for a missing explicit document")
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("version: '3'\npiiRules:\n  - name: token\n    pattern: 'tok_[0-9]+'\nschema:\n  requiredFields: [User]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("piiRules:\n  - name: token\n    pattern: '(['\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "check", good)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	for _, want := range []string{"Version:         3", "Required fields: User", "token", "tok_[0-9]+"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	if _, err := execute(t, "", "check", bad); err == nil {
		t.Error("Expected error for invalid document")
	}
}

func TestDefaultsCommandRoundTrips(t *testing.T) {
	out, err := execute(t, "", "defaults")
	if err != nil {
		t.Fatalf("defaults failed: %v", err)
	}

	cfg, err := governance.ParseDocument([]byte(out), "defaults")
	if err != nil {
		t.Fatalf("defaults output does not parse: %v\n%s", err, out)
	}

	want := governance.DefaultConfig().Spec()
	got := cfg.Spec()
	want.Source, got.Source = "", ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestBenchList(t *testing.T) {
	out, err := execute(t, "", "bench", "--list", "--filter", "^zap/")
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	if out != "zap/plain\nzap/encoded\n" {
		t.Errorf("Unexpected output:\n%s", out)
	}

	if _, err := execute(t, "", "bench", "--filter", "nothing"); err == nil {
		t.Error("Expected error when no logger matches")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "loggov "+version) {
		t.Errorf("Unexpected output %q", out)
	}
}
