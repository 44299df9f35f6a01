package operations

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/store"
)

const aTTL = `@prefix ex: <http://example.org/> .
ex:alice ex:knows ex:bob ;
    ex:name "Alice" .
ex:bob ex:name "Bob" .
`

const bTTL = `@prefix ex: <http://example.org/> .
ex:carol ex:name "Carol" .
ex:carol ex:knows ex:alice .
`

func setup(t *testing.T) (*Registry, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	for name, doc := range map[string]string{"a.ttl": aTTL, "b.ttl": bTTL} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var out bytes.Buffer
	return NewRegistry(store.NewRegistry(), logging.NewPlainConsole(&out), nil), &out, dir
}

func TestConvert(t *testing.T) {
	reg, out, dir := setup(t)
	output := filepath.Join(dir, "out.nt")

	result, err := reg.Handle(context.Background(), domain.Task{
		Action: domain.ActionConvert,
		Files:  []string{filepath.Join(dir, "a.ttl"), filepath.Join(dir, "b.ttl")},
		Output: output,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result["triples"] != 5 {
		t.Errorf("triples = %v, want 5", result["triples"])
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 5 {
		t.Errorf("out.nt has %d lines, want 5", len(lines))
	}

	want := []string{
		"INFO: 📥️ Loaded triples from " + filepath.Join(dir, "a.ttl") + ", for a total of 3",
		"INFO: 📥️ Loaded triples from " + filepath.Join(dir, "b.ttl") + ", for a total of 5",
	}
	for _, line := range want {
		if !strings.Contains(out.String(), line) {
			t.Errorf("console output missing %q:\n%s", line, out.String())
		}
	}
}

func TestConvertGlobAndMissingPattern(t *testing.T) {
	reg, out, dir := setup(t)
	output := filepath.Join(dir, "merged.ttl")

	result, err := reg.Handle(context.Background(), domain.Task{
		Action: domain.ActionConvert,
		Files:  []string{filepath.Join(dir, "*.ttl"), filepath.Join(dir, "*.nothing")},
		Output: output,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result["files"] != 2 || result["format"] != "turtle" {
		t.Errorf("unexpected result %v", result)
	}
	if !strings.Contains(out.String(), "WARN: ⚠️ No file matches") {
		t.Errorf("missing warning:\n%s", out.String())
	}
}

func TestConvertBadInput(t *testing.T) {
	reg, _, dir := setup(t)
	bad := filepath.Join(dir, "bad.ttl")
	if err := os.WriteFile(bad, []byte("this is not turtle"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := reg.Handle(context.Background(), domain.Task{
		Action: domain.ActionConvert,
		Files:  []string{bad},
		Output: filepath.Join(dir, "out.ttl"),
	})
	var opErr *domain.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("Handle() error = %v, want OperationError", err)
	}
}

func TestCompressThenServeCottas(t *testing.T) {
	reg, out, dir := setup(t)
	output := filepath.Join(dir, "data.cottas")

	result, err := reg.Handle(context.Background(), domain.Task{
		Action: domain.ActionCompress,
		Files:  []string{filepath.Join(dir, "*.ttl")},
		Output: output,
		Index:  "pos",
	})
	if err != nil {
		t.Fatalf("compress error = %v", err)
	}
	if result["triples"] != 5 || result["index"] != "pos" {
		t.Errorf("unexpected result %v", result)
	}

	out.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err = reg.Handle(ctx, domain.Task{
		Action: domain.ActionServe,
		Files:  []string{output, filepath.Join(dir, "a.ttl")},
		Store:  domain.StoreConfig{Backend: domain.BackendBadger},
		Serve:  &domain.ServeConfig{Host: "127.0.0.1", Port: freePort(t)},
	})
	if err != nil {
		t.Fatalf("serve error = %v", err)
	}
	if result["backend"] != "cottas" {
		t.Errorf("backend = %v, want cottas", result["backend"])
	}
	for _, line := range []string{"INFO: 📦 Loading COTTAS file → " + output, "WARN: Ignoring other file arguments", "WARN: --store badger is ignored"} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("console output missing %q:\n%s", line, out.String())
		}
	}
	if strings.Contains(out.String(), "Loaded triples from") {
		t.Error("a COTTAS serve must not load other files")
	}
}

func TestServeRejectsMultipleCottas(t *testing.T) {
	reg, _, dir := setup(t)
	_, err := reg.Handle(context.Background(), domain.Task{
		Action: domain.ActionServe,
		Files:  []string{filepath.Join(dir, "a.cottas"), filepath.Join(dir, "b.cottas")},
		Serve:  &domain.ServeConfig{Host: "127.0.0.1", Port: freePort(t)},
	})
	if !domain.IsUsage(err) {
		t.Fatalf("Handle() error = %v, want usage error", err)
	}
	if !strings.Contains(err.Error(), "🚫") {
		t.Errorf("error = %q", err)
	}
}

func TestCompressRejectsBadIndex(t *testing.T) {
	reg, _, dir := setup(t)
	_, err := reg.Handle(context.Background(), domain.Task{
		Action: domain.ActionCompress,
		Files:  []string{filepath.Join(dir, "a.ttl")},
		Index:  "spx",
	})
	if !domain.IsUsage(err) {
		t.Errorf("Handle() error = %v, want validation error", err)
	}
}

func TestUnknownAction(t *testing.T) {
	reg, _, _ := setup(t)
	_, err := reg.Handle(context.Background(), domain.Task{Action: "migrate"})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Handle() error = %v, want NotFoundError", err)
	}
	if _, ok := reg.GetHandler(domain.ActionServe); !ok {
		t.Error("serve handler not registered")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}
