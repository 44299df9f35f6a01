package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"evalgo.org/rdfendpoint/auth"
	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/logging"
)

const aTTL = `@prefix ex: <http://example.org/> .
ex:alice ex:knows ex:bob ;
    ex:name "Alice" .
ex:bob ex:name "Bob" .
`

const bTTL = `@prefix ex: <http://example.org/> .
ex:carol ex:name "Carol" .
ex:dave ex:name "Dave" .
`

// run executes the root command with args and captures its output.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, lines, errLines bytes.Buffer
	prevConsole, prevErr := console, errConsole
	console = logging.NewPlainConsole(&lines)
	errConsole = logging.NewPlainConsole(&errLines)
	t.Cleanup(func() {
		console, errConsole = prevConsole, prevErr
		viper.Reset()
		rootCmd.SetOut(nil)
		resetFlags(rootCmd)
	})

	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String() + lines.String(), errLines.String(), err
}

// resetFlags restores flag defaults, since the command tree is shared by tests.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, doc := range map[string]string{"a.ttl": aTTL, "b.ttl": bTTL} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestConvertCommand(t *testing.T) {
	dir := writeInputs(t)

	tests := []struct {
		name   string
		output string
		check  string
	}{
		{name: "N-Triples", output: "out.nt", check: "<http://example.org/alice>"},
		{name: "Turtle by default", output: "out.data", check: "@prefix"},
		{name: "JSON-LD", output: "out.jsonld", check: "http://example.org/alice"},
		{name: "RDF/XML", output: "out.rdf", check: "http://example.org/alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(dir, tt.output)
			stdout, _, err := run(t, "convert", filepath.Join(dir, "a.ttl"), filepath.Join(dir, "b.ttl"), "--output", target)
			if err != nil {
				t.Fatalf("convert error = %v", err)
			}
			if !strings.Contains(stdout, "for a total of 5") {
				t.Errorf("missing load summary:\n%s", stdout)
			}
			data, err := os.ReadFile(target)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), tt.check) {
				t.Errorf("%s does not contain %q:\n%s", tt.output, tt.check, data)
			}
		})
	}
}

func TestServeRejectsTwoCottasFiles(t *testing.T) {
	dir := t.TempDir()
	_, stderr, err := run(t, "serve", filepath.Join(dir, "a.cottas"), filepath.Join(dir, "b.cottas"), "--port", "1")
	if !domain.IsUsage(err) {
		t.Fatalf("serve error = %v, want usage error", err)
	}
	if !strings.HasPrefix(stderr, "ERROR: 🚫") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestUnknownStoreSuggestsName(t *testing.T) {
	dir := writeInputs(t)
	_, stderr, err := run(t, "convert", filepath.Join(dir, "a.ttl"), "--store", "oxigrap", "--output", filepath.Join(dir, "x.ttl"))
	if !domain.IsUsage(err) {
		t.Fatalf("convert error = %v, want usage error", err)
	}
	if !strings.Contains(stderr, `did you mean "oxigraph"`) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCompressCommand(t *testing.T) {
	dir := writeInputs(t)
	target := filepath.Join(dir, "all.cottas")
	stdout, _, err := run(t, "compress", filepath.Join(dir, "*.ttl"), "--output", target, "--index", "osp")
	if err != nil {
		t.Fatalf("compress error = %v", err)
	}
	if !strings.Contains(stdout, "Compressed 5 triples") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Error(err)
	}
}

func TestAuthCommands(t *testing.T) {
	stdout, _, err := run(t, "auth", "hash-key", "a-long-enough-update-key")
	if err != nil {
		t.Fatalf("hash-key error = %v", err)
	}
	if !auth.CheckAPIKey("a-long-enough-update-key", strings.TrimSpace(stdout)) {
		t.Error("printed hash does not match the key")
	}

	if _, _, err := run(t, "auth", "hash-key", "short"); !domain.IsUsage(err) {
		t.Errorf("short key error = %v, want validation error", err)
	}

	stdout, _, err = run(t, "auth", "token", "--secret", "test-secret", "--subject", "loader", "--hours", "1")
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	claims, err := auth.ValidateToken(strings.TrimSpace(stdout), "test-secret")
	if err != nil {
		t.Fatalf("printed token is invalid: %v", err)
	}
	if claims.Subject != "loader" {
		t.Errorf("Subject = %q", claims.Subject)
	}
}

func TestJournalCommand(t *testing.T) {
	dir := t.TempDir()
	logger, err := auth.NewAuditLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, ok := range []bool{true, false} {
		if err := logger.LogEntry(auth.AuditEntry{Subject: "loader", Action: "update", Success: ok}); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := run(t, "journal"); !domain.IsUsage(err) {
		t.Errorf("journal without dir error = %v, want usage error", err)
	}

	stdout, _, err := run(t, "journal", "--update-log", dir, "--failed")
	if err != nil {
		t.Fatalf("journal error = %v", err)
	}
	if !strings.Contains(stdout, `"count": 1`) {
		t.Errorf("stdout = %s", stdout)
	}
}

func TestConfigMasksSecrets(t *testing.T) {
	t.Setenv("RDFENDPOINT_SERVE_TOKEN_SECRET", "do-not-print")
	t.Setenv("RDFENDPOINT_SERVE_PORT", "9090")
	stdout, _, err := run(t, "config")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if strings.Contains(stdout, "do-not-print") {
		t.Error("secret was printed")
	}

	var cfg struct {
		Debug bool                   `yaml:"debug"`
		Serve map[string]interface{} `yaml:"serve"`
		Store map[string]interface{} `yaml:"store"`
	}
	if err := yaml.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, stdout)
	}
	if fmt.Sprint(cfg.Serve["port"]) != "9090" {
		t.Errorf("serve.port = %v, want 9090 from the environment", cfg.Serve["port"])
	}
	if cfg.Serve["token-secret"] != "********" {
		t.Errorf("serve.token-secret = %v, want it masked", cfg.Serve["token-secret"])
	}
	if cfg.Serve["query-timeout"] != "0s" {
		t.Errorf("serve.query-timeout = %v, want 0s", cfg.Serve["query-timeout"])
	}
	if _, ok := cfg.Serve["description"]; !ok {
		t.Error("serve.description is missing")
	}
	if cfg.Store["backend"] != "default" {
		t.Errorf("store.backend = %v", cfg.Store["backend"])
	}
}
