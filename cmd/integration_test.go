package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// resetFlags restores every flag to its default so values set by one
// invocation do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(fl *pflag.Flag) {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolate points HOME at a temp dir and clears config env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "INSIGHTLOOM_") {
			t.Setenv(k, "")
		}
	}
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return home
}

// closedAddr returns a local address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestCLI_QueryWithUnreachableLLMFallsBack(t *testing.T) {
	home := isolate(t)
	outPath := filepath.Join(home, "reports", "q3.json")

	runCmd(t, "query", "Show me Q3 sales performance",
		"--provider", "ollama", "--ollama-host", "http://"+closedAddr(t),
		"--output", outPath)

	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res["status"] != "completed" {
		t.Fatalf("expected completed, got %v (%v)", res["status"], res["error"])
	}
	if fb, _ := res["fallbacks"].([]any); len(fb) != 3 {
		t.Fatalf("expected 3 fallbacks, got %v", res["fallbacks"])
	}
	if report, _ := res["report"].(string); !strings.HasPrefix(report, "Error generating report:") {
		t.Fatalf("unexpected report: %q", report)
	}
	if recs, _ := res["records_fetched"].(map[string]any); recs["sales_transactions"] == nil {
		t.Fatalf("expected sales rows, got %v", res["records_fetched"])
	}
}

func TestCLI_QueryRejectsUnknownSource(t *testing.T) {
	isolate(t)
	if _, err := execCmd("query", "anything", "--sources", "hr_payroll"); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestCLI_SeedSQLiteThenListSources(t *testing.T) {
	home := isolate(t)
	dsn := filepath.Join(home, "insightloom.db")

	out := runCmd(t, "seed", "--backend", "sqlite", "--dsn", dsn, "--seed", "7")
	if !strings.Contains(out, "Migrated sqlite schema") {
		t.Fatalf("expected migration message, got:\n%s", out)
	}

	out = runCmd(t, "sources", "--backend", "sqlite", "--dsn", dsn, "--format", "json")
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode sources: %v\n%s", err, out)
	}
	want := map[string]int{}
	for _, tbl := range gateway.Generate(7) {
		want[tbl.Kind.String()] = len(tbl.Rows)
	}
	if len(rows) != len(gateway.SourceKeys()) {
		t.Fatalf("expected %d sources, got %d", len(gateway.SourceKeys()), len(rows))
	}
	for _, r := range rows {
		table := r["table"].(string)
		if int(r["rows"].(float64)) != want[table] {
			t.Fatalf("%s: expected %d rows, got %v", table, want[table], r["rows"])
		}
	}

	// Re-seeding is idempotent: no migration, same counts.
	out = runCmd(t, "seed", "--backend", "sqlite", "--dsn", dsn, "--seed", "7")
	if strings.Contains(out, "Migrated") {
		t.Fatalf("expected no migration on second seed, got:\n%s", out)
	}
}

func TestCLI_SeedCSVThenQueryCSVBackend(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, "data")
	runCmd(t, "seed", "--backend", "csv", "--data-dir", dir)

	for _, k := range gateway.AllKinds() {
		if _, err := os.Stat(filepath.Join(dir, k.String()+".csv")); err != nil {
			t.Fatalf("expected csv for %s: %v", k, err)
		}
	}
	out := runCmd(t, "sources", "--backend", "csv", "--data-dir", dir, "--format", "markdown")
	if !strings.Contains(out, "| erp_sales | sales_transactions |") {
		t.Fatalf("unexpected sources output:\n%s", out)
	}
}

func TestCLI_ExportParquet(t *testing.T) {
	home := isolate(t)
	out := filepath.Join(home, "exports", "north.parquet")
	runCmd(t, "export", "--source", "erp_sales", "--region", "North", "--date-from", "2025-07-01", "--out", out)

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("expected parquet file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("parquet file is empty")
	}

	if _, err := execCmd("export", "--source", "nope", "--out", out); err == nil {
		t.Fatalf("expected error for unknown source")
	}
	if _, err := execCmd("export", "--source", "erp_sales"); err == nil {
		t.Fatalf("expected error without --out")
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)
	runCmd(t, "config", "set", "model", "llama3.1")
	runCmd(t, "config", "set", "api_key", "sk-abcdef123")

	if _, err := os.Stat(filepath.Join(home, ".insightloom", "config.yaml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	out := runCmd(t, "config", "show")
	for _, want := range []string{"model: llama3.1", "api_key: sk-****123", "data.backend: memory"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if _, err := execCmd("config", "set", "max_tokens", "lots"); err == nil {
		t.Fatalf("expected error for invalid int")
	}
}
