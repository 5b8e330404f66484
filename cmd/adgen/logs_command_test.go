package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adgen/internal/testsupport"
)

func TestLogsFiltersByJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	content := strings.Join([]string{
		`{"ts":"2026-05-01T12:00:00Z","level":"info","msg":"stage completed","job_id":"job-a","stage":"select_image"}`,
		`{"ts":"2026-05-01T12:00:01Z","level":"info","msg":"stage completed","job_id":"job-b","stage":"select_image"}`,
		`{"ts":"2026-05-01T12:00:02Z","level":"error","msg":"stage failed","job_id":"job-a","stage":"virtual_fitting"}`,
	}, "\n") + "\n"
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.LogDir, "adgen.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"--config", configPath, "logs", "--job", "job-a"})
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "job-b") {
		t.Fatalf("unexpected foreign job entry:\n%s", out)
	}
	requireContains(t, out, "stage failed")

	out, _, err = runCLI(t, []string{"--config", configPath, "logs", "--level", "error"})
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Fatalf("expected one error entry, got:\n%s", out)
	}
}
