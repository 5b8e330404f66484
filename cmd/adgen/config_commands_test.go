package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adgen/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateAndShowMasksSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithToken("secret-token-value", "alice"))
	cfg.LLM.APIKey = "sk-very-secret"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"--config", configPath, "config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"--config", configPath, "config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-very-secret") || strings.Contains(out, "secret-token-value") {
		t.Fatalf("secrets leaked in output:\n%s", out)
	}
	requireContains(t, out, "alice")
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"abc":      "****",
		"abcdefgh": "ab****gh",
	}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Fatalf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
