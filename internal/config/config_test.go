package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("output: plain\nretries: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SHERPA_OUTPUT", "json")
	flags := GlobalFlags{ConfigPath: configPath, Plain: true, Retries: 5}
	settings, err := Load(flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "plain" {
		t.Fatalf("expected flag to win, got output=%s", settings.OutputMode)
	}
	if settings.Retries != 5 {
		t.Fatalf("expected retries from flags, got %d", settings.Retries)
	}
}

func TestLoadBackendAndRPCFromFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	raw := "backend:\n  url: https://backend.example/\n  model: gpt-test\nrpc:\n  \"1\": https://rpc.example/eth\n  \"8453\": https://rpc.example/base\ntimeout: 45s\n"
	if err := os.WriteFile(configPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(GlobalFlags{ConfigPath: configPath, Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.BackendURL != "https://backend.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", settings.BackendURL)
	}
	if settings.Model != "gpt-test" {
		t.Fatalf("unexpected model: %q", settings.Model)
	}
	if settings.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout: %s", settings.Timeout)
	}
	if settings.RPCOverrides[1] != "https://rpc.example/eth" || settings.RPCOverrides[8453] != "https://rpc.example/base" {
		t.Fatalf("unexpected rpc overrides: %#v", settings.RPCOverrides)
	}
}

func TestLoadRejectsBadRPCChainKey(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("rpc:\n  mainnet: https://rpc.example\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath, Retries: -1}); err == nil {
		t.Fatal("expected error for non-numeric rpc chain key")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend:\n  url: https://file.example\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHERPA_BACKEND_URL", "https://env.example")
	t.Setenv("SHERPA_NO_SESSION", "1")

	settings, err := Load(GlobalFlags{ConfigPath: configPath, Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.BackendURL != "https://env.example" {
		t.Fatalf("expected env to win over file, got %q", settings.BackendURL)
	}
	if settings.SessionEnabled {
		t.Fatal("expected SHERPA_NO_SESSION to disable session persistence")
	}
}

func TestLoadMutuallyExclusiveOutputFlags(t *testing.T) {
	_, err := Load(GlobalFlags{JSON: true, Plain: true})
	if err == nil {
		t.Fatal("expected error with --json and --plain")
	}
}

func TestLoadEnableCommands(t *testing.T) {
	settings, err := Load(GlobalFlags{EnableCommands: "chat, execute ,", Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(settings.EnableCommands) != 2 || settings.EnableCommands[0] != "chat" || settings.EnableCommands[1] != "execute" {
		t.Fatalf("unexpected allowlist: %#v", settings.EnableCommands)
	}
}
