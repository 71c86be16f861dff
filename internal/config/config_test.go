package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsWhenNoFile(t *testing.T) {
	settings, err := Load(GlobalFlags{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"), Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.OutputMode != "json" {
		t.Fatalf("output = %s", settings.OutputMode)
	}
	if settings.ConfirmTimeout != 60*time.Second || settings.PollInterval != 2*time.Second {
		t.Fatalf("execution defaults = %v / %v", settings.ConfirmTimeout, settings.PollInterval)
	}
	if settings.GasBuffer != 1.2 {
		t.Fatalf("gas buffer = %v", settings.GasBuffer)
	}
	if settings.SlippageBps != 100 {
		t.Fatalf("slippage = %d", settings.SlippageBps)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
output: plain
timeout: 5s
execution:
  confirm_timeout: 90s
  gas_buffer: 1.5
services:
  price:
    url: https://price.example
  aggregator:
    url: https://agg.example
    api_key: file-key
chains:
  - chain_id: 10
    rpc_url: https://op.example
    wrapped_native:
      symbol: WETH
      address: "0x4200000000000000000000000000000000000006"
      decimals: 18
`)
	settings, err := Load(GlobalFlags{ConfigPath: path, Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.OutputMode != "plain" || settings.Timeout != 5*time.Second {
		t.Fatalf("base settings = %s / %v", settings.OutputMode, settings.Timeout)
	}
	if settings.ConfirmTimeout != 90*time.Second || settings.GasBuffer != 1.5 {
		t.Fatalf("execution settings = %v / %v", settings.ConfirmTimeout, settings.GasBuffer)
	}
	if settings.PriceServiceURL != "https://price.example" || settings.AggregatorAPIKey != "file-key" {
		t.Fatalf("services = %s / %s", settings.PriceServiceURL, settings.AggregatorAPIKey)
	}
	chain, ok := settings.Chains[10]
	if !ok || chain.RPCURL != "https://op.example" {
		t.Fatalf("chain 10 = %+v", chain)
	}
	if chain.WrappedNative.Symbol != "WETH" {
		t.Fatalf("wrapped native = %+v", chain.WrappedNative)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
services:
  aggregator:
    api_key: file-key
`)
	t.Setenv("TRADEPATH_AGGREGATOR_API_KEY", "env-key")
	t.Setenv("TRADEPATH_TIMEOUT", "3s")

	settings, err := Load(GlobalFlags{ConfigPath: path, Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.AggregatorAPIKey != "env-key" {
		t.Fatalf("api key = %s, env must win over file", settings.AggregatorAPIKey)
	}
	if settings.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", settings.Timeout)
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "output: plain\n")
	t.Setenv("TRADEPATH_OUTPUT", "plain")

	settings, err := Load(GlobalFlags{ConfigPath: path, JSON: true, Timeout: "7s", Retries: 5})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.OutputMode != "json" {
		t.Fatalf("output = %s, flag must win", settings.OutputMode)
	}
	if settings.Timeout != 7*time.Second || settings.Retries != 5 {
		t.Fatalf("timeout/retries = %v / %d", settings.Timeout, settings.Retries)
	}
}

func TestConflictingOutputFlags(t *testing.T) {
	_, err := Load(GlobalFlags{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"), JSON: true, Plain: true, Retries: -1})
	if err == nil {
		t.Fatal("expected error for --json with --plain")
	}
}

func TestAPIKeyEnvIndirection(t *testing.T) {
	path := writeConfig(t, `
services:
  wallet:
    url: https://wallet.example
    api_key_env: TEST_WALLET_KEY
`)
	t.Setenv("TEST_WALLET_KEY", "indirect-key")

	settings, err := Load(GlobalFlags{ConfigPath: path, Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.WalletServiceAPIKey != "indirect-key" {
		t.Fatalf("wallet key = %s", settings.WalletServiceAPIKey)
	}
}

func TestRegistryFallsBackToDefaults(t *testing.T) {
	settings := Settings{}
	reg := settings.Registry()
	if reg == nil {
		t.Fatal("registry must never be nil")
	}
}
