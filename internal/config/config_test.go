package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewManagerLoadsTradingAndStrategyFields(t *testing.T) {
	content := `
trading:
    input_mint: USDC
    output_mint: BONK
    run_mode: dry
    strategy: random
    strategy_params:
        buy_chance: "10"
        sell_chance: "10"
    stop_on_error: true
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	m, err := NewManager(configPath)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	trading := m.GetTrading()
	if trading.InputMint != "USDC" || trading.OutputMint != "BONK" {
		t.Fatalf("unexpected pair: %+v", trading)
	}
	if trading.RunMode != RunModeDry {
		t.Fatalf("expected run mode dry, got %q", trading.RunMode)
	}
	if trading.Strategy != "random" || trading.StrategyParams["buy_chance"] != "10" {
		t.Fatalf("unexpected strategy config: %+v", trading)
	}
	if !trading.StopOnError {
		t.Fatal("expected stop_on_error to be true")
	}
}

func TestNewManagerAppliesDefaults(t *testing.T) {
	content := `
trading:
    input_mint: USDC
    output_mint: BONK
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	m, err := NewManager(configPath)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Trading.RunMode != RunModeDry {
		t.Fatalf("expected default run mode dry, got %q", cfg.Trading.RunMode)
	}
	if cfg.Jupiter.QuoteAPIURL == "" {
		t.Fatal("expected a default jupiter quote API URL")
	}
	if cfg.Status.ListenPort == 0 {
		t.Fatal("expected a default status listen port")
	}
}

func TestManagerUpdatePersistsAndFiresCallback(t *testing.T) {
	content := `
trading:
    input_mint: USDC
    output_mint: BONK
    run_mode: dry
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	m, err := NewManager(configPath)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	var callbackFired bool
	m.SetOnChange(func(c *Config) { callbackFired = true })

	if err := m.Update(func(c *Config) { c.Trading.StopOnError = true }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !m.Get().Trading.StopOnError {
		t.Fatal("expected the in-memory config to reflect the update")
	}
	if !callbackFired {
		t.Fatal("expected the onChange callback to fire")
	}

	reloaded, err := NewManager(configPath)
	if err != nil {
		t.Fatalf("NewManager on reloaded file failed: %v", err)
	}
	if !reloaded.Get().Trading.StopOnError {
		t.Fatal("expected the persisted file to reflect the update")
	}
}

func TestGetPrivateKeyReadsConfiguredEnvVar(t *testing.T) {
	content := `
wallet:
    private_key_env: TEST_WALLET_KEY
trading:
    input_mint: USDC
    output_mint: BONK
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	os.Setenv("TEST_WALLET_KEY", "secret-key-bytes")
	defer os.Unsetenv("TEST_WALLET_KEY")

	m, err := NewManager(configPath)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if got := m.GetPrivateKey(); got != "secret-key-bytes" {
		t.Fatalf("GetPrivateKey() = %q, want %q", got, "secret-key-bytes")
	}
}
