// Package config loads and hot-reloads the engine's startup configuration
// (spec.md §6 inputs 2-5: RPC endpoint, trading pair, strategy selection
// and parameters, run mode). Adapted from the teacher's
// internal/config/config.go: same viper+fsnotify hot-reload manager,
// mapstructure-tagged struct layout and env-var-indirection pattern for
// secrets, generalized from a Telegram-signal-bot's config (wallet +
// RPC + Telegram listener + storage + TUI) to an engine's config (wallet +
// RPC + trading pair/strategy/run-mode + notifier + status endpoint + TUI
// + backtest candle cache).
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	Wallet   WalletConfig   `mapstructure:"wallet"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Jupiter  JupiterConfig  `mapstructure:"jupiter"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Status   StatusConfig   `mapstructure:"status"`
	TUI      TUIConfig      `mapstructure:"tui"`
	Backtest BacktestConfig `mapstructure:"backtest"`
}

// WalletConfig names the env var carrying the wallet's Ed25519 private key
// (spec.md §6 input (1): "supplied out-of-band").
type WalletConfig struct {
	PrivateKeyEnv string `mapstructure:"private_key_env"`
}

// RPCConfig names a primary and fallback Solana RPC endpoint (spec.md §6
// input (2)), each with its own API-key env var indirection.
type RPCConfig struct {
	PrimaryURL        string `mapstructure:"primary_url"`
	PrimaryAPIKeyEnv  string `mapstructure:"primary_api_key_env"`
	FallbackURL       string `mapstructure:"fallback_url"`
	FallbackAPIKeyEnv string `mapstructure:"fallback_api_key_env"`
}

// RunMode selects how the swap pipeline executes (spec.md §6 input (5)).
type RunMode string

const (
	RunModeReal     RunMode = "real"
	RunModeDry      RunMode = "dry"
	RunModeBacktest RunMode = "backtest"
)

// TradingConfig carries spec.md §6 inputs (3)-(5): the trading pair,
// strategy selection and its parameters, and the run mode.
type TradingConfig struct {
	InputMint      string            `mapstructure:"input_mint"`
	OutputMint     string            `mapstructure:"output_mint"`
	RunMode        RunMode           `mapstructure:"run_mode"`
	Strategy       string            `mapstructure:"strategy"`
	StrategyParams map[string]string `mapstructure:"strategy_params"`
	StopOnError    bool              `mapstructure:"stop_on_error"`
	CandleInterval string            `mapstructure:"candle_interval"`
	CandleCount    int               `mapstructure:"candle_count"`
}

type JupiterConfig struct {
	QuoteAPIURL    string `mapstructure:"quote_api_url"`
	SlippageBps    int    `mapstructure:"slippage_bps"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// NotifierConfig selects and configures the ambient notification sink
// (spec.md §6: "not core-critical").
type NotifierConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BotTokenEnv string `mapstructure:"bot_token_env"`
	ChatID      string `mapstructure:"chat_id"`
}

// StatusConfig configures the liveness/status HTTP endpoint.
type StatusConfig struct {
	ListenHost string `mapstructure:"listen_host"`
	ListenPort int    `mapstructure:"listen_port"`
}

type TUIConfig struct {
	RefreshRateMs int `mapstructure:"refresh_rate_ms"`
	LogLines      int `mapstructure:"log_lines"`
}

// BacktestConfig configures the local candle cache internal/backtest reads
// through, not restart-persisted engine state.
type BacktestConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Manager handles config loading and hot-reload.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	onChange func(*Config)
}

// NewManager creates a new config manager, reading configPath and
// watching it for changes.
func NewManager(configPath string) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("wallet.private_key_env", "WALLET_PRIVATE_KEY")
	v.SetDefault("rpc.primary_api_key_env", "RPC_API_KEY")
	v.SetDefault("rpc.fallback_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.fallback_api_key_env", "FALLBACK_RPC_API_KEY")
	v.SetDefault("trading.run_mode", string(RunModeDry))
	v.SetDefault("trading.candle_interval", "1_MINUTE")
	v.SetDefault("trading.candle_count", 200)
	v.SetDefault("jupiter.quote_api_url", "https://quote-api.jup.ag/v6/quote")
	v.SetDefault("jupiter.slippage_bps", 50)
	v.SetDefault("jupiter.timeout_seconds", 10)
	v.SetDefault("status.listen_host", "127.0.0.1")
	v.SetDefault("status.listen_port", 8090)
	v.SetDefault("tui.refresh_rate_ms", 100)
	v.SetDefault("tui.log_lines", 100)
	v.SetDefault("backtest.sqlite_path", "./data/candles.db")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	m := &Manager{
		config: &cfg,
		viper:  v,
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Msg("config file changed, reloading")
		m.reload()
	})

	return m, nil
}

// Get returns the current config (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetTrading returns the trading config (most frequently accessed).
func (m *Manager) GetTrading() TradingConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Trading
}

// SetOnChange registers a callback invoked after a hot-reload.
func (m *Manager) SetOnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Update modifies config values in place and persists them to disk.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.config)

	m.viper.Set("trading.stop_on_error", m.config.Trading.StopOnError)
	m.viper.Set("trading.run_mode", string(m.config.Trading.RunMode))

	if err := m.viper.WriteConfig(); err != nil {
		return err
	}

	if m.onChange != nil {
		m.onChange(m.config)
	}
	return nil
}

func (m *Manager) reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg Config
	if err := m.viper.Unmarshal(&cfg); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config on reload")
		return
	}

	m.config = &cfg
	if m.onChange != nil {
		m.onChange(&cfg)
	}
}

// GetPrivateKey loads the wallet private key from its configured env var.
func (m *Manager) GetPrivateKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return os.Getenv(m.config.Wallet.PrivateKeyEnv)
}

// GetNotifierBotToken loads the notifier's bot token from its configured
// env var.
func (m *Manager) GetNotifierBotToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return os.Getenv(m.config.Notifier.BotTokenEnv)
}

// GetPrimaryRPCURL returns the primary RPC URL with its API key injected
// as a query parameter, if one is configured.
func (m *Manager) GetPrimaryRPCURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return injectAPIKey(m.config.RPC.PrimaryURL, m.config.RPC.PrimaryAPIKeyEnv, "api_key")
}

// GetFallbackRPCURL returns the fallback RPC URL with its API key
// injected. Different providers expect different query param names
// (Helius uses "api-key" rather than "api_key"); the param name is
// detected from the URL's host, matching the teacher's
// GetFallbackRPCURL exactly.
func (m *Manager) GetFallbackRPCURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	param := "api_key"
	if strings.Contains(m.config.RPC.FallbackURL, "helius") {
		param = "api-key"
	}
	return injectAPIKey(m.config.RPC.FallbackURL, m.config.RPC.FallbackAPIKeyEnv, param)
}

func injectAPIKey(url, envKey, param string) string {
	key := os.Getenv(envKey)
	if key == "" {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&" + param + "=" + key
	}
	return url + "?" + param + "=" + key
}

// GetCandleCount returns how many warm-up candles the engine fetches at
// startup.
func (m *Manager) GetCandleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Trading.CandleCount
}

// GetStatusListenAddr returns the host:port the liveness/status server
// binds to.
func (m *Manager) GetStatusListenAddr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Status.ListenHost + ":" + strconv.Itoa(m.config.Status.ListenPort)
}
