// Package config loads settings from defaults, an optional yaml file, and
// TRADEPATH_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asterion-dev/tradepath/internal/token"
)

type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Plain      bool
	Timeout    string
	Retries    int
	NoCache    bool
}

// ChainSettings configures one supported chain.
type ChainSettings struct {
	RPCURL        string
	WrappedNative token.Ref
	Stablecoins   []token.Ref
}

type Settings struct {
	OutputMode string

	Timeout time.Duration
	Retries int

	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	GasBuffer      float64
	SlippageBps    int64

	CacheEnabled    bool
	CachePath       string
	CacheLockPath   string
	JournalPath     string
	JournalLockPath string

	PriceServiceURL string

	AggregatorURL    string
	AggregatorAPIKey string
	SwapFeeBps       int64
	SwapFeeRecipient string

	WalletServiceURL    string
	WalletServiceAPIKey string

	RuleServiceURL    string
	RuleServiceAPIKey string

	Chains map[int64]ChainSettings
}

type fileToken struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

type fileChain struct {
	ChainID       int64       `yaml:"chain_id"`
	RPCURL        string      `yaml:"rpc_url"`
	WrappedNative fileToken   `yaml:"wrapped_native"`
	Stablecoins   []fileToken `yaml:"stablecoins"`
}

type fileConfig struct {
	Output  string `yaml:"output"`
	Timeout string `yaml:"timeout"`
	Retries *int   `yaml:"retries"`

	Execution struct {
		ConfirmTimeout string  `yaml:"confirm_timeout"`
		PollInterval   string  `yaml:"poll_interval"`
		GasBuffer      float64 `yaml:"gas_buffer"`
		SlippageBps    int64   `yaml:"slippage_bps"`
		JournalPath    string  `yaml:"journal_path"`
		JournalLock    string  `yaml:"journal_lock_path"`
	} `yaml:"execution"`

	Cache struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"cache"`

	Services struct {
		Price struct {
			URL string `yaml:"url"`
		} `yaml:"price"`
		Aggregator struct {
			URL          string `yaml:"url"`
			APIKey       string `yaml:"api_key"`
			APIKeyEnv    string `yaml:"api_key_env"`
			FeeBps       int64  `yaml:"fee_bps"`
			FeeRecipient string `yaml:"fee_recipient"`
		} `yaml:"aggregator"`
		Wallet struct {
			URL       string `yaml:"url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"wallet"`
		Rules struct {
			URL       string `yaml:"url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"rules"`
	} `yaml:"services"`

	Chains []fileChain `yaml:"chains"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.GasBuffer <= 1 {
		settings.GasBuffer = 1.2
	}
	return settings, nil
}

// Registry builds the token registry from configured chains, falling back to
// the built-in defaults when no chain defines its own tokens.
func (s Settings) Registry() *token.Registry {
	if len(s.Chains) == 0 {
		return token.DefaultRegistry()
	}
	chains := make(map[int64]token.ChainTokens, len(s.Chains))
	for id, chain := range s.Chains {
		chains[id] = token.ChainTokens{
			WrappedNative: chain.WrappedNative,
			Stablecoins:   chain.Stablecoins,
		}
	}
	return token.NewRegistry(chains)
}

func defaultSettings() (Settings, error) {
	cacheDir, err := defaultCacheDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:      "json",
		Timeout:         10 * time.Second,
		Retries:         2,
		ConfirmTimeout:  60 * time.Second,
		PollInterval:    2 * time.Second,
		GasBuffer:       1.2,
		SlippageBps:     100,
		CacheEnabled:    true,
		CachePath:       filepath.Join(cacheDir, "cache.db"),
		CacheLockPath:   filepath.Join(cacheDir, "cache.lock"),
		JournalPath:     filepath.Join(cacheDir, "orders.db"),
		JournalLockPath: filepath.Join(cacheDir, "orders.lock"),
		Chains:          map[int64]ChainSettings{},
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tradepath", "config.yaml"), nil
}

func defaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "tradepath"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Execution.ConfirmTimeout != "" {
		d, err := time.ParseDuration(cfg.Execution.ConfirmTimeout)
		if err != nil {
			return fmt.Errorf("config execution.confirm_timeout: %w", err)
		}
		settings.ConfirmTimeout = d
	}
	if cfg.Execution.PollInterval != "" {
		d, err := time.ParseDuration(cfg.Execution.PollInterval)
		if err != nil {
			return fmt.Errorf("config execution.poll_interval: %w", err)
		}
		settings.PollInterval = d
	}
	if cfg.Execution.GasBuffer > 0 {
		settings.GasBuffer = cfg.Execution.GasBuffer
	}
	if cfg.Execution.SlippageBps > 0 {
		settings.SlippageBps = cfg.Execution.SlippageBps
	}
	if cfg.Execution.JournalPath != "" {
		settings.JournalPath = cfg.Execution.JournalPath
	}
	if cfg.Execution.JournalLock != "" {
		settings.JournalLockPath = cfg.Execution.JournalLock
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}

	if cfg.Services.Price.URL != "" {
		settings.PriceServiceURL = cfg.Services.Price.URL
	}
	if cfg.Services.Aggregator.URL != "" {
		settings.AggregatorURL = cfg.Services.Aggregator.URL
	}
	if cfg.Services.Aggregator.APIKey != "" {
		settings.AggregatorAPIKey = cfg.Services.Aggregator.APIKey
	}
	if cfg.Services.Aggregator.APIKeyEnv != "" {
		settings.AggregatorAPIKey = os.Getenv(cfg.Services.Aggregator.APIKeyEnv)
	}
	if cfg.Services.Aggregator.FeeBps > 0 {
		settings.SwapFeeBps = cfg.Services.Aggregator.FeeBps
	}
	if cfg.Services.Aggregator.FeeRecipient != "" {
		settings.SwapFeeRecipient = cfg.Services.Aggregator.FeeRecipient
	}
	if cfg.Services.Wallet.URL != "" {
		settings.WalletServiceURL = cfg.Services.Wallet.URL
	}
	if cfg.Services.Wallet.APIKey != "" {
		settings.WalletServiceAPIKey = cfg.Services.Wallet.APIKey
	}
	if cfg.Services.Wallet.APIKeyEnv != "" {
		settings.WalletServiceAPIKey = os.Getenv(cfg.Services.Wallet.APIKeyEnv)
	}
	if cfg.Services.Rules.URL != "" {
		settings.RuleServiceURL = cfg.Services.Rules.URL
	}
	if cfg.Services.Rules.APIKey != "" {
		settings.RuleServiceAPIKey = cfg.Services.Rules.APIKey
	}
	if cfg.Services.Rules.APIKeyEnv != "" {
		settings.RuleServiceAPIKey = os.Getenv(cfg.Services.Rules.APIKeyEnv)
	}

	for _, chain := range cfg.Chains {
		parsed, err := parseChain(chain)
		if err != nil {
			return err
		}
		settings.Chains[chain.ChainID] = parsed
	}
	return nil
}

func parseChain(chain fileChain) (ChainSettings, error) {
	if chain.ChainID <= 0 {
		return ChainSettings{}, fmt.Errorf("config chains: chain_id must be positive")
	}
	out := ChainSettings{RPCURL: chain.RPCURL}
	if chain.WrappedNative.Address != "" {
		ref, err := token.NewRef(chain.WrappedNative.Symbol, chain.WrappedNative.Address, chain.WrappedNative.Decimals, chain.ChainID)
		if err != nil {
			return ChainSettings{}, fmt.Errorf("config chains: wrapped_native: %w", err)
		}
		out.WrappedNative = ref
	}
	for _, stable := range chain.Stablecoins {
		ref, err := token.NewRef(stable.Symbol, stable.Address, stable.Decimals, chain.ChainID)
		if err != nil {
			return ChainSettings{}, fmt.Errorf("config chains: stablecoin: %w", err)
		}
		out.Stablecoins = append(out.Stablecoins, ref)
	}
	return out, nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("TRADEPATH_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("TRADEPATH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("TRADEPATH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("TRADEPATH_CONFIRM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.ConfirmTimeout = d
		}
	}
	if v := os.Getenv("TRADEPATH_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("TRADEPATH_PRICE_URL"); v != "" {
		settings.PriceServiceURL = v
	}
	if v := os.Getenv("TRADEPATH_AGGREGATOR_URL"); v != "" {
		settings.AggregatorURL = v
	}
	if v := os.Getenv("TRADEPATH_AGGREGATOR_API_KEY"); v != "" {
		settings.AggregatorAPIKey = v
	}
	if v := os.Getenv("TRADEPATH_WALLET_URL"); v != "" {
		settings.WalletServiceURL = v
	}
	if v := os.Getenv("TRADEPATH_WALLET_API_KEY"); v != "" {
		settings.WalletServiceAPIKey = v
	}
	if v := os.Getenv("TRADEPATH_RULES_URL"); v != "" {
		settings.RuleServiceURL = v
	}
	if v := os.Getenv("TRADEPATH_RULES_API_KEY"); v != "" {
		settings.RuleServiceAPIKey = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}
	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	return nil
}
