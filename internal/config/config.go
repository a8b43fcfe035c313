// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type MonitoringConfig struct {
	PollingIntervalMs int     `mapstructure:"polling_interval_ms"`
	MaxRetries        int     `mapstructure:"max_retries"`
	TimeoutMs         int     `mapstructure:"timeout_ms"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

type RetryConfig struct {
	MaxAttempts    int     `mapstructure:"max_attempts"`
	InitialDelayMs int     `mapstructure:"initial_delay_ms"`
	MaxDelayMs     int     `mapstructure:"max_delay_ms"`
	Multiplier     float64 `mapstructure:"multiplier"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	DataDir     string `mapstructure:"data_dir"`
	PostgresURL string `mapstructure:"postgres_url"`
	MaxRecords  int    `mapstructure:"max_records"`
}

type Config struct {
	RPCList      []string         `mapstructure:"rpc_list"`
	NetworkID    string           `mapstructure:"network_id"`
	IPFSEndpoint string           `mapstructure:"ipfs_endpoint"`
	WalletsFile  string           `mapstructure:"wallets_file"`
	Workers      int              `mapstructure:"workers"`
	DebugLogging bool             `mapstructure:"debug_logging"`
	Monitoring   MonitoringConfig `mapstructure:"monitoring"`
	Retry        RetryConfig      `mapstructure:"retry"`
	Storage      StorageConfig    `mapstructure:"storage"`
}

const (
	DefaultNetworkID         = "devnet"
	DefaultWorkers           = 5
	DefaultPollingIntervalMs = 2000
	DefaultMaxRetries        = 30
	DefaultTimeoutMs         = 120_000
	DefaultRetryAttempts     = 3
	DefaultInitialDelayMs    = 500
	DefaultMaxDelayMs        = 10_000
	DefaultStorageBackend    = "file"
	DefaultDataDir           = "data"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"network_id":                     DefaultNetworkID,
		"workers":                        DefaultWorkers,
		"wallets_file":                   "wallets.csv",
		"monitoring.polling_interval_ms": DefaultPollingIntervalMs,
		"monitoring.max_retries":         DefaultMaxRetries,
		"monitoring.timeout_ms":          DefaultTimeoutMs,
		"monitoring.backoff_multiplier":  1.0,
		"retry.max_attempts":             DefaultRetryAttempts,
		"retry.initial_delay_ms":         DefaultInitialDelayMs,
		"retry.max_delay_ms":             DefaultMaxDelayMs,
		"retry.multiplier":               2.0,
		"storage.backend":                DefaultStorageBackend,
		"storage.data_dir":               DefaultDataDir,
		"storage.max_records":            0,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// PollingInterval returns the monitor poll cadence as a duration.
func (m MonitoringConfig) PollingInterval() time.Duration {
	return time.Duration(m.PollingIntervalMs) * time.Millisecond
}

// Timeout returns the monitor wall-clock deadline as a duration.
func (m MonitoringConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// InitialDelay returns the first retry backoff as a duration.
func (r RetryConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMs) * time.Millisecond
}

// MaxDelay returns the retry backoff ceiling as a duration.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.IPFSEndpoint != "" {
		if err := validateURLWithCache(cfg.IPFSEndpoint, "http"); err != nil {
			return errors.New("invalid IPFS endpoint protocol")
		}
	}
	switch cfg.NetworkID {
	case "mainnet", "devnet", "testnet", "localnet":
	default:
		return errors.New("network_id must be one of mainnet, devnet, testnet, localnet")
	}
	switch cfg.Storage.Backend {
	case "file", "postgres":
	default:
		return errors.New("storage backend must be file or postgres")
	}
	if cfg.Storage.Backend == "postgres" && cfg.Storage.PostgresURL == "" {
		return errors.New("postgres backend requires postgres_url")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Monitoring.PollingIntervalMs <= 0 {
		return errors.New("invalid monitoring polling_interval_ms")
	}
	if cfg.Monitoring.MaxRetries <= 0 {
		return errors.New("invalid monitoring max_retries")
	}
	if cfg.Monitoring.TimeoutMs <= 0 {
		return errors.New("invalid monitoring timeout_ms")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return errors.New("invalid retry max_attempts")
	}
	if cfg.Retry.InitialDelayMs <= 0 {
		return errors.New("invalid retry initial_delay_ms")
	}
	if cfg.Storage.MaxRecords < 0 {
		return errors.New("invalid storage max_records")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, raw := range rpcs {
			clean := strings.TrimSpace(raw)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	if envPostgres := v.GetString("POSTGRES_URL"); envPostgres != "" {
		cfg.Storage.PostgresURL = envPostgres
	}
	if envIPFS := v.GetString("IPFS_ENDPOINT"); envIPFS != "" {
		cfg.IPFSEndpoint = envIPFS
	}
	return nil
}
