package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/substack-protocol/keeper/pkg/chain"
	"github.com/substack-protocol/keeper/pkg/keeper"
	"github.com/substack-protocol/keeper/pkg/protocol"
	"github.com/substack-protocol/keeper/pkg/stacks"
	"github.com/substack-protocol/keeper/pkg/telemetry"
)

var (
	ErrInvalidConfig     = fmt.Errorf("invalid configuration")
	ErrMissingPrivateKey = fmt.Errorf("KEEPER_PRIVATE_KEY not configured")
)

// DefaultDeployer is the testnet deployer of the protocol contracts.
const DefaultDeployer = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"

// environment keys
const (
	EnvNetwork             = "STACKS_NETWORK"
	EnvAPIURL              = "STACKS_API_URL"
	EnvVaultContract       = "VAULT_CONTRACT"
	EnvPlansContract       = "PLANS_CONTRACT"
	EnvEngineContract      = "ENGINE_CONTRACT"
	EnvPrivateKey          = "KEEPER_PRIVATE_KEY"
	EnvCheckInterval       = "CHECK_INTERVAL"
	EnvBatchSize           = "BATCH_SIZE"
	EnvMinProfit           = "MIN_PROFIT"
	EnvMaxPlans            = "MAX_PLANS"
	EnvLogLevel            = "LOG_LEVEL"
	EnvTxFee               = "TX_FEE"
	EnvScanConcurrency     = "SCAN_CONCURRENCY"
	EnvRequestRate         = "REQUEST_RATE"
	EnvRequestTimeout      = "REQUEST_TIMEOUT"
	EnvUseBatchExecution   = "USE_BATCH_EXECUTION"
	EnvRequireVaultBalance = "REQUIRE_VAULT_BALANCE"
	EnvMetricsAddr         = "METRICS_ADDR"
)

const DefaultCheckInterval = 10 * time.Minute

// Config is the process configuration. It is loaded once at startup and
// never changed afterwards.
type Config struct {
	Network             stacks.Network
	APIURL              string
	Contracts           protocol.Contracts
	PrivateKey          string
	CheckInterval       time.Duration
	BatchSize           int
	MinProfit           uint64
	MaxPlans            uint64
	LogLevel            string
	TxFee               uint64
	ScanConcurrency     int
	RequestRate         float64
	RequestTimeout      time.Duration
	UseBatchExecution   bool
	RequireVaultBalance bool
	MetricsAddr         string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. With no files it loads ./.env
// when present.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}

		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load %s: %w", strings.Join(files, ", "), err)
	}

	return nil
}

// Load reads env files and then the environment.
func Load(files ...string) (Config, error) {
	if err := LoadEnvFiles(files...); err != nil {
		return Config{}, err
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Unset and empty keys take their
// defaults; malformed values are reported together.
func FromEnv(lookup LookupFunc) (Config, error) {
	p := parser{lookup: lookup}

	network, err := stacks.NetworkByName(p.str(EnvNetwork, stacks.Testnet.Name))
	p.fail(err)

	cfg := Config{
		Network:             network,
		APIURL:              p.str(EnvAPIURL, network.DefaultAPIURL),
		PrivateKey:          p.str(EnvPrivateKey, ""),
		CheckInterval:       time.Duration(p.integer(EnvCheckInterval, uint64(DefaultCheckInterval/time.Minute))) * time.Minute,
		BatchSize:           int(p.integer(EnvBatchSize, keeper.DefaultBatchSize)),
		MinProfit:           p.integer(EnvMinProfit, keeper.DefaultMinProfit),
		MaxPlans:            p.integer(EnvMaxPlans, keeper.DefaultMaxPlans),
		LogLevel:            strings.ToLower(p.str(EnvLogLevel, "info")),
		TxFee:               p.integer(EnvTxFee, protocol.DefaultTxFee),
		ScanConcurrency:     int(p.integer(EnvScanConcurrency, keeper.DefaultScanConcurrency)),
		RequestRate:         p.number(EnvRequestRate, chain.DefaultRequestsPerSecond),
		RequestTimeout:      p.duration(EnvRequestTimeout, chain.DefaultTimeout),
		UseBatchExecution:   p.flag(EnvUseBatchExecution, false),
		RequireVaultBalance: p.flag(EnvRequireVaultBalance, false),
		MetricsAddr:         p.str(EnvMetricsAddr, ""),
	}

	cfg.Contracts, err = protocol.ParseContracts(
		p.str(EnvVaultContract, DefaultDeployer+".subscription-vault"),
		p.str(EnvPlansContract, DefaultDeployer+".subscription-plans"),
		p.str(EnvEngineContract, DefaultDeployer+".subscription-engine"),
	)
	p.fail(err)

	p.fail(cfg.validate())

	if p.err != nil {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, p.err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	var err error

	if c.CheckInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvCheckInterval))
	}

	if c.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvBatchSize))
	}

	if c.MaxPlans == 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvMaxPlans))
	}

	if c.ScanConcurrency <= 0 || c.ScanConcurrency > keeper.MaxScanConcurrency {
		err = multierr.Append(err, fmt.Errorf("%s must be between 1 and %d", EnvScanConcurrency, keeper.MaxScanConcurrency))
	}

	if c.RequestRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvRequestRate))
	}

	if c.RequestTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvRequestTimeout))
	}

	if _, lerr := telemetry.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, lerr)
	}

	return err
}

// RequireSigningKey fails when no operator key is configured. The keeper
// cannot run without one.
func (c Config) RequireSigningKey() error {
	if strings.TrimSpace(c.PrivateKey) == "" {
		return ErrMissingPrivateKey
	}

	return nil
}

// KeeperConfig returns the cycle settings.
func (c Config) KeeperConfig() keeper.Config {
	return keeper.Config{
		BatchSize:           c.BatchSize,
		MinProfit:           c.MinProfit,
		MaxPlans:            c.MaxPlans,
		ScanConcurrency:     c.ScanConcurrency,
		UseBatchExecution:   c.UseBatchExecution,
		RequireVaultBalance: c.RequireVaultBalance,
	}
}

// ChainConfig returns the node client settings.
func (c Config) ChainConfig() chain.Config {
	return chain.Config{
		URL:               c.APIURL,
		Timeout:           c.RequestTimeout,
		RequestsPerSecond: c.RequestRate,
	}
}

type parser struct {
	lookup LookupFunc
	err    error
}

func (p *parser) fail(err error) {
	p.err = multierr.Append(p.err, err)
}

func (p *parser) str(key, def string) string {
	v, ok := p.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	return strings.TrimSpace(v)
}

func (p *parser) integer(key string, def uint64) uint64 {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		p.fail(fmt.Errorf("%s: %q is not a non-negative integer", key, raw))
		return def
	}

	return v
}

func (p *parser) number(key string, def float64) float64 {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(fmt.Errorf("%s: %q is not a number", key, raw))
		return def
	}

	return v
}

func (p *parser) flag(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: %q is not a boolean", key, raw))
		return def
	}

	return v
}

// duration accepts Go durations ("45s") or a bare number of seconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}

	if secs, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: %q is not a duration", key, raw))
		return def
	}

	return v
}
