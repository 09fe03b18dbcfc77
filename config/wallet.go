package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kisa-team/gonka-wallet/log"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "~/.gonka-wallet/config.yaml"
	envPrefix         = "GONKA"

	PollPolicyDetached   = "detached"
	PollPolicyCancelable = "cancelable"
)

var (
	ErrNoHosts           = errors.New("no node hosts configured")
	ErrInvalidPollPolicy = errors.New("invalid poll policy")
	ErrInvalidPolling    = errors.New("poll attempts must be positive")
)

// WalletConfig is the on disk configuration for the wallet.
type WalletConfig struct {
	ChainID         string   `yaml:"chain_id" mapstructure:"chain_id" comment:"Chain ID to sign for. When empty it is read from the node."`
	AccountPrefix   string   `yaml:"account_prefix" mapstructure:"account_prefix" comment:"Bech32 prefix for account addresses"`
	ValidatorPrefix string   `yaml:"validator_prefix" mapstructure:"validator_prefix" comment:"Bech32 prefix for validator operator addresses"`
	CoinType        uint32   `yaml:"coin_type" mapstructure:"coin_type" comment:"SLIP-44 coin type used in the derivation path m/44'/<coin_type>'/0'/0/0"`
	FeeDenom        string   `yaml:"fee_denom" mapstructure:"fee_denom" comment:"Base denom used for fees, stake and transfers"`
	NodeHosts       []string `yaml:"node_hosts" mapstructure:"node_hosts" comment:"Candidate node hosts, in order of preference. Order is re-ranked from live success and failure."`
	GrpcPort        string   `yaml:"grpc_port" mapstructure:"grpc_port" comment:"Port of the gRPC endpoint on every node host"`
	RestPort        string   `yaml:"rest_port" mapstructure:"rest_port" comment:"Port of the REST endpoint on every node host. Port 8443 uses https."`

	RestTimeoutMs      int `yaml:"rest_timeout_ms" mapstructure:"rest_timeout_ms" comment:"Timeout per host for REST requests, in milliseconds"`
	DirectRpcTimeoutMs int `yaml:"direct_rpc_timeout_ms" mapstructure:"direct_rpc_timeout_ms" comment:"Timeout per call on the gRPC path, in milliseconds. 0 defers to the transport."`

	PollAttempts int    `yaml:"poll_attempts" mapstructure:"poll_attempts" comment:"Number of times a broadcast transaction is looked up before its status is unknown"`
	PollDelayMs  int    `yaml:"poll_delay_ms" mapstructure:"poll_delay_ms" comment:"Delay before each lookup, in milliseconds"`
	PollPolicy   string `yaml:"poll_policy" mapstructure:"poll_policy" comment:"Whether confirmation polling outlives the caller (detached) or stops when the caller gives up (cancelable)"`

	GrantExpirationDays int `yaml:"grant_expiration_days" mapstructure:"grant_expiration_days" comment:"Lifetime of authorizations created by grant commands, in days"`

	KeystoreDir string `yaml:"keystore_dir" mapstructure:"keystore_dir" comment:"Directory of the encrypted seed store"`
	RelayURL    string `yaml:"relay_url" mapstructure:"relay_url" comment:"Websocket relay used by the remote signing bridge"`
	LogLevel    string `yaml:"log_level" mapstructure:"log_level" comment:"One of debug, info, warn, error"`
}

// DefaultWalletConfig returns the configuration for gonka mainnet.
func DefaultWalletConfig() *WalletConfig {
	return &WalletConfig{
		ChainID:         "",
		AccountPrefix:   "gonka",
		ValidatorPrefix: "gonkavaloper",
		CoinType:        1200,
		FeeDenom:        "ngonka",
		NodeHosts:       []string{"node1.gonka.ai", "node2.gonka.ai", "node3.gonka.ai"},
		GrpcPort:        "9090",
		RestPort:        "8000",

		RestTimeoutMs:      5000,
		DirectRpcTimeoutMs: 0,

		PollAttempts: 30,
		PollDelayMs:  2000,
		PollPolicy:   PollPolicyDetached,

		GrantExpirationDays: 365,

		KeystoreDir: "~/.gonka-wallet/keystore",
		RelayURL:    "",
		LogLevel:    "info",
	}
}

func (c *WalletConfig) RestTimeout() time.Duration {
	return time.Duration(c.RestTimeoutMs) * time.Millisecond
}

func (c *WalletConfig) DirectRpcTimeout() time.Duration {
	return time.Duration(c.DirectRpcTimeoutMs) * time.Millisecond
}

func (c *WalletConfig) PollDelay() time.Duration {
	return time.Duration(c.PollDelayMs) * time.Millisecond
}

func (c *WalletConfig) Validate() error {
	if len(c.NodeHosts) == 0 {
		return ErrNoHosts
	}
	for _, host := range c.NodeHosts {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("%w: blank host", ErrNoHosts)
		}
	}
	if c.PollAttempts <= 0 {
		return ErrInvalidPolling
	}
	if c.PollPolicy != PollPolicyDetached && c.PollPolicy != PollPolicyCancelable {
		return fmt.Errorf("%w: %q", ErrInvalidPollPolicy, c.PollPolicy)
	}
	if c.AccountPrefix == "" || c.FeeDenom == "" {
		return errors.New("account prefix and fee denom are required")
	}
	if !log.IsValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	return nil
}

// Load reads configuration from a yaml file (if it exists) and GONKA_ prefixed environment variables, on
// top of the defaults.
func Load(configFile string) (*WalletConfig, error) {
	defaults := DefaultWalletConfig()

	vip := viper.New()
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()

	vip.SetDefault("chain_id", defaults.ChainID)
	vip.SetDefault("account_prefix", defaults.AccountPrefix)
	vip.SetDefault("validator_prefix", defaults.ValidatorPrefix)
	vip.SetDefault("coin_type", defaults.CoinType)
	vip.SetDefault("fee_denom", defaults.FeeDenom)
	vip.SetDefault("node_hosts", defaults.NodeHosts)
	vip.SetDefault("grpc_port", defaults.GrpcPort)
	vip.SetDefault("rest_port", defaults.RestPort)
	vip.SetDefault("rest_timeout_ms", defaults.RestTimeoutMs)
	vip.SetDefault("direct_rpc_timeout_ms", defaults.DirectRpcTimeoutMs)
	vip.SetDefault("poll_attempts", defaults.PollAttempts)
	vip.SetDefault("poll_delay_ms", defaults.PollDelayMs)
	vip.SetDefault("poll_policy", defaults.PollPolicy)
	vip.SetDefault("grant_expiration_days", defaults.GrantExpirationDays)
	vip.SetDefault("keystore_dir", defaults.KeystoreDir)
	vip.SetDefault("relay_url", defaults.RelayURL)
	vip.SetDefault("log_level", defaults.LogLevel)

	if configFile != "" && FileExists(configFile) {
		vip.SetConfigFile(ExpandHomeDir(configFile))
		vip.SetConfigType("yaml")
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &WalletConfig{}
	if err := vip.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.KeystoreDir = ExpandHomeDir(cfg.KeystoreDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error while validating config: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration, with comments, unless the file already exists.
func WriteDefault(configFile string, logger *log.Logger) error {
	return WriteYamlWithComments(DefaultWalletConfig(), "Gonka wallet configuration", configFile, logger)
}
