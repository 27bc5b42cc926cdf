package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"launchpad/native/launch"
)

// Config is the service-level configuration of the launchpad daemon.
type Config struct {
	ListenAddress   string `toml:"ListenAddress"`
	DataDir         string `toml:"DataDir"`
	Env             string `toml:"Env"`
	AdminAddress    string `toml:"AdminAddress"`
	TreasuryAddress string `toml:"TreasuryAddress"`
	VaultAddress    string `toml:"VaultAddress"`
	LogFile         string `toml:"LogFile"`

	RateLimitPerMinute float64 `toml:"RateLimitPerMinute"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`

	Genesis GenesisParams `toml:"Genesis"`
}

// GenesisParams seeds the on-state configuration singleton when the database
// is empty. Zero values fall back to protocol defaults.
type GenesisParams struct {
	AmountPerBacker      uint64 `toml:"AmountPerBacker"`
	ProtocolFee          uint64 `toml:"ProtocolFee"`
	TotalMint            uint64 `toml:"TotalMint"`
	TotalPoolTokens      uint64 `toml:"TotalPoolTokens"`
	MakerTokenAmount     uint64 `toml:"MakerTokenAmount"`
	AirdropPerMilestone  uint64 `toml:"AirdropPerMilestone"`
	MinBackers           uint64 `toml:"MinBackers"`
	MaxBackers           uint64 `toml:"MaxBackers"`
	MaxBackedProposals   uint64 `toml:"MaxBackedProposals"`
	RefundFeeBps         uint16 `toml:"RefundFeeBps"`
	PoolBaseFeeNumerator uint64 `toml:"PoolBaseFeeNumerator"`
	TokenDecimals        uint8  `toml:"TokenDecimals"`
	BackingPeriodSecs    int64  `toml:"BackingPeriodSecs"`
	UnlockDelaySecs      int64  `toml:"UnlockDelaySecs"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./launchpad-data"
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "local"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"AdminAddress":    c.AdminAddress,
		"TreasuryAddress": c.TreasuryAddress,
		"VaultAddress":    c.VaultAddress,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if !ethcommon.IsHexAddress(value) {
			return fmt.Errorf("config: %s is not a valid hex address", name)
		}
	}
	if err := c.LaunchParams().Validate(); err != nil {
		return fmt.Errorf("config: invalid genesis params: %w", err)
	}
	return nil
}

// Address parses one of the configured hex addresses into the 20-byte form
// used by the engine. An empty value yields the zero address.
func Address(value string) [20]byte {
	var addr [20]byte
	if strings.TrimSpace(value) == "" {
		return addr
	}
	copy(addr[:], ethcommon.HexToAddress(value).Bytes())
	return addr
}

// LaunchParams merges the genesis overrides over the protocol defaults.
func (c *Config) LaunchParams() launch.Params {
	params := launch.DefaultParams()
	g := c.Genesis
	if g.AmountPerBacker > 0 {
		params.AmountPerBacker = g.AmountPerBacker
	}
	if g.ProtocolFee > 0 {
		params.ProtocolFee = g.ProtocolFee
	}
	if g.TotalMint > 0 {
		params.TotalMint = g.TotalMint
	}
	if g.TotalPoolTokens > 0 {
		params.TotalPoolTokens = g.TotalPoolTokens
	}
	if g.MakerTokenAmount > 0 {
		params.MakerTokenAmount = g.MakerTokenAmount
	}
	if g.AirdropPerMilestone > 0 {
		params.AirdropPerMilestone = g.AirdropPerMilestone
	}
	if g.MinBackers > 0 {
		params.MinBackers = g.MinBackers
	}
	if g.MaxBackers > 0 {
		params.MaxBackers = g.MaxBackers
	}
	if g.MaxBackedProposals > 0 {
		params.MaxBackedProposals = g.MaxBackedProposals
	}
	if g.RefundFeeBps > 0 {
		params.RefundFeeBps = g.RefundFeeBps
	}
	if g.PoolBaseFeeNumerator > 0 {
		params.PoolBaseFeeNumerator = g.PoolBaseFeeNumerator
	}
	if g.TokenDecimals > 0 {
		params.TokenDecimals = g.TokenDecimals
	}
	if g.BackingPeriodSecs > 0 {
		params.BackingPeriodSecs = g.BackingPeriodSecs
	}
	if g.UnlockDelaySecs > 0 {
		params.UnlockDelaySecs = g.UnlockDelaySecs
	}
	return params
}
