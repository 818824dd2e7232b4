package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration of a settlement service.
type Config struct {
	Service        string   `toml:"Service"`
	Environment    string   `toml:"Environment"`
	DataDir        string   `toml:"DataDir"`
	FeeOwner       string   `toml:"FeeOwner"`
	FeeRecipient   string   `toml:"FeeRecipient"`
	FeeRateBps     uint32   `toml:"FeeRateBps"`
	AcceptedTokens []string `toml:"AcceptedTokens"`
	Pauses         Pauses   `toml:"Pauses"`
}

// Load loads the configuration from the given path. A missing file is created
// with defaults first, so a fresh deployment starts from a working setup.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}

	applyDefaults(cfg, path)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, path string) {
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = "gavelmarket"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(path), "data")
	}
	if cfg.AcceptedTokens == nil {
		cfg.AcceptedTokens = []string{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Service:        "gavelmarket",
		Environment:    "local",
		DataDir:        filepath.Join(filepath.Dir(path), "data"),
		FeeOwner:       zeroAddressHex,
		FeeRecipient:   zeroAddressHex,
		FeeRateBps:     250,
		AcceptedTokens: []string{"WFTM"},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

const zeroAddressHex = "0000000000000000000000000000000000000000"

// FeeOwnerAddress parses the configured fee owner.
func (c *Config) FeeOwnerAddress() ([20]byte, error) {
	return parseAddress(c.FeeOwner, "FeeOwner")
}

// FeeRecipientAddress parses the configured fee recipient.
func (c *Config) FeeRecipientAddress() ([20]byte, error) {
	return parseAddress(c.FeeRecipient, "FeeRecipient")
}

func parseAddress(value, field string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("config: invalid %s: %w", field, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("config: invalid %s: need %d bytes, got %d", field, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
