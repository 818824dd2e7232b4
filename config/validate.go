package config

import (
	"fmt"
	"strings"

	"gavelmarket/native/fees"
	"gavelmarket/native/registry"
)

// ValidateConfig rejects configurations the settlement services cannot run
// with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if err := fees.ValidateRate(cfg.FeeRateBps); err != nil {
		return fmt.Errorf("config: FeeRateBps: %w", err)
	}
	if _, err := cfg.FeeOwnerAddress(); err != nil {
		return err
	}
	if _, err := cfg.FeeRecipientAddress(); err != nil {
		return err
	}
	if len(cfg.AcceptedTokens) == 0 {
		return fmt.Errorf("config: at least one accepted payment token required")
	}
	for _, symbol := range cfg.AcceptedTokens {
		if _, err := registry.NormalizeToken(symbol); err != nil {
			return fmt.Errorf("config: AcceptedTokens: %w", err)
		}
	}
	return nil
}
