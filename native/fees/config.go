package fees

import (
	"fmt"
	"sync"
)

// Snapshot is the fee configuration as observed by a single settlement. It is
// taken fresh at payout time so a rate change never touches amounts that were
// escrowed earlier.
type Snapshot struct {
	Recipient [20]byte
	RateBps   uint32
}

// Config holds the mutable platform fee configuration shared by the
// settlement ledgers. All mutation is funnelled through the setters and
// requires the owner role.
type Config struct {
	mu        sync.RWMutex
	owner     [20]byte
	recipient [20]byte
	rateBps   uint32
}

// NewConfig constructs a fee configuration owned by the supplied address.
func NewConfig(owner, recipient [20]byte, rateBps uint32) (*Config, error) {
	if owner == ([20]byte{}) {
		return nil, fmt.Errorf("fees: owner address required")
	}
	if recipient == ([20]byte{}) {
		return nil, fmt.Errorf("fees: recipient address required")
	}
	if err := ValidateRate(rateBps); err != nil {
		return nil, err
	}
	return &Config{owner: owner, recipient: recipient, rateBps: rateBps}, nil
}

// Snapshot returns the current recipient and rate.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Recipient: c.recipient, RateBps: c.rateBps}
}

// SetRate updates the platform fee rate. Owner only.
func (c *Config) SetRate(caller [20]byte, rateBps uint32) error {
	if err := ValidateRate(rateBps); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.owner {
		return fmt.Errorf("fees: caller is not the config owner")
	}
	c.rateBps = rateBps
	return nil
}

// SetRecipient updates the platform fee recipient. Owner only.
func (c *Config) SetRecipient(caller, recipient [20]byte) error {
	if recipient == ([20]byte{}) {
		return fmt.Errorf("fees: recipient address required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.owner {
		return fmt.Errorf("fees: caller is not the config owner")
	}
	c.recipient = recipient
	return nil
}

// TransferOwnership hands the owner role to a new address. Owner only.
func (c *Config) TransferOwnership(caller, next [20]byte) error {
	if next == ([20]byte{}) {
		return fmt.Errorf("fees: new owner address required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.owner {
		return fmt.Errorf("fees: caller is not the config owner")
	}
	c.owner = next
	return nil
}
