package registry

import (
	"fmt"
	"sync"
)

// AddressBook resolves the module addresses of the settlement ledgers. It is
// built once at startup and injected into each ledger; the ledgers consult it
// only for cross-ledger permission checks, never for settlement amounts.
type AddressBook struct {
	mu          sync.RWMutex
	admin       [20]byte
	marketplace [20]byte
	auction     [20]byte
	bundle      [20]byte
}

// NewAddressBook constructs an address book administered by the given address.
func NewAddressBook(admin [20]byte) (*AddressBook, error) {
	if admin == ([20]byte{}) {
		return nil, fmt.Errorf("registry: address book admin required")
	}
	return &AddressBook{admin: admin}, nil
}

// SetMarketplace registers the listing ledger module address. Admin only.
func (b *AddressBook) SetMarketplace(caller, addr [20]byte) error {
	return b.set(caller, addr, &b.marketplace)
}

// SetAuction registers the auction engine module address. Admin only.
func (b *AddressBook) SetAuction(caller, addr [20]byte) error {
	return b.set(caller, addr, &b.auction)
}

// SetBundle registers the bundle ledger module address. Admin only.
func (b *AddressBook) SetBundle(caller, addr [20]byte) error {
	return b.set(caller, addr, &b.bundle)
}

func (b *AddressBook) set(caller, addr [20]byte, slot *[20]byte) error {
	if addr == ([20]byte{}) {
		return fmt.Errorf("registry: module address required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if caller != b.admin {
		return fmt.Errorf("registry: caller is not the address book admin")
	}
	*slot = addr
	return nil
}

// Marketplace returns the listing ledger module address.
func (b *AddressBook) Marketplace() [20]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.marketplace
}

// Auction returns the auction engine module address.
func (b *AddressBook) Auction() [20]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.auction
}

// Bundle returns the bundle ledger module address.
func (b *AddressBook) Bundle() [20]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bundle
}
