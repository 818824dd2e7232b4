package registry

import (
	"fmt"
	"sync"
)

type assetKey struct {
	contract [20]byte
	tokenID  uint64
}

// AssetLedger is an in-memory semi-fungible asset ledger: each
// (contract, tokenID) pair has per-owner quantities, so both unique items
// (quantity 1) and fungible editions are representable. It stands in for the
// external asset registry in tests and the reference host wiring.
type AssetLedger struct {
	mu        sync.Mutex
	holdings  map[assetKey]map[[20]byte]uint64
	approvals map[[20]byte]map[[20]byte]map[[20]byte]bool
}

// NewAssetLedger constructs an empty asset ledger.
func NewAssetLedger() *AssetLedger {
	return &AssetLedger{
		holdings:  make(map[assetKey]map[[20]byte]uint64),
		approvals: make(map[[20]byte]map[[20]byte]map[[20]byte]bool),
	}
}

// Mint issues quantity units of the asset to the recipient.
func (a *AssetLedger) Mint(contract [20]byte, tokenID uint64, to [20]byte, quantity uint64) error {
	if quantity == 0 {
		return fmt.Errorf("registry: mint quantity must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := assetKey{contract: contract, tokenID: tokenID}
	byOwner, ok := a.holdings[key]
	if !ok {
		byOwner = make(map[[20]byte]uint64)
		a.holdings[key] = byOwner
	}
	byOwner[to] += quantity
	return nil
}

// OwnerOf returns the sole holder of the asset. It fails for assets with zero
// or multiple holders; fungible-quantity callers should use BalanceOf.
func (a *AssetLedger) OwnerOf(contract [20]byte, tokenID uint64) ([20]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byOwner := a.holdings[assetKey{contract: contract, tokenID: tokenID}]
	var owner [20]byte
	holders := 0
	for addr, qty := range byOwner {
		if qty == 0 {
			continue
		}
		owner = addr
		holders++
	}
	switch holders {
	case 0:
		return [20]byte{}, fmt.Errorf("registry: asset %x/%d has no holder", contract, tokenID)
	case 1:
		return owner, nil
	default:
		return [20]byte{}, fmt.Errorf("registry: asset %x/%d has multiple holders", contract, tokenID)
	}
}

// BalanceOf returns the quantity of the asset held by the owner.
func (a *AssetLedger) BalanceOf(contract [20]byte, tokenID uint64, owner [20]byte) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holdings[assetKey{contract: contract, tokenID: tokenID}][owner], nil
}

// SetApprovalForAll grants or revokes the operator's right to move any of the
// owner's assets under the contract.
func (a *AssetLedger) SetApprovalForAll(contract [20]byte, owner, operator [20]byte, approved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byContract, ok := a.approvals[contract]
	if !ok {
		byContract = make(map[[20]byte]map[[20]byte]bool)
		a.approvals[contract] = byContract
	}
	byOperator, ok := byContract[owner]
	if !ok {
		byOperator = make(map[[20]byte]bool)
		byContract[owner] = byOperator
	}
	byOperator[operator] = approved
}

// IsApprovedForAll reports whether the operator may move the owner's assets
// under the contract.
func (a *AssetLedger) IsApprovedForAll(contract [20]byte, owner, operator [20]byte) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.approvals[contract][owner][operator], nil
}

// TransferFrom moves quantity units from one holder to another. The operator
// must be the holder or an approved operator for the holder.
func (a *AssetLedger) TransferFrom(contract [20]byte, tokenID uint64, operator, from, to [20]byte, quantity uint64) error {
	if quantity == 0 {
		return fmt.Errorf("registry: transfer quantity must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if operator != from && !a.approvals[contract][from][operator] {
		return fmt.Errorf("registry: operator %x not approved by %x", operator, from)
	}
	key := assetKey{contract: contract, tokenID: tokenID}
	byOwner := a.holdings[key]
	if byOwner[from] < quantity {
		return fmt.Errorf("registry: holder %x has %d of asset %x/%d, need %d", from, byOwner[from], contract, tokenID, quantity)
	}
	byOwner[from] -= quantity
	if byOwner[from] == 0 {
		delete(byOwner, from)
	}
	byOwner[to] += quantity
	return nil
}
