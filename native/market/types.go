package market

import (
	"fmt"
	"math/big"
	"strings"
)

// AssetKey identifies a single collectible asset: the contract that minted it
// plus the token identifier within that contract.
type AssetKey struct {
	Contract [20]byte
	TokenID  uint64
}

func (k AssetKey) String() string {
	return fmt.Sprintf("%x/%d", k.Contract, k.TokenID)
}

// Listing is a seller's open fixed-price offer for a single asset. A listing
// with Quantity == 0 is absent: cancellation and settlement zero the record
// rather than deleting it, so repeated cancels stay idempotent.
type Listing struct {
	Seller       [20]byte
	Quantity     uint64
	PayToken     string
	PricePerItem *big.Int
	StartingTime int64
}

// Active reports whether the listing currently offers anything for sale.
func (l *Listing) Active() bool {
	return l != nil && l.Quantity > 0
}

// Clone returns a deep copy so callers can mutate without aliasing stored
// records.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.PricePerItem != nil {
		clone.PricePerItem = new(big.Int).Set(l.PricePerItem)
	} else {
		clone.PricePerItem = big.NewInt(0)
	}
	return &clone
}

// Auction is a time-boxed competitive-bid sale for a unique asset. At most one
// unresolved auction exists per asset at a time.
type Auction struct {
	Seller       [20]byte
	PayToken     string
	ReservePrice *big.Int
	StartTime    int64
	EndTime      int64
	MinIncrement *big.Int
	Resulted     bool
}

// Clone returns a deep copy of the auction record.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	if a.ReservePrice != nil {
		clone.ReservePrice = new(big.Int).Set(a.ReservePrice)
	} else {
		clone.ReservePrice = big.NewInt(0)
	}
	if a.MinIncrement != nil {
		clone.MinIncrement = new(big.Int).Set(a.MinIncrement)
	} else {
		clone.MinIncrement = big.NewInt(0)
	}
	return &clone
}

// HighestBid is the single outstanding escrowed bid for an auction. The
// engine's escrowed balance for an auction always equals Amount exactly; the
// previous bidder is refunded in full before a new record replaces theirs.
type HighestBid struct {
	Bidder  [20]byte
	Amount  *big.Int
	BidTime int64
}

// Clone returns a deep copy of the bid record.
func (b *HighestBid) Clone() *HighestBid {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Amount != nil {
		clone.Amount = new(big.Int).Set(b.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// BundleItem is one asset slot inside a bundle listing.
type BundleItem struct {
	Contract [20]byte
	TokenID  uint64
	Quantity uint64
}

// Key returns the asset key for the slot.
func (i BundleItem) Key() AssetKey {
	return AssetKey{Contract: i.Contract, TokenID: i.TokenID}
}

// BundleListing is a seller-scoped, atomically sold group of assets under one
// price. An emptied bundle (no items) is absent; its identifier becomes
// reusable by the seller.
type BundleListing struct {
	Seller       [20]byte
	BundleID     string
	Items        []BundleItem
	PayToken     string
	Price        *big.Int
	StartingTime int64
}

// Active reports whether the bundle still has items for sale.
func (b *BundleListing) Active() bool {
	return b != nil && len(b.Items) > 0
}

// Clone returns a deep copy of the bundle record.
func (b *BundleListing) Clone() *BundleListing {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Items = append([]BundleItem(nil), b.Items...)
	if b.Price != nil {
		clone.Price = new(big.Int).Set(b.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// BundleRef names one bundle containing a given asset; the bundle ledger keeps
// an index of these so settlements elsewhere can prune stale bundle slots.
type BundleRef struct {
	Seller   [20]byte
	BundleID string
}

// NormalizeBundleID canonicalises a seller-chosen bundle identifier.
func NormalizeBundleID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("market: bundle id required")
	}
	return trimmed, nil
}
