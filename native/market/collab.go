package market

import (
	"math/big"

	"gavelmarket/native/fees"
)

// AssetRegistry is the external ownership ledger for collectible assets. The
// settlement ledgers verify custody through it before listing and move assets
// through it at settlement; they never hold asset custody themselves.
type AssetRegistry interface {
	OwnerOf(contract [20]byte, tokenID uint64) ([20]byte, error)
	BalanceOf(contract [20]byte, tokenID uint64, owner [20]byte) (uint64, error)
	IsApprovedForAll(contract [20]byte, owner, operator [20]byte) (bool, error)
	TransferFrom(contract [20]byte, tokenID uint64, operator, from, to [20]byte, quantity uint64) error
}

// PaymentRegistry is the external fungible-token ledger. Transfer moves funds
// the sender holds; TransferFrom pulls from a payer on the operator's behalf
// and surfaces insufficient funds/allowance errors verbatim.
type PaymentRegistry interface {
	BalanceOf(token string, account [20]byte) (*big.Int, error)
	Transfer(token string, from, to [20]byte, amount *big.Int) error
	TransferFrom(token string, operator, from, to [20]byte, amount *big.Int) error
}

// TokenRegistry is the allow-list of accepted payment tokens.
type TokenRegistry interface {
	Contains(symbol string) bool
}

// AddressDirectory resolves the module addresses of the settlement ledgers.
// Used only for cross-ledger permission checks.
type AddressDirectory interface {
	Marketplace() [20]byte
	Auction() [20]byte
	Bundle() [20]byte
}

// FeeSource yields the platform fee configuration, read fresh at every
// settlement.
type FeeSource interface {
	Snapshot() fees.Snapshot
}

// SoldHook is notified after a single-asset settlement so dependent ledgers
// can drop slots that reference the sold asset.
type SoldHook interface {
	HandleAssetSold(caller, seller [20]byte, asset AssetKey, quantity uint64) error
}

// listingState persists fixed-price listings keyed by (asset, seller).
// Records are overwritten with zeroed values rather than deleted.
type listingState interface {
	ListingPut(asset AssetKey, seller [20]byte, listing *Listing) error
	ListingGet(asset AssetKey, seller [20]byte) (*Listing, bool, error)
}

// auctionState persists the per-asset auction slot and its single escrowed
// bid record.
type auctionState interface {
	AuctionPut(asset AssetKey, auction *Auction) error
	AuctionGet(asset AssetKey) (*Auction, bool, error)
	AuctionDelete(asset AssetKey) error
	BidPut(asset AssetKey, bid *HighestBid) error
	BidGet(asset AssetKey) (*HighestBid, bool, error)
	BidDelete(asset AssetKey) error
}

// bundleState persists bundles keyed by (seller, bundleID), the bundleID →
// seller resolution index, and the asset → bundle reverse index.
type bundleState interface {
	BundlePut(seller [20]byte, bundleID string, bundle *BundleListing) error
	BundleGet(seller [20]byte, bundleID string) (*BundleListing, bool, error)
	BundleOwnerPut(bundleID string, seller [20]byte) error
	BundleOwnerGet(bundleID string) ([20]byte, bool, error)
	BundleOwnerDelete(bundleID string) error
	BundleIndexAdd(asset AssetKey, ref BundleRef) error
	BundleIndexRemove(asset AssetKey, ref BundleRef) error
	BundleRefsByAsset(asset AssetKey) ([]BundleRef, error)
}
