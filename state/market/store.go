package market

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	nativemarket "gavelmarket/native/market"
	"gavelmarket/storage"
)

// Key prefixes for the settlement records. Every key is a prefix plus the
// keccak hash of the record's identifying tuple, so seller-chosen bundle
// identifiers of any length map to fixed-size keys.
var (
	prefixListing     = []byte("market/listing/")
	prefixAuction     = []byte("market/auction/")
	prefixBid         = []byte("market/bid/")
	prefixBundle      = []byte("market/bundle/")
	prefixBundleOwner = []byte("market/bundle-owner/")
	prefixBundleIndex = []byte("market/bundle-index/")
)

// Store persists the settlement ledgers' records in a key-value database. It
// implements the state backends of the listing ledger, the auction engine and
// the bundle ledger.
type Store struct {
	db storage.Database
}

// NewStore wraps the database.
func NewStore(db storage.Database) (*Store, error) {
	if db == nil {
		return nil, errors.New("market: database required")
	}
	return &Store{db: db}, nil
}

func assetBytes(asset nativemarket.AssetKey) []byte {
	buf := make([]byte, 0, 28)
	buf = append(buf, asset.Contract[:]...)
	buf = binary.BigEndian.AppendUint64(buf, asset.TokenID)
	return buf
}

func hashedKey(prefix []byte, parts ...[]byte) []byte {
	return append(append([]byte(nil), prefix...), crypto.Keccak256(parts...)...)
}

func (s *Store) putJSON(key []byte, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("market: encode record: %w", err)
	}
	return s.db.Put(key, raw)
}

func (s *Store) getJSON(key []byte, record any) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, record); err != nil {
		return false, fmt.Errorf("market: decode record: %w", err)
	}
	return true, nil
}

// ListingPut stores the listing record, zeroed records included.
func (s *Store) ListingPut(asset nativemarket.AssetKey, seller [20]byte, listing *nativemarket.Listing) error {
	return s.putJSON(hashedKey(prefixListing, assetBytes(asset), seller[:]), listing)
}

// ListingGet loads the listing record for (asset, seller).
func (s *Store) ListingGet(asset nativemarket.AssetKey, seller [20]byte) (*nativemarket.Listing, bool, error) {
	var listing nativemarket.Listing
	ok, err := s.getJSON(hashedKey(prefixListing, assetBytes(asset), seller[:]), &listing)
	if !ok || err != nil {
		return nil, false, err
	}
	return &listing, true, nil
}

// AuctionPut stores the auction record for the asset.
func (s *Store) AuctionPut(asset nativemarket.AssetKey, auction *nativemarket.Auction) error {
	return s.putJSON(hashedKey(prefixAuction, assetBytes(asset)), auction)
}

// AuctionGet loads the auction record for the asset.
func (s *Store) AuctionGet(asset nativemarket.AssetKey) (*nativemarket.Auction, bool, error) {
	var auction nativemarket.Auction
	ok, err := s.getJSON(hashedKey(prefixAuction, assetBytes(asset)), &auction)
	if !ok || err != nil {
		return nil, false, err
	}
	return &auction, true, nil
}

// AuctionDelete removes the auction record for the asset.
func (s *Store) AuctionDelete(asset nativemarket.AssetKey) error {
	return s.db.Delete(hashedKey(prefixAuction, assetBytes(asset)))
}

// BidPut stores the escrowed bid record for the asset's auction.
func (s *Store) BidPut(asset nativemarket.AssetKey, bid *nativemarket.HighestBid) error {
	return s.putJSON(hashedKey(prefixBid, assetBytes(asset)), bid)
}

// BidGet loads the escrowed bid record for the asset's auction.
func (s *Store) BidGet(asset nativemarket.AssetKey) (*nativemarket.HighestBid, bool, error) {
	var bid nativemarket.HighestBid
	ok, err := s.getJSON(hashedKey(prefixBid, assetBytes(asset)), &bid)
	if !ok || err != nil {
		return nil, false, err
	}
	return &bid, true, nil
}

// BidDelete removes the escrowed bid record for the asset's auction.
func (s *Store) BidDelete(asset nativemarket.AssetKey) error {
	return s.db.Delete(hashedKey(prefixBid, assetBytes(asset)))
}

// BundlePut stores the bundle record for (seller, bundleID).
func (s *Store) BundlePut(seller [20]byte, bundleID string, bundle *nativemarket.BundleListing) error {
	return s.putJSON(hashedKey(prefixBundle, seller[:], []byte(bundleID)), bundle)
}

// BundleGet loads the bundle record for (seller, bundleID).
func (s *Store) BundleGet(seller [20]byte, bundleID string) (*nativemarket.BundleListing, bool, error) {
	var bundle nativemarket.BundleListing
	ok, err := s.getJSON(hashedKey(prefixBundle, seller[:], []byte(bundleID)), &bundle)
	if !ok || err != nil {
		return nil, false, err
	}
	return &bundle, true, nil
}

// BundleOwnerPut claims the bundle identifier for the seller.
func (s *Store) BundleOwnerPut(bundleID string, seller [20]byte) error {
	return s.db.Put(hashedKey(prefixBundleOwner, []byte(bundleID)), seller[:])
}

// BundleOwnerGet resolves a bundle identifier to its seller.
func (s *Store) BundleOwnerGet(bundleID string) ([20]byte, bool, error) {
	var seller [20]byte
	raw, err := s.db.Get(hashedKey(prefixBundleOwner, []byte(bundleID)))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return seller, false, nil
	}
	if err != nil {
		return seller, false, err
	}
	if len(raw) != len(seller) {
		return seller, false, fmt.Errorf("market: malformed bundle owner record (%d bytes)", len(raw))
	}
	copy(seller[:], raw)
	return seller, true, nil
}

// BundleOwnerDelete releases the bundle identifier.
func (s *Store) BundleOwnerDelete(bundleID string) error {
	return s.db.Delete(hashedKey(prefixBundleOwner, []byte(bundleID)))
}

// BundleIndexAdd records that the bundle references the asset.
func (s *Store) BundleIndexAdd(asset nativemarket.AssetKey, ref nativemarket.BundleRef) error {
	refs, err := s.BundleRefsByAsset(asset)
	if err != nil {
		return err
	}
	for _, existing := range refs {
		if existing == ref {
			return nil
		}
	}
	refs = append(refs, ref)
	return s.putJSON(hashedKey(prefixBundleIndex, assetBytes(asset)), refs)
}

// BundleIndexRemove drops the bundle's reference to the asset.
func (s *Store) BundleIndexRemove(asset nativemarket.AssetKey, ref nativemarket.BundleRef) error {
	refs, err := s.BundleRefsByAsset(asset)
	if err != nil {
		return err
	}
	kept := refs[:0]
	for _, existing := range refs {
		if existing != ref {
			kept = append(kept, existing)
		}
	}
	key := hashedKey(prefixBundleIndex, assetBytes(asset))
	if len(kept) == 0 {
		return s.db.Delete(key)
	}
	return s.putJSON(key, kept)
}

// BundleRefsByAsset lists the bundles that reference the asset.
func (s *Store) BundleRefsByAsset(asset nativemarket.AssetKey) ([]nativemarket.BundleRef, error) {
	var refs []nativemarket.BundleRef
	ok, err := s.getJSON(hashedKey(prefixBundleIndex, assetBytes(asset)), &refs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return refs, nil
}
