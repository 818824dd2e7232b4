package market

import (
	"errors"
	"math/big"
	"testing"

	"gavelmarket/core/events"
	"gavelmarket/core/types"
	"gavelmarket/native/fees"
	"gavelmarket/native/registry"
)

const testToken = "WFTM"

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type listingKey struct {
	asset  AssetKey
	seller [20]byte
}

type bundleKey struct {
	seller   [20]byte
	bundleID string
}

type mockState struct {
	listings     map[listingKey]*Listing
	auctions     map[AssetKey]*Auction
	bids         map[AssetKey]*HighestBid
	bundles      map[bundleKey]*BundleListing
	bundleOwners map[string][20]byte
	bundleIndex  map[AssetKey][]BundleRef
}

func newMockState() *mockState {
	return &mockState{
		listings:     make(map[listingKey]*Listing),
		auctions:     make(map[AssetKey]*Auction),
		bids:         make(map[AssetKey]*HighestBid),
		bundles:      make(map[bundleKey]*BundleListing),
		bundleOwners: make(map[string][20]byte),
		bundleIndex:  make(map[AssetKey][]BundleRef),
	}
}

func (m *mockState) ListingPut(asset AssetKey, seller [20]byte, listing *Listing) error {
	m.listings[listingKey{asset, seller}] = listing.Clone()
	return nil
}

func (m *mockState) ListingGet(asset AssetKey, seller [20]byte) (*Listing, bool, error) {
	listing, ok := m.listings[listingKey{asset, seller}]
	if !ok {
		return nil, false, nil
	}
	return listing.Clone(), true, nil
}

func (m *mockState) AuctionPut(asset AssetKey, auction *Auction) error {
	m.auctions[asset] = auction.Clone()
	return nil
}

func (m *mockState) AuctionGet(asset AssetKey) (*Auction, bool, error) {
	auction, ok := m.auctions[asset]
	if !ok {
		return nil, false, nil
	}
	return auction.Clone(), true, nil
}

func (m *mockState) AuctionDelete(asset AssetKey) error {
	delete(m.auctions, asset)
	return nil
}

func (m *mockState) BidPut(asset AssetKey, bid *HighestBid) error {
	m.bids[asset] = bid.Clone()
	return nil
}

func (m *mockState) BidGet(asset AssetKey) (*HighestBid, bool, error) {
	bid, ok := m.bids[asset]
	if !ok {
		return nil, false, nil
	}
	return bid.Clone(), true, nil
}

func (m *mockState) BidDelete(asset AssetKey) error {
	delete(m.bids, asset)
	return nil
}

func (m *mockState) BundlePut(seller [20]byte, bundleID string, bundle *BundleListing) error {
	m.bundles[bundleKey{seller, bundleID}] = bundle.Clone()
	return nil
}

func (m *mockState) BundleGet(seller [20]byte, bundleID string) (*BundleListing, bool, error) {
	bundle, ok := m.bundles[bundleKey{seller, bundleID}]
	if !ok {
		return nil, false, nil
	}
	return bundle.Clone(), true, nil
}

func (m *mockState) BundleOwnerPut(bundleID string, seller [20]byte) error {
	m.bundleOwners[bundleID] = seller
	return nil
}

func (m *mockState) BundleOwnerGet(bundleID string) ([20]byte, bool, error) {
	seller, ok := m.bundleOwners[bundleID]
	return seller, ok, nil
}

func (m *mockState) BundleOwnerDelete(bundleID string) error {
	delete(m.bundleOwners, bundleID)
	return nil
}

func (m *mockState) BundleIndexAdd(asset AssetKey, ref BundleRef) error {
	for _, existing := range m.bundleIndex[asset] {
		if existing == ref {
			return nil
		}
	}
	m.bundleIndex[asset] = append(m.bundleIndex[asset], ref)
	return nil
}

func (m *mockState) BundleIndexRemove(asset AssetKey, ref BundleRef) error {
	refs := m.bundleIndex[asset]
	kept := refs[:0]
	for _, existing := range refs {
		if existing != ref {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(m.bundleIndex, asset)
		return nil
	}
	m.bundleIndex[asset] = kept
	return nil
}

func (m *mockState) BundleRefsByAsset(asset AssetKey) ([]BundleRef, error) {
	return append([]BundleRef(nil), m.bundleIndex[asset]...), nil
}

type capturingEmitter struct {
	events []*types.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	if wrapped, ok := evt.(interface{ Event() *types.Event }); ok {
		c.events = append(c.events, wrapped.Event())
	}
}

func (c *capturingEmitter) byType(eventType string) []*types.Event {
	var matched []*types.Event
	for _, evt := range c.events {
		if evt.Type == eventType {
			matched = append(matched, evt)
		}
	}
	return matched
}

// failingAssets rejects transfers on demand to drive rollback paths; every
// other call passes through to the real ledger.
type failingAssets struct {
	*registry.AssetLedger
	failTransfer bool
}

func (f *failingAssets) TransferFrom(contract [20]byte, tokenID uint64, operator, from, to [20]byte, quantity uint64) error {
	if f.failTransfer {
		return errAssetTransferRejected
	}
	return f.AssetLedger.TransferFrom(contract, tokenID, operator, from, to, quantity)
}

// failingPayments rejects refunds (Transfer) or pulls (TransferFrom) on
// demand.
type failingPayments struct {
	*registry.PaymentLedger
	failTransfer     bool
	failTransferFrom bool
}

func (f *failingPayments) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	if f.failTransfer {
		return errPaymentRejected
	}
	return f.PaymentLedger.Transfer(token, from, to, amount)
}

func (f *failingPayments) TransferFrom(token string, operator, from, to [20]byte, amount *big.Int) error {
	if f.failTransferFrom {
		return errPaymentRejected
	}
	return f.PaymentLedger.TransferFrom(token, operator, from, to, amount)
}

var (
	errAssetTransferRejected = errors.New("asset transfer rejected")
	errPaymentRejected       = errors.New("payment rejected")
)

// marketFixture wires the three ledgers against shared in-memory registries
// so cross-ledger flows (sold notifications, escrow balances) are observable
// end to end.
type marketFixture struct {
	t *testing.T

	state    *mockState
	assets   *registry.AssetLedger
	payments *registry.PaymentLedger
	tokens   *registry.TokenList
	feeCfg   *fees.Config
	book     *registry.AddressBook
	emitter  *capturingEmitter

	now int64

	admin        [20]byte
	seller       [20]byte
	buyer        [20]byte
	rival        [20]byte
	feeCollector [20]byte

	marketplaceAddr [20]byte
	auctionAddr     [20]byte
	bundleAddr      [20]byte
}

func newMarketFixture(t *testing.T, rateBps uint32) *marketFixture {
	t.Helper()
	f := &marketFixture{
		t:               t,
		state:           newMockState(),
		assets:          registry.NewAssetLedger(),
		payments:        registry.NewPaymentLedger(),
		emitter:         &capturingEmitter{},
		now:             1_000,
		admin:           testAddress(0x01),
		seller:          testAddress(0x02),
		buyer:           testAddress(0x03),
		rival:           testAddress(0x04),
		feeCollector:    testAddress(0x05),
		marketplaceAddr: testAddress(0xA1),
		auctionAddr:     testAddress(0xA2),
		bundleAddr:      testAddress(0xA3),
	}
	tokens, err := registry.NewTokenList(f.admin)
	if err != nil {
		t.Fatalf("token list: %v", err)
	}
	if err := tokens.Add(f.admin, testToken); err != nil {
		t.Fatalf("accept token: %v", err)
	}
	f.tokens = tokens
	feeCfg, err := fees.NewConfig(f.admin, f.feeCollector, rateBps)
	if err != nil {
		t.Fatalf("fee config: %v", err)
	}
	f.feeCfg = feeCfg
	book, err := registry.NewAddressBook(f.admin)
	if err != nil {
		t.Fatalf("address book: %v", err)
	}
	for _, entry := range []struct {
		set  func(caller, addr [20]byte) error
		addr [20]byte
	}{
		{book.SetMarketplace, f.marketplaceAddr},
		{book.SetAuction, f.auctionAddr},
		{book.SetBundle, f.bundleAddr},
	} {
		if err := entry.set(f.admin, entry.addr); err != nil {
			t.Fatalf("address book entry: %v", err)
		}
	}
	f.book = book
	return f
}

func (f *marketFixture) nowFunc() func() int64 {
	return func() int64 { return f.now }
}

func (f *marketFixture) listingLedger() *ListingLedger {
	ledger := NewListingLedger()
	ledger.SetState(f.state)
	ledger.SetAssets(f.assets)
	ledger.SetPayments(f.payments)
	ledger.SetTokens(f.tokens)
	ledger.SetFeeConfig(f.feeCfg)
	ledger.SetModuleAddress(f.marketplaceAddr)
	ledger.SetEmitter(f.emitter)
	ledger.SetNowFunc(f.nowFunc())
	return ledger
}

func (f *marketFixture) auctionEngine() *AuctionEngine {
	engine := NewAuctionEngine()
	engine.SetState(f.state)
	engine.SetAssets(f.assets)
	engine.SetPayments(f.payments)
	engine.SetTokens(f.tokens)
	engine.SetFeeConfig(f.feeCfg)
	engine.SetModuleAddress(f.auctionAddr)
	engine.SetEmitter(f.emitter)
	engine.SetNowFunc(f.nowFunc())
	return engine
}

func (f *marketFixture) bundleLedger() *BundleLedger {
	ledger := NewBundleLedger()
	ledger.SetState(f.state)
	ledger.SetAssets(f.assets)
	ledger.SetPayments(f.payments)
	ledger.SetTokens(f.tokens)
	ledger.SetFeeConfig(f.feeCfg)
	ledger.SetDirectory(f.book)
	ledger.SetModuleAddress(f.bundleAddr)
	ledger.SetEmitter(f.emitter)
	ledger.SetNowFunc(f.nowFunc())
	return ledger
}

func (f *marketFixture) mintPayment(to [20]byte, amount int64) {
	f.t.Helper()
	if err := f.payments.Mint(testToken, to, big.NewInt(amount)); err != nil {
		f.t.Fatalf("mint payment: %v", err)
	}
}

func (f *marketFixture) approvePayments(owner, operator [20]byte, amount int64) {
	f.t.Helper()
	if err := f.payments.Approve(testToken, owner, operator, big.NewInt(amount)); err != nil {
		f.t.Fatalf("approve payments: %v", err)
	}
}

func (f *marketFixture) mintAsset(contract [20]byte, tokenID uint64, to [20]byte, quantity uint64) {
	f.t.Helper()
	if err := f.assets.Mint(contract, tokenID, to, quantity); err != nil {
		f.t.Fatalf("mint asset: %v", err)
	}
}

func (f *marketFixture) balance(account [20]byte) int64 {
	f.t.Helper()
	bal, err := f.payments.BalanceOf(testToken, account)
	if err != nil {
		f.t.Fatalf("balance: %v", err)
	}
	return bal.Int64()
}

func (f *marketFixture) assetBalance(contract [20]byte, tokenID uint64, owner [20]byte) uint64 {
	f.t.Helper()
	bal, err := f.assets.BalanceOf(contract, tokenID, owner)
	if err != nil {
		f.t.Fatalf("asset balance: %v", err)
	}
	return bal
}
