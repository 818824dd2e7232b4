package market

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"gavelmarket/core/events"
	"gavelmarket/native/common"
	"gavelmarket/native/fees"
)

// ListingLedger settles single-item fixed-price sales. Listing an item never
// moves funds or custody; the asset stays with the seller until a buyer pays
// the full price, at which point funds and ownership move in one operation or
// not at all.
type ListingLedger struct {
	mu         sync.Mutex
	state      listingState
	assets     AssetRegistry
	payments   PaymentRegistry
	tokens     TokenRegistry
	feeConfig  FeeSource
	bundleHook SoldHook
	emitter    events.Emitter
	pauses     common.PauseView
	nowFn      func() int64
	moduleAddr [20]byte
}

// NewListingLedger creates a listing ledger with a no-op emitter. Collaborators
// are wired through the setters before first use.
func NewListingLedger() *ListingLedger {
	return &ListingLedger{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the ledger.
func (l *ListingLedger) SetState(state listingState) { l.state = state }

// SetAssets configures the external asset registry.
func (l *ListingLedger) SetAssets(assets AssetRegistry) { l.assets = assets }

// SetPayments configures the external payment registry.
func (l *ListingLedger) SetPayments(payments PaymentRegistry) { l.payments = payments }

// SetTokens configures the accepted payment token allow-list.
func (l *ListingLedger) SetTokens(tokens TokenRegistry) { l.tokens = tokens }

// SetFeeConfig configures the shared platform fee source.
func (l *ListingLedger) SetFeeConfig(cfg FeeSource) { l.feeConfig = cfg }

// SetBundleHook wires the bundle ledger so sales prune bundles holding the
// sold asset. Optional.
func (l *ListingLedger) SetBundleHook(hook SoldHook) { l.bundleHook = hook }

// SetModuleAddress configures the address this ledger transacts under in the
// payment and asset registries.
func (l *ListingLedger) SetModuleAddress(addr [20]byte) { l.moduleAddr = addr }

// SetPauses configures the administrative pause view.
func (l *ListingLedger) SetPauses(p common.PauseView) { l.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *ListingLedger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the clock. Primarily for tests to pin timestamps.
func (l *ListingLedger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

func (l *ListingLedger) ready() error {
	switch {
	case l.state == nil:
		return errNilState
	case l.assets == nil:
		return errNilAssets
	case l.payments == nil:
		return errNilPayments
	case l.tokens == nil:
		return errNilTokens
	case l.feeConfig == nil:
		return errNilFees
	case l.moduleAddr == ([20]byte{}):
		return errNilModule
	}
	return nil
}

// ListItem creates or overwrites the caller's fixed-price listing for the
// asset. The caller must hold the quantity and have approved this ledger as an
// operator; no funds or custody move yet.
func (l *ListingLedger) ListItem(caller [20]byte, asset AssetKey, quantity uint64, payToken string, pricePerItem *big.Int, startingTime int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return err
	}
	if err := common.Guard(l.pauses, common.ModuleListing); err != nil {
		return err
	}
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must be positive", common.ErrInvalidInput)
	}
	if pricePerItem == nil || pricePerItem.Sign() <= 0 {
		return fmt.Errorf("%w: price per item must be positive", common.ErrInvalidInput)
	}
	if !l.tokens.Contains(payToken) {
		return fmt.Errorf("%w: %s", common.ErrTokenNotAccepted, payToken)
	}
	if err := l.verifyCustody(caller, asset, quantity); err != nil {
		return err
	}
	listing := &Listing{
		Seller:       caller,
		Quantity:     quantity,
		PayToken:     payToken,
		PricePerItem: cloneBigInt(pricePerItem),
		StartingTime: startingTime,
	}
	if err := l.state.ListingPut(asset, caller, listing); err != nil {
		return err
	}
	emit(l.emitter, NewListingCreatedEvent(asset, listing))
	return nil
}

// BuyItem settles the seller's listing for the asset in full: the buyer pays
// quantity * pricePerItem, the platform cut and seller net are paid out, and
// the asset moves to the buyer. A failure at any step leaves every balance and
// the listing exactly as before the call.
func (l *ListingLedger) BuyItem(caller [20]byte, asset AssetKey, payToken string, seller [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return err
	}
	if err := common.Guard(l.pauses, common.ModuleListing); err != nil {
		return err
	}
	listing, ok, err := l.state.ListingGet(asset, seller)
	if err != nil {
		return err
	}
	if !ok || !listing.Active() {
		return fmt.Errorf("%w: no listing for %s by %x", common.ErrNotFound, asset, seller)
	}
	now := l.nowFn()
	if now < listing.StartingTime {
		return fmt.Errorf("%w: listing not started", common.ErrWindowViolation)
	}
	if payToken != listing.PayToken {
		return fmt.Errorf("%w: listing settles in %s", common.ErrTokenNotAccepted, listing.PayToken)
	}
	if err := l.verifyCustody(seller, asset, listing.Quantity); err != nil {
		return fmt.Errorf("%w: seller no longer holds %s", common.ErrNotFound, asset)
	}

	total := new(big.Int).Mul(listing.PricePerItem, new(big.Int).SetUint64(listing.Quantity))
	fee := l.feeConfig.Snapshot()

	// Effects before interactions: the slot is zeroed before any external
	// transfer and restored only on rollback.
	if err := l.state.ListingPut(asset, seller, &Listing{Seller: seller, PricePerItem: big.NewInt(0)}); err != nil {
		return err
	}
	restore := func() {
		_ = l.state.ListingPut(asset, seller, listing)
	}

	if err := l.payments.TransferFrom(listing.PayToken, l.moduleAddr, caller, l.moduleAddr, total); err != nil {
		restore()
		return err
	}
	if err := l.assets.TransferFrom(asset.Contract, asset.TokenID, l.moduleAddr, seller, caller, listing.Quantity); err != nil {
		if refundErr := l.payments.Transfer(listing.PayToken, l.moduleAddr, caller, total); refundErr != nil {
			return fmt.Errorf("market: asset transfer failed (%v) and refund failed: %w", err, refundErr)
		}
		restore()
		return fmt.Errorf("market: asset transfer failed: %w", err)
	}
	cut, net := fees.Split(total, fee.RateBps)
	if err := l.payoutFromModule(listing.PayToken, fee.Recipient, cut); err != nil {
		return err
	}
	if err := l.payoutFromModule(listing.PayToken, seller, net); err != nil {
		return err
	}

	emit(l.emitter, NewListingSoldEvent(asset, listing, caller))
	if l.bundleHook != nil {
		if err := l.bundleHook.HandleAssetSold(l.moduleAddr, seller, asset, listing.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// CancelListing zeroes the caller's listing for the asset. Repeating the call
// is a no-op.
func (l *ListingLedger) CancelListing(caller [20]byte, asset AssetKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		return errNilState
	}
	if err := common.Guard(l.pauses, common.ModuleListing); err != nil {
		return err
	}
	listing, ok, err := l.state.ListingGet(asset, caller)
	if err != nil {
		return err
	}
	if !ok || !listing.Active() {
		return nil
	}
	if err := l.state.ListingPut(asset, caller, &Listing{Seller: caller, PricePerItem: big.NewInt(0)}); err != nil {
		return err
	}
	emit(l.emitter, NewListingCancelledEvent(asset, caller))
	return nil
}

// UpdateListing changes the price and payment token of the caller's unsold
// listing.
func (l *ListingLedger) UpdateListing(caller [20]byte, asset AssetKey, payToken string, pricePerItem *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		return errNilState
	}
	if l.tokens == nil {
		return errNilTokens
	}
	if err := common.Guard(l.pauses, common.ModuleListing); err != nil {
		return err
	}
	if pricePerItem == nil || pricePerItem.Sign() <= 0 {
		return fmt.Errorf("%w: price per item must be positive", common.ErrInvalidInput)
	}
	if !l.tokens.Contains(payToken) {
		return fmt.Errorf("%w: %s", common.ErrTokenNotAccepted, payToken)
	}
	listing, ok, err := l.state.ListingGet(asset, caller)
	if err != nil {
		return err
	}
	if !ok || !listing.Active() {
		return fmt.Errorf("%w: no listing for %s by %x", common.ErrNotFound, asset, caller)
	}
	listing.PayToken = payToken
	listing.PricePerItem = cloneBigInt(pricePerItem)
	if err := l.state.ListingPut(asset, caller, listing); err != nil {
		return err
	}
	emit(l.emitter, NewListingUpdatedEvent(asset, listing))
	return nil
}

func (l *ListingLedger) verifyCustody(holder [20]byte, asset AssetKey, quantity uint64) error {
	balance, err := l.assets.BalanceOf(asset.Contract, asset.TokenID, holder)
	if err != nil {
		return err
	}
	if balance < quantity {
		return fmt.Errorf("%w: %x holds %d of %s, need %d", common.ErrNotAuthorized, holder, balance, asset, quantity)
	}
	approved, err := l.assets.IsApprovedForAll(asset.Contract, holder, l.moduleAddr)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: ledger not approved for %x on %x", common.ErrNotAuthorized, holder, asset.Contract)
	}
	return nil
}

// payoutFromModule moves settlement proceeds out of the module account. The
// module was credited in the same operation, so a conforming payment registry
// cannot fail here; an error indicates a broken registry and is surfaced.
func (l *ListingLedger) payoutFromModule(token string, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return l.payments.Transfer(token, l.moduleAddr, to, amount)
}
