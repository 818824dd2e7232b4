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

// BundleLedger settles atomic multi-asset fixed-price sales. A bundle either
// transfers every listed asset against the full price or nothing at all;
// assets are staged through the module address so a mid-flight failure can be
// unwound without touching the buyer's custody.
type BundleLedger struct {
	mu         sync.Mutex
	state      bundleState
	assets     AssetRegistry
	payments   PaymentRegistry
	tokens     TokenRegistry
	feeConfig  FeeSource
	directory  AddressDirectory
	emitter    events.Emitter
	pauses     common.PauseView
	nowFn      func() int64
	moduleAddr [20]byte
}

// NewBundleLedger creates a bundle ledger with a no-op emitter.
func NewBundleLedger() *BundleLedger {
	return &BundleLedger{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the ledger.
func (b *BundleLedger) SetState(state bundleState) { b.state = state }

// SetAssets configures the external asset registry.
func (b *BundleLedger) SetAssets(assets AssetRegistry) { b.assets = assets }

// SetPayments configures the external payment registry.
func (b *BundleLedger) SetPayments(payments PaymentRegistry) { b.payments = payments }

// SetTokens configures the accepted payment token allow-list.
func (b *BundleLedger) SetTokens(tokens TokenRegistry) { b.tokens = tokens }

// SetFeeConfig configures the shared platform fee source.
func (b *BundleLedger) SetFeeConfig(cfg FeeSource) { b.feeConfig = cfg }

// SetDirectory configures the address directory used to authenticate
// cross-ledger sold notifications.
func (b *BundleLedger) SetDirectory(dir AddressDirectory) { b.directory = dir }

// SetModuleAddress configures the address the ledger transacts under.
func (b *BundleLedger) SetModuleAddress(addr [20]byte) { b.moduleAddr = addr }

// SetPauses configures the administrative pause view.
func (b *BundleLedger) SetPauses(p common.PauseView) { b.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (b *BundleLedger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		b.emitter = events.NoopEmitter{}
		return
	}
	b.emitter = emitter
}

// SetNowFunc overrides the clock. Primarily for tests to pin timestamps.
func (b *BundleLedger) SetNowFunc(now func() int64) {
	if now == nil {
		b.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	b.nowFn = now
}

func (b *BundleLedger) ready() error {
	switch {
	case b.state == nil:
		return errNilState
	case b.assets == nil:
		return errNilAssets
	case b.payments == nil:
		return errNilPayments
	case b.tokens == nil:
		return errNilTokens
	case b.feeConfig == nil:
		return errNilFees
	case b.moduleAddr == ([20]byte{}):
		return errNilModule
	}
	return nil
}

// ListBundle creates the caller's bundle under the given identifier. The
// caller must hold and have approved every listed asset. An identifier is
// reusable only after its previous bundle was emptied by a sale or cancel.
func (b *BundleLedger) ListBundle(caller [20]byte, bundleID string, items []BundleItem, payToken string, price *big.Int, startingTime int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}
	if err := common.Guard(b.pauses, common.ModuleBundle); err != nil {
		return err
	}
	normalizedID, err := NormalizeBundleID(bundleID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: bundle needs at least one asset", common.ErrInvalidInput)
	}
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("%w: bundle price must be positive", common.ErrInvalidInput)
	}
	if !b.tokens.Contains(payToken) {
		return fmt.Errorf("%w: %s", common.ErrTokenNotAccepted, payToken)
	}
	if owner, taken, err := b.state.BundleOwnerGet(normalizedID); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("%w: bundle %q listed by %x", common.ErrAlreadyExists, normalizedID, owner)
	}
	for _, item := range items {
		if item.Quantity == 0 {
			return fmt.Errorf("%w: zero quantity for %s", common.ErrInvalidInput, item.Key())
		}
		if err := b.verifyCustody(caller, item); err != nil {
			return err
		}
	}
	bundle := &BundleListing{
		Seller:       caller,
		BundleID:     normalizedID,
		Items:        append([]BundleItem(nil), items...),
		PayToken:     payToken,
		Price:        cloneBigInt(price),
		StartingTime: startingTime,
	}
	if err := b.state.BundlePut(caller, normalizedID, bundle); err != nil {
		return err
	}
	if err := b.state.BundleOwnerPut(normalizedID, caller); err != nil {
		return err
	}
	ref := BundleRef{Seller: caller, BundleID: normalizedID}
	for _, item := range items {
		if err := b.state.BundleIndexAdd(item.Key(), ref); err != nil {
			return err
		}
	}
	emit(b.emitter, NewBundleCreatedEvent(bundle))
	return nil
}

// BuyBundle settles the bundle registered under the identifier: the buyer
// pays the full price, the fee split is paid out, and every asset in the
// bundle moves to the buyer. Any failure rolls the whole operation back.
func (b *BundleLedger) BuyBundle(caller [20]byte, bundleID string, payToken string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}
	if err := common.Guard(b.pauses, common.ModuleBundle); err != nil {
		return err
	}
	normalizedID, err := NormalizeBundleID(bundleID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	seller, ok, err := b.state.BundleOwnerGet(normalizedID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no bundle %q", common.ErrNotFound, normalizedID)
	}
	bundle, ok, err := b.state.BundleGet(seller, normalizedID)
	if err != nil {
		return err
	}
	if !ok || !bundle.Active() {
		return fmt.Errorf("%w: no bundle %q", common.ErrNotFound, normalizedID)
	}
	if b.nowFn() < bundle.StartingTime {
		return fmt.Errorf("%w: bundle not on sale yet", common.ErrWindowViolation)
	}
	if payToken != bundle.PayToken {
		return fmt.Errorf("%w: bundle settles in %s", common.ErrTokenNotAccepted, bundle.PayToken)
	}
	for _, item := range bundle.Items {
		if err := b.verifyCustody(seller, item); err != nil {
			return fmt.Errorf("%w: seller no longer holds %s", common.ErrNotFound, item.Key())
		}
	}

	fee := b.feeConfig.Snapshot()

	// Effects before interactions: empty the bundle and drop its indexes
	// first, restoring them on rollback.
	if err := b.clearBundle(bundle); err != nil {
		return err
	}
	restore := func() {
		_ = b.state.BundlePut(seller, normalizedID, bundle)
		_ = b.state.BundleOwnerPut(normalizedID, seller)
		ref := BundleRef{Seller: seller, BundleID: normalizedID}
		for _, item := range bundle.Items {
			_ = b.state.BundleIndexAdd(item.Key(), ref)
		}
	}

	if err := b.payments.TransferFrom(bundle.PayToken, b.moduleAddr, caller, b.moduleAddr, bundle.Price); err != nil {
		restore()
		return err
	}
	// Stage assets through the module address: seller -> module can be
	// unwound item by item, and module -> buyer moves only module-held
	// custody, which cannot fail under a conforming registry.
	staged := make([]BundleItem, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		if err := b.assets.TransferFrom(item.Contract, item.TokenID, b.moduleAddr, seller, b.moduleAddr, item.Quantity); err != nil {
			for _, done := range staged {
				_ = b.assets.TransferFrom(done.Contract, done.TokenID, b.moduleAddr, b.moduleAddr, seller, done.Quantity)
			}
			if refundErr := b.payments.Transfer(bundle.PayToken, b.moduleAddr, caller, bundle.Price); refundErr != nil {
				return fmt.Errorf("market: bundle transfer failed (%v) and refund failed: %w", err, refundErr)
			}
			restore()
			return fmt.Errorf("market: bundle asset transfer failed: %w", err)
		}
		staged = append(staged, item)
	}
	for _, item := range bundle.Items {
		if err := b.assets.TransferFrom(item.Contract, item.TokenID, b.moduleAddr, b.moduleAddr, caller, item.Quantity); err != nil {
			return fmt.Errorf("market: bundle delivery failed: %w", err)
		}
	}
	cut, net := fees.Split(bundle.Price, fee.RateBps)
	if err := b.payoutFromModule(bundle.PayToken, fee.Recipient, cut); err != nil {
		return err
	}
	if err := b.payoutFromModule(bundle.PayToken, seller, net); err != nil {
		return err
	}

	emit(b.emitter, NewBundleSoldEvent(bundle, caller))
	// The sold assets invalidate any other bundle of this seller that
	// references them.
	for _, item := range bundle.Items {
		if err := b.pruneSold(seller, item.Key(), item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// CancelBundle empties the caller's bundle, freeing the identifier for reuse.
// Repeating the call is a no-op.
func (b *BundleLedger) CancelBundle(caller [20]byte, bundleID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return errNilState
	}
	if err := common.Guard(b.pauses, common.ModuleBundle); err != nil {
		return err
	}
	normalizedID, err := NormalizeBundleID(bundleID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	bundle, ok, err := b.state.BundleGet(caller, normalizedID)
	if err != nil {
		return err
	}
	if !ok || !bundle.Active() {
		return nil
	}
	if err := b.clearBundle(bundle); err != nil {
		return err
	}
	emit(b.emitter, NewBundleCancelledEvent(caller, normalizedID))
	return nil
}

// UpdateBundle changes the price and payment token of the caller's unsold
// bundle.
func (b *BundleLedger) UpdateBundle(caller [20]byte, bundleID string, payToken string, price *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return errNilState
	}
	if b.tokens == nil {
		return errNilTokens
	}
	if err := common.Guard(b.pauses, common.ModuleBundle); err != nil {
		return err
	}
	normalizedID, err := NormalizeBundleID(bundleID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("%w: bundle price must be positive", common.ErrInvalidInput)
	}
	if !b.tokens.Contains(payToken) {
		return fmt.Errorf("%w: %s", common.ErrTokenNotAccepted, payToken)
	}
	bundle, ok, err := b.state.BundleGet(caller, normalizedID)
	if err != nil {
		return err
	}
	if !ok || !bundle.Active() {
		return fmt.Errorf("%w: no bundle %q", common.ErrNotFound, normalizedID)
	}
	bundle.PayToken = payToken
	bundle.Price = cloneBigInt(price)
	if err := b.state.BundlePut(caller, normalizedID, bundle); err != nil {
		return err
	}
	emit(b.emitter, NewBundleUpdatedEvent(bundle))
	return nil
}

// HandleAssetSold prunes the sold asset from the seller's bundles. Only the
// listing ledger and the auction engine, as registered in the address
// directory, may call it.
func (b *BundleLedger) HandleAssetSold(caller, seller [20]byte, asset AssetKey, quantity uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return errNilState
	}
	if b.directory == nil {
		return errNilDirectory
	}
	if caller == ([20]byte{}) || (caller != b.directory.Marketplace() && caller != b.directory.Auction()) {
		return fmt.Errorf("%w: sold notifications accepted from settlement ledgers only", common.ErrNotAuthorized)
	}
	return b.pruneSold(seller, asset, quantity)
}

func (b *BundleLedger) pruneSold(seller [20]byte, asset AssetKey, quantity uint64) error {
	refs, err := b.state.BundleRefsByAsset(asset)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Seller != seller {
			continue
		}
		bundle, ok, err := b.state.BundleGet(ref.Seller, ref.BundleID)
		if err != nil {
			return err
		}
		if !ok || !bundle.Active() {
			continue
		}
		original := append([]BundleItem(nil), bundle.Items...)
		kept := bundle.Items[:0]
		stillReferenced := false
		for _, item := range bundle.Items {
			if item.Key() != asset {
				kept = append(kept, item)
				continue
			}
			if item.Quantity > quantity {
				item.Quantity -= quantity
				kept = append(kept, item)
				stillReferenced = true
			}
		}
		bundle.Items = kept
		if !bundle.Active() {
			bundle.Items = original
			if err := b.clearBundle(bundle); err != nil {
				return err
			}
			emit(b.emitter, NewBundleCancelledEvent(bundle.Seller, bundle.BundleID))
			continue
		}
		if err := b.state.BundlePut(bundle.Seller, bundle.BundleID, bundle); err != nil {
			return err
		}
		if !stillReferenced {
			if err := b.state.BundleIndexRemove(asset, ref); err != nil {
				return err
			}
		}
		emit(b.emitter, NewBundleUpdatedEvent(bundle))
	}
	return nil
}

// clearBundle empties the bundle record and removes every index entry. The ID
// becomes reusable afterwards.
func (b *BundleLedger) clearBundle(bundle *BundleListing) error {
	emptied := &BundleListing{Seller: bundle.Seller, BundleID: bundle.BundleID, Price: big.NewInt(0)}
	if err := b.state.BundlePut(bundle.Seller, bundle.BundleID, emptied); err != nil {
		return err
	}
	if err := b.state.BundleOwnerDelete(bundle.BundleID); err != nil {
		return err
	}
	ref := BundleRef{Seller: bundle.Seller, BundleID: bundle.BundleID}
	for _, item := range bundle.Items {
		if err := b.state.BundleIndexRemove(item.Key(), ref); err != nil {
			return err
		}
	}
	return nil
}

func (b *BundleLedger) verifyCustody(holder [20]byte, item BundleItem) error {
	balance, err := b.assets.BalanceOf(item.Contract, item.TokenID, holder)
	if err != nil {
		return err
	}
	if balance < item.Quantity {
		return fmt.Errorf("%w: %x holds %d of %s, need %d", common.ErrNotAuthorized, holder, balance, item.Key(), item.Quantity)
	}
	approved, err := b.assets.IsApprovedForAll(item.Contract, holder, b.moduleAddr)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: ledger not approved for %x on %x", common.ErrNotAuthorized, holder, item.Contract)
	}
	return nil
}

func (b *BundleLedger) payoutFromModule(token string, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return b.payments.Transfer(token, b.moduleAddr, to, amount)
}
