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

// AuctionEngine runs time-boxed English auctions. It escrows exactly one bid
// per auction under its module address: an outbid bidder is refunded in full
// before the replacing bid is recorded, so escrowed funds per auction always
// equal the current highest bid.
type AuctionEngine struct {
	mu         sync.Mutex
	state      auctionState
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

// NewAuctionEngine creates an auction engine with a no-op emitter.
func NewAuctionEngine() *AuctionEngine {
	return &AuctionEngine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *AuctionEngine) SetState(state auctionState) { e.state = state }

// SetAssets configures the external asset registry.
func (e *AuctionEngine) SetAssets(assets AssetRegistry) { e.assets = assets }

// SetPayments configures the external payment registry.
func (e *AuctionEngine) SetPayments(payments PaymentRegistry) { e.payments = payments }

// SetTokens configures the accepted payment token allow-list.
func (e *AuctionEngine) SetTokens(tokens TokenRegistry) { e.tokens = tokens }

// SetFeeConfig configures the shared platform fee source.
func (e *AuctionEngine) SetFeeConfig(cfg FeeSource) { e.feeConfig = cfg }

// SetBundleHook wires the bundle ledger so auction settlements prune bundles
// holding the sold asset. Optional.
func (e *AuctionEngine) SetBundleHook(hook SoldHook) { e.bundleHook = hook }

// SetModuleAddress configures the address the engine escrows bids under.
func (e *AuctionEngine) SetModuleAddress(addr [20]byte) { e.moduleAddr = addr }

// SetPauses configures the administrative pause view.
func (e *AuctionEngine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *AuctionEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock. Primarily for tests to pin timestamps.
func (e *AuctionEngine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *AuctionEngine) ready() error {
	switch {
	case e.state == nil:
		return errNilState
	case e.assets == nil:
		return errNilAssets
	case e.payments == nil:
		return errNilPayments
	case e.tokens == nil:
		return errNilTokens
	case e.feeConfig == nil:
		return errNilFees
	case e.moduleAddr == ([20]byte{}):
		return errNilModule
	}
	return nil
}

// CreateAuction opens an auction for a unique asset the caller owns. The
// window must be well formed and no unresolved auction may exist for the
// asset. When minBidReserve is set, each bid must clear the previous one by at
// least one unit instead of any strictly greater amount.
func (e *AuctionEngine) CreateAuction(caller [20]byte, asset AssetKey, payToken string, reservePrice *big.Int, startTime int64, minBidReserve bool, endTime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return err
	}
	if startTime >= endTime {
		return fmt.Errorf("%w: start time %d not before end time %d", common.ErrInvalidInput, startTime, endTime)
	}
	if reservePrice == nil || reservePrice.Sign() < 0 {
		return fmt.Errorf("%w: reserve price must be non-negative", common.ErrInvalidInput)
	}
	if !e.tokens.Contains(payToken) {
		return fmt.Errorf("%w: %s", common.ErrTokenNotAccepted, payToken)
	}
	existing, ok, err := e.state.AuctionGet(asset)
	if err != nil {
		return err
	}
	if ok && !existing.Resulted {
		return fmt.Errorf("%w: unresolved auction for %s", common.ErrAlreadyExists, asset)
	}
	owner, err := e.assets.OwnerOf(asset.Contract, asset.TokenID)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: caller does not own %s", common.ErrNotAuthorized, asset)
	}
	approved, err := e.assets.IsApprovedForAll(asset.Contract, caller, e.moduleAddr)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: engine not approved for %x on %x", common.ErrNotAuthorized, caller, asset.Contract)
	}
	minIncrement := big.NewInt(0)
	if minBidReserve {
		minIncrement = big.NewInt(1)
	}
	auction := &Auction{
		Seller:       caller,
		PayToken:     payToken,
		ReservePrice: cloneBigInt(reservePrice),
		StartTime:    startTime,
		EndTime:      endTime,
		MinIncrement: minIncrement,
	}
	if err := e.state.AuctionPut(asset, auction); err != nil {
		return err
	}
	emit(e.emitter, NewAuctionCreatedEvent(asset, auction))
	return nil
}

// PlaceBid escrows the caller's bid for the asset's auction. The bid window is
// half-open: a bid exactly at the end time is rejected. Ties lose; the amount
// must strictly exceed the current highest bid and clear the reserve. The
// outbid bidder is refunded in full before the new bid is recorded.
func (e *AuctionEngine) PlaceBid(caller [20]byte, asset AssetKey, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return err
	}
	auction, ok, err := e.state.AuctionGet(asset)
	if err != nil {
		return err
	}
	if !ok || auction.Resulted {
		return fmt.Errorf("%w: no open auction for %s", common.ErrNotFound, asset)
	}
	now := e.nowFn()
	if now < auction.StartTime || now >= auction.EndTime {
		return fmt.Errorf("%w: bidding window is [%d, %d)", common.ErrWindowViolation, auction.StartTime, auction.EndTime)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: bid amount must be positive", common.ErrInvalidInput)
	}
	if amount.Cmp(auction.ReservePrice) < 0 {
		return fmt.Errorf("%w: bid below reserve %s", common.ErrBidTooLow, auction.ReservePrice)
	}
	prev, hasPrev, err := e.state.BidGet(asset)
	if err != nil {
		return err
	}
	if hasPrev {
		floor := new(big.Int).Add(prev.Amount, auction.MinIncrement)
		if amount.Cmp(prev.Amount) <= 0 || amount.Cmp(floor) < 0 {
			return fmt.Errorf("%w: highest bid is %s", common.ErrBidTooLow, prev.Amount)
		}
		// Refund-then-pull: the engine never escrows two bids at once. A
		// failed refund rejects the incoming bid outright.
		if err := e.payments.Transfer(auction.PayToken, e.moduleAddr, prev.Bidder, prev.Amount); err != nil {
			return fmt.Errorf("market: outbid refund failed, bid rejected: %w", err)
		}
		emit(e.emitter, NewAuctionRefundEvent(asset, prev.Bidder, prev.Amount.String()))
	}
	if err := e.payments.TransferFrom(auction.PayToken, e.moduleAddr, caller, e.moduleAddr, amount); err != nil {
		if hasPrev {
			if reErr := e.reescrow(auction.PayToken, asset, prev); reErr != nil {
				return fmt.Errorf("market: bid pull failed (%v), previous escrow released: %w", err, reErr)
			}
		}
		return err
	}
	bid := &HighestBid{Bidder: caller, Amount: cloneBigInt(amount), BidTime: now}
	if err := e.state.BidPut(asset, bid); err != nil {
		return err
	}
	emit(e.emitter, NewAuctionBidEvent(asset, caller, amount.String()))
	return nil
}

// reescrow attempts to pull a refunded bid back after the replacing bid could
// not be funded. When the previous bidder's allowance no longer covers it the
// bid record is cleared instead: the bidder keeps their refund and the auction
// reverts to having no bid, so no value is lost either way.
func (e *AuctionEngine) reescrow(token string, asset AssetKey, prev *HighestBid) error {
	if err := e.payments.TransferFrom(token, e.moduleAddr, prev.Bidder, e.moduleAddr, prev.Amount); err != nil {
		if delErr := e.state.BidDelete(asset); delErr != nil {
			return delErr
		}
		return err
	}
	return nil
}

// ResultAuction settles an ended auction with at least one bid. Callable by
// the seller or the winning bidder. The platform cut is taken from the margin
// above the reserve price; the seller receives the winning bid minus that cut,
// and the asset moves to the winner.
func (e *AuctionEngine) ResultAuction(caller [20]byte, asset AssetKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return err
	}
	auction, ok, err := e.state.AuctionGet(asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no auction for %s", common.ErrNotFound, asset)
	}
	if auction.Resulted {
		return fmt.Errorf("%w: auction for %s already resulted", common.ErrAlreadyResolved, asset)
	}
	if e.nowFn() < auction.EndTime {
		return fmt.Errorf("%w: auction ends at %d", common.ErrWindowViolation, auction.EndTime)
	}
	bid, hasBid, err := e.state.BidGet(asset)
	if err != nil {
		return err
	}
	if !hasBid || bid.Amount.Sign() == 0 {
		return fmt.Errorf("%w: no bid to settle for %s", common.ErrNotFound, asset)
	}
	if caller != auction.Seller && caller != bid.Bidder {
		return fmt.Errorf("%w: only seller or winner may result", common.ErrNotAuthorized)
	}

	fee := e.feeConfig.Snapshot()

	// Effects before interactions: mark resulted and clear the escrow record,
	// restoring both if the asset cannot be delivered.
	resulted := auction.Clone()
	resulted.Resulted = true
	if err := e.state.AuctionPut(asset, resulted); err != nil {
		return err
	}
	if err := e.state.BidDelete(asset); err != nil {
		return err
	}
	if err := e.assets.TransferFrom(asset.Contract, asset.TokenID, e.moduleAddr, auction.Seller, bid.Bidder, 1); err != nil {
		_ = e.state.AuctionPut(asset, auction)
		_ = e.state.BidPut(asset, bid)
		return fmt.Errorf("market: asset transfer failed: %w", err)
	}

	aboveReserve := new(big.Int).Sub(bid.Amount, auction.ReservePrice)
	cut, _ := fees.Split(aboveReserve, fee.RateBps)
	net := new(big.Int).Sub(bid.Amount, cut)
	if err := e.payoutFromModule(auction.PayToken, fee.Recipient, cut); err != nil {
		return err
	}
	if err := e.payoutFromModule(auction.PayToken, auction.Seller, net); err != nil {
		return err
	}

	emit(e.emitter, NewAuctionResultedEvent(asset, auction, bid.Bidder, bid.Amount.String()))
	if e.bundleHook != nil {
		if err := e.bundleHook.HandleAssetSold(e.moduleAddr, auction.Seller, asset, 1); err != nil {
			return err
		}
	}
	return nil
}

// CancelAuction withdraws the caller's auction while no bid has been placed.
// A placed bid means escrowed funds that must flow through ResultAuction, so
// cancellation is rejected from then on. Cancelling an absent auction is a
// no-op.
func (e *AuctionEngine) CancelAuction(caller [20]byte, asset AssetKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return err
	}
	auction, ok, err := e.state.AuctionGet(asset)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if caller != auction.Seller {
		return fmt.Errorf("%w: only the seller may cancel", common.ErrNotAuthorized)
	}
	if auction.Resulted {
		return fmt.Errorf("%w: auction for %s already resulted", common.ErrAlreadyResolved, asset)
	}
	_, hasBid, err := e.state.BidGet(asset)
	if err != nil {
		return err
	}
	if hasBid {
		return fmt.Errorf("%w: bid already placed for %s", common.ErrAlreadyExists, asset)
	}
	if err := e.state.AuctionDelete(asset); err != nil {
		return err
	}
	emit(e.emitter, NewAuctionCancelledEvent(asset, caller))
	return nil
}

// HighestBidOf returns the current escrowed bid for the asset's auction, if
// any.
func (e *AuctionEngine) HighestBidOf(asset AssetKey) (*HighestBid, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false, errNilState
	}
	bid, ok, err := e.state.BidGet(asset)
	if err != nil || !ok {
		return nil, false, err
	}
	return bid.Clone(), true, nil
}

func (e *AuctionEngine) payoutFromModule(token string, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return e.payments.Transfer(token, e.moduleAddr, to, amount)
}
