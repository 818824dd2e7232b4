package market

import (
	"encoding/hex"
	"strconv"

	"gavelmarket/core/types"
)

const (
	EventTypeListingCreated   = "market.listing.created"
	EventTypeListingUpdated   = "market.listing.updated"
	EventTypeListingCancelled = "market.listing.cancelled"
	EventTypeListingSold      = "market.listing.sold"
	EventTypeAuctionCreated   = "market.auction.created"
	EventTypeAuctionBid       = "market.auction.bid"
	EventTypeAuctionRefund    = "market.auction.refund"
	EventTypeAuctionResulted  = "market.auction.resulted"
	EventTypeAuctionCancelled = "market.auction.cancelled"
	EventTypeBundleCreated    = "market.bundle.created"
	EventTypeBundleUpdated    = "market.bundle.updated"
	EventTypeBundleCancelled  = "market.bundle.cancelled"
	EventTypeBundleSold       = "market.bundle.sold"
)

func assetAttrs(attrs map[string]string, asset AssetKey) {
	attrs["assetContract"] = hex.EncodeToString(asset.Contract[:])
	attrs["tokenId"] = strconv.FormatUint(asset.TokenID, 10)
}

func addrAttr(attrs map[string]string, key string, addr [20]byte) {
	attrs[key] = hex.EncodeToString(addr[:])
}

// NewListingCreatedEvent returns the canonical payload for a new or
// overwritten fixed-price listing.
func NewListingCreatedEvent(asset AssetKey, l *Listing) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", l.Seller)
	attrs["quantity"] = strconv.FormatUint(l.Quantity, 10)
	attrs["payToken"] = l.PayToken
	attrs["pricePerItem"] = l.PricePerItem.String()
	attrs["startingTime"] = strconv.FormatInt(l.StartingTime, 10)
	return &types.Event{Type: EventTypeListingCreated, Attributes: attrs}
}

// NewListingUpdatedEvent returns the payload emitted when a seller changes the
// price or payment token of an unsold listing.
func NewListingUpdatedEvent(asset AssetKey, l *Listing) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", l.Seller)
	attrs["payToken"] = l.PayToken
	attrs["pricePerItem"] = l.PricePerItem.String()
	return &types.Event{Type: EventTypeListingUpdated, Attributes: attrs}
}

// NewListingCancelledEvent returns the payload emitted when a listing is
// zeroed by its seller.
func NewListingCancelledEvent(asset AssetKey, seller [20]byte) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", seller)
	return &types.Event{Type: EventTypeListingCancelled, Attributes: attrs}
}

// NewListingSoldEvent returns the payload for a completed fixed-price sale.
// The unit price attribute is reserved for an external price reference and is
// zero when no reference applies.
func NewListingSoldEvent(asset AssetKey, l *Listing, buyer [20]byte) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", l.Seller)
	addrAttr(attrs, "buyer", buyer)
	attrs["quantity"] = strconv.FormatUint(l.Quantity, 10)
	attrs["payToken"] = l.PayToken
	attrs["unitPrice"] = "0"
	attrs["pricePerItem"] = l.PricePerItem.String()
	return &types.Event{Type: EventTypeListingSold, Attributes: attrs}
}

// NewAuctionCreatedEvent returns the payload for a newly created auction.
func NewAuctionCreatedEvent(asset AssetKey, a *Auction) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", a.Seller)
	attrs["payToken"] = a.PayToken
	attrs["reservePrice"] = a.ReservePrice.String()
	attrs["startTime"] = strconv.FormatInt(a.StartTime, 10)
	attrs["endTime"] = strconv.FormatInt(a.EndTime, 10)
	return &types.Event{Type: EventTypeAuctionCreated, Attributes: attrs}
}

// NewAuctionBidEvent returns the payload for an accepted bid.
func NewAuctionBidEvent(asset AssetKey, bidder [20]byte, amount string) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "bidder", bidder)
	attrs["amount"] = amount
	return &types.Event{Type: EventTypeAuctionBid, Attributes: attrs}
}

// NewAuctionRefundEvent returns the payload emitted when an outbid bidder's
// escrow is returned in full.
func NewAuctionRefundEvent(asset AssetKey, bidder [20]byte, amount string) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "bidder", bidder)
	attrs["amount"] = amount
	return &types.Event{Type: EventTypeAuctionRefund, Attributes: attrs}
}

// NewAuctionResultedEvent returns the payload for a settled auction.
func NewAuctionResultedEvent(asset AssetKey, a *Auction, winner [20]byte, winningBid string) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", a.Seller)
	addrAttr(attrs, "winner", winner)
	attrs["payToken"] = a.PayToken
	attrs["unitPrice"] = "0"
	attrs["winningBid"] = winningBid
	return &types.Event{Type: EventTypeAuctionResulted, Attributes: attrs}
}

// NewAuctionCancelledEvent returns the payload emitted when a bid-less auction
// is withdrawn by its seller.
func NewAuctionCancelledEvent(asset AssetKey, seller [20]byte) *types.Event {
	attrs := make(map[string]string)
	assetAttrs(attrs, asset)
	addrAttr(attrs, "seller", seller)
	return &types.Event{Type: EventTypeAuctionCancelled, Attributes: attrs}
}

func bundleAttrs(b *BundleListing) map[string]string {
	attrs := make(map[string]string)
	addrAttr(attrs, "seller", b.Seller)
	attrs["bundleId"] = b.BundleID
	attrs["items"] = strconv.Itoa(len(b.Items))
	attrs["payToken"] = b.PayToken
	attrs["price"] = b.Price.String()
	return attrs
}

// NewBundleCreatedEvent returns the payload for a new bundle listing.
func NewBundleCreatedEvent(b *BundleListing) *types.Event {
	attrs := bundleAttrs(b)
	attrs["startingTime"] = strconv.FormatInt(b.StartingTime, 10)
	return &types.Event{Type: EventTypeBundleCreated, Attributes: attrs}
}

// NewBundleUpdatedEvent returns the payload emitted when a bundle's terms or
// item slots change.
func NewBundleUpdatedEvent(b *BundleListing) *types.Event {
	return &types.Event{Type: EventTypeBundleUpdated, Attributes: bundleAttrs(b)}
}

// NewBundleCancelledEvent returns the payload emitted when a bundle is
// emptied by its seller.
func NewBundleCancelledEvent(seller [20]byte, bundleID string) *types.Event {
	attrs := make(map[string]string)
	addrAttr(attrs, "seller", seller)
	attrs["bundleId"] = bundleID
	return &types.Event{Type: EventTypeBundleCancelled, Attributes: attrs}
}

// NewBundleSoldEvent returns the payload for a completed atomic bundle sale.
func NewBundleSoldEvent(b *BundleListing, buyer [20]byte) *types.Event {
	attrs := bundleAttrs(b)
	addrAttr(attrs, "buyer", buyer)
	attrs["unitPrice"] = "0"
	return &types.Event{Type: EventTypeBundleSold, Attributes: attrs}
}
