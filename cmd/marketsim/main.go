package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"gavelmarket/config"
	"gavelmarket/native/fees"
	"gavelmarket/native/market"
	"gavelmarket/native/registry"
	"gavelmarket/observability"
	"gavelmarket/observability/logging"
	marketstate "gavelmarket/state/market"
	"gavelmarket/storage"
)

// marketsim wires the settlement ledgers against in-process registries and
// replays a fixed-price sale, a contested auction and a bundle sale. It doubles
// as a smoke test of the persistent store wiring.
func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	inMemory := flag.Bool("memory", false, "Use an in-memory store instead of LevelDB")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("GAVELMARKET_ENV"))
	logger := logging.Setup("marketsim", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	var db storage.Database
	if *inMemory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "market"))
		if err != nil {
			logger.Error("open database", "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	if err := run(cfg, db, logger); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("simulation complete")
}

type world struct {
	store    *marketstate.Store
	assets   *registry.AssetLedger
	payments *registry.PaymentLedger
	book     *registry.AddressBook

	listings *market.ListingLedger
	auctions *market.AuctionEngine
	bundles  *market.BundleLedger

	token string
	now   int64

	admin        [20]byte
	seller       [20]byte
	buyer        [20]byte
	rival        [20]byte
	feeCollector [20]byte
}

func run(cfg *config.Config, db storage.Database, logger *slog.Logger) error {
	w, err := buildWorld(cfg, db, logger)
	if err != nil {
		return err
	}
	if err := w.fixedPriceSale(logger); err != nil {
		return fmt.Errorf("fixed-price sale: %w", err)
	}
	if err := w.contestedAuction(logger); err != nil {
		return fmt.Errorf("auction: %w", err)
	}
	if err := w.bundleSale(logger); err != nil {
		return fmt.Errorf("bundle sale: %w", err)
	}
	return nil
}

func buildWorld(cfg *config.Config, db storage.Database, logger *slog.Logger) (*world, error) {
	w := &world{
		assets:       registry.NewAssetLedger(),
		payments:     registry.NewPaymentLedger(),
		now:          1_000,
		admin:        namedAddress("admin"),
		seller:       namedAddress("seller"),
		buyer:        namedAddress("buyer"),
		rival:        namedAddress("rival"),
		feeCollector: namedAddress("fees"),
	}
	store, err := marketstate.NewStore(db)
	if err != nil {
		return nil, err
	}
	w.store = store

	tokens, err := registry.NewTokenList(w.admin)
	if err != nil {
		return nil, err
	}
	for _, symbol := range cfg.AcceptedTokens {
		if err := tokens.Add(w.admin, symbol); err != nil {
			return nil, err
		}
	}
	normalized, err := registry.NormalizeToken(cfg.AcceptedTokens[0])
	if err != nil {
		return nil, err
	}
	w.token = normalized
	recipient := w.feeCollector
	if configured, err := cfg.FeeRecipientAddress(); err == nil && configured != ([20]byte{}) {
		recipient = configured
	}
	feeCfg, err := fees.NewConfig(w.admin, recipient, cfg.FeeRateBps)
	if err != nil {
		return nil, err
	}
	book, err := registry.NewAddressBook(w.admin)
	if err != nil {
		return nil, err
	}
	marketplaceAddr := namedAddress("module:listing")
	auctionAddr := namedAddress("module:auction")
	bundleAddr := namedAddress("module:bundle")
	if err := book.SetMarketplace(w.admin, marketplaceAddr); err != nil {
		return nil, err
	}
	if err := book.SetAuction(w.admin, auctionAddr); err != nil {
		return nil, err
	}
	if err := book.SetBundle(w.admin, bundleAddr); err != nil {
		return nil, err
	}
	w.book = book

	emitter := observability.NewObservedEmitter(nil, logger)
	nowFn := func() int64 { return w.now }

	bundles := market.NewBundleLedger()
	bundles.SetState(store)
	bundles.SetAssets(w.assets)
	bundles.SetPayments(w.payments)
	bundles.SetTokens(tokens)
	bundles.SetFeeConfig(feeCfg)
	bundles.SetDirectory(book)
	bundles.SetModuleAddress(bundleAddr)
	bundles.SetPauses(cfg.Pauses)
	bundles.SetEmitter(emitter)
	bundles.SetNowFunc(nowFn)
	w.bundles = bundles

	listings := market.NewListingLedger()
	listings.SetState(store)
	listings.SetAssets(w.assets)
	listings.SetPayments(w.payments)
	listings.SetTokens(tokens)
	listings.SetFeeConfig(feeCfg)
	listings.SetBundleHook(bundles)
	listings.SetModuleAddress(marketplaceAddr)
	listings.SetPauses(cfg.Pauses)
	listings.SetEmitter(emitter)
	listings.SetNowFunc(nowFn)
	w.listings = listings

	auctions := market.NewAuctionEngine()
	auctions.SetState(store)
	auctions.SetAssets(w.assets)
	auctions.SetPayments(w.payments)
	auctions.SetTokens(tokens)
	auctions.SetFeeConfig(feeCfg)
	auctions.SetBundleHook(bundles)
	auctions.SetModuleAddress(auctionAddr)
	auctions.SetPauses(cfg.Pauses)
	auctions.SetEmitter(emitter)
	auctions.SetNowFunc(nowFn)
	w.auctions = auctions

	return w, nil
}

func (w *world) fixedPriceSale(logger *slog.Logger) error {
	contract := namedAddress("collection:art")
	asset := market.AssetKey{Contract: contract, TokenID: 1}
	token := w.token

	if err := w.assets.Mint(contract, asset.TokenID, w.seller, 1); err != nil {
		return err
	}
	w.assets.SetApprovalForAll(contract, w.seller, w.book.Marketplace(), true)
	if err := w.listings.ListItem(w.seller, asset, 1, token, big.NewInt(20), w.now); err != nil {
		return err
	}
	if err := w.payments.Mint(token, w.buyer, big.NewInt(20)); err != nil {
		return err
	}
	if err := w.payments.Approve(token, w.buyer, w.book.Marketplace(), big.NewInt(20)); err != nil {
		return err
	}
	if err := w.listings.BuyItem(w.buyer, asset, token, w.seller); err != nil {
		return err
	}
	logger.Info("fixed-price sale settled", "asset", asset.String(), "sellerProceeds", mustBalance(w.payments, token, w.seller))
	return nil
}

func (w *world) contestedAuction(logger *slog.Logger) error {
	contract := namedAddress("collection:art")
	asset := market.AssetKey{Contract: contract, TokenID: 2}
	token := w.token
	end := w.now + 100

	if err := w.assets.Mint(contract, asset.TokenID, w.seller, 1); err != nil {
		return err
	}
	w.assets.SetApprovalForAll(contract, w.seller, w.book.Auction(), true)
	if err := w.auctions.CreateAuction(w.seller, asset, token, big.NewInt(2000), w.now, false, end); err != nil {
		return err
	}
	for _, funding := range []struct {
		account [20]byte
		amount  int64
	}{
		{w.buyer, 5000},
		{w.rival, 2500},
	} {
		if err := w.payments.Mint(token, funding.account, big.NewInt(funding.amount)); err != nil {
			return err
		}
		if err := w.payments.Approve(token, funding.account, w.book.Auction(), big.NewInt(funding.amount)); err != nil {
			return err
		}
	}
	if err := w.auctions.PlaceBid(w.buyer, asset, big.NewInt(2000)); err != nil {
		return err
	}
	if err := w.auctions.PlaceBid(w.rival, asset, big.NewInt(2500)); err != nil {
		return err
	}
	if err := w.auctions.PlaceBid(w.buyer, asset, big.NewInt(3000)); err != nil {
		return err
	}
	w.now = end
	if err := w.auctions.ResultAuction(w.seller, asset); err != nil {
		return err
	}
	logger.Info("auction settled", "asset", asset.String(), "sellerProceeds", mustBalance(w.payments, token, w.seller))
	return nil
}

func (w *world) bundleSale(logger *slog.Logger) error {
	contract := namedAddress("collection:cards")
	token := w.token
	items := []market.BundleItem{
		{Contract: contract, TokenID: 10, Quantity: 1},
		{Contract: contract, TokenID: 11, Quantity: 3},
	}
	for _, item := range items {
		if err := w.assets.Mint(item.Contract, item.TokenID, w.seller, item.Quantity); err != nil {
			return err
		}
	}
	w.assets.SetApprovalForAll(contract, w.seller, w.book.Bundle(), true)
	if err := w.bundles.ListBundle(w.seller, "starter-pack", items, token, big.NewInt(20), w.now); err != nil {
		return err
	}
	if err := w.payments.Mint(token, w.rival, big.NewInt(20)); err != nil {
		return err
	}
	if err := w.payments.Approve(token, w.rival, w.book.Bundle(), big.NewInt(20)); err != nil {
		return err
	}
	if err := w.bundles.BuyBundle(w.rival, "starter-pack", token); err != nil {
		return err
	}
	logger.Info("bundle settled", "bundle", "starter-pack", "buyer", fmt.Sprintf("%x", w.rival))
	return nil
}

func mustBalance(p *registry.PaymentLedger, token string, account [20]byte) string {
	balance, err := p.BalanceOf(token, account)
	if err != nil {
		return "?"
	}
	return balance.String()
}

// namedAddress derives a stable demo address from a label.
func namedAddress(label string) [20]byte {
	var addr [20]byte
	copy(addr[:], label)
	return addr
}
