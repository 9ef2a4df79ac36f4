package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopd/internal/economy"
	"shopd/internal/inventory"
	"shopd/internal/limits"
	"shopd/internal/reset"
	"shopd/internal/shop"
	"shopd/internal/stock"
)

func testShop(t *testing.T, mutate func(*shop.Definition)) *shop.Definition {
	t.Helper()
	d := &shop.Definition{
		ID:       "market",
		Name:     "Market",
		Currency: shop.CurrencyPoints,
		Timezone: "UTC",
		Items: []shop.ItemConfig{
			{
				ItemID: "bread",
				Strategy: shop.PriceStrategy{
					PriceBuy: 100, BuyMin: 100, BuyMax: 200,
					PriceSell: 50, SellMin: 25, SellMax: 75,
					StockMax: 25, Step: 0.2,
				},
			},
		},
	}
	if mutate != nil {
		mutate(d)
	}
	if err := d.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return d
}

func newTestEngine(t *testing.T, def *shop.Definition, inv inventory.Port) *Engine {
	t.Helper()
	catalog, err := shop.NewCatalog([]*shop.Definition{def})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if inv == nil {
		inv = inventory.NewMemory(36, 64)
	}
	return &Engine{
		Catalog:   catalog,
		Ledger:    stock.NewLedger(),
		Limits:    limits.NewTracker(),
		Resets:    reset.NewScheduler(),
		Economy:   economy.NewResolver(nil),
		Inventory: inv,
	}
}

func fund(t *testing.T, e *Engine, def *shop.Definition, player string, amount int64) economy.Provider {
	t.Helper()
	provider := e.Economy.Resolve(def)
	if provider == nil {
		t.Fatal("no provider for test shop")
	}
	if err := provider.Deposit(context.Background(), player, decimal.NewFromInt(amount)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return provider
}

func balance(t *testing.T, p economy.Provider, player string) string {
	t.Helper()
	b, err := p.Balance(context.Background(), player)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return b.String()
}

func TestBuySuccess(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	e.Ledger.Restore([]stock.Entry{{ShopID: "market", ItemIndex: 0, Stock: 20}})
	provider := fund(t, e, def, "alice", 150)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
	if res.UnitPrice.String() != "120" || res.Total.String() != "120" || res.Amount != 1 {
		t.Fatalf("result = %+v, want unit 120 total 120 amount 1", res)
	}
	if got := balance(t, provider, "alice"); got != "30" {
		t.Fatalf("balance = %s, want 30", got)
	}
	if got := e.Ledger.Get("market", 0, 25); got != 19 {
		t.Fatalf("stock = %d, want 19", got)
	}
	if got := e.Inventory.CountHeld("alice", "bread"); got != 1 {
		t.Fatalf("held = %d, want 1", got)
	}
}

func TestBuyInsufficientFunds(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	e.Ledger.Restore([]stock.Entry{{ShopID: "market", ItemIndex: 0, Stock: 20}})
	provider := fund(t, e, def, "alice", 100)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeInsufficientFunds {
		t.Fatalf("outcome = %s, want insufficient_funds", res.Outcome)
	}
	if got := balance(t, provider, "alice"); got != "100" {
		t.Fatalf("balance = %s, want 100 untouched", got)
	}
	if got := e.Ledger.Get("market", 0, 25); got != 20 {
		t.Fatalf("stock = %d, want 20 untouched", got)
	}
}

func TestBuyInsufficientStock(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	provider := fund(t, e, def, "alice", 100000)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 30)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeInsufficientStock {
		t.Fatalf("outcome = %s, want insufficient_stock", res.Outcome)
	}
	if got := balance(t, provider, "alice"); got != "100000" {
		t.Fatalf("balance = %s, want untouched", got)
	}
}

func TestBuyRespectsPlayerLimit(t *testing.T) {
	def := testShop(t, func(d *shop.Definition) {
		d.Items[0].LimitPerPlayer = 2
	})
	e := newTestEngine(t, def, nil)
	fund(t, e, def, "alice", 1000)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 2)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success at exact limit", res.Outcome)
	}

	res, err = e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeLimitReached {
		t.Fatalf("outcome = %s, want limit_reached", res.Outcome)
	}

	// Another player is unaffected.
	fund(t, e, def, "bob", 1000)
	res, err = e.Buy(context.Background(), "market", 0, "bob", 2)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("bob outcome = %s, want success", res.Outcome)
	}
}

func TestBuyInventoryFullRefunds(t *testing.T) {
	def := testShop(t, nil)
	inv := inventory.NewMemory(1, 4)
	e := newTestEngine(t, def, inv)
	provider := fund(t, e, def, "alice", 1000)
	inv.Grant("alice", "bread", 4)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeInventoryFull {
		t.Fatalf("outcome = %s, want inventory_full", res.Outcome)
	}
	if got := balance(t, provider, "alice"); got != "1000" {
		t.Fatalf("balance = %s, want full refund to 1000", got)
	}
	if got := e.Ledger.Get("market", 0, 25); got != 25 {
		t.Fatalf("stock = %d, want 25 untouched", got)
	}
}

func TestBuyPartialGrantRefundsRemainder(t *testing.T) {
	def := testShop(t, nil)
	inv := inventory.NewMemory(1, 4)
	e := newTestEngine(t, def, inv)
	e.Ledger.Restore([]stock.Entry{{ShopID: "market", ItemIndex: 0, Stock: 20}})
	provider := fund(t, e, def, "alice", 1500)

	// Unit price 120, only 4 of the 10 fit: pay 480, refund 720.
	res, err := e.Buy(context.Background(), "market", 0, "alice", 10)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
	if res.Amount != 4 || res.Total.String() != "480" {
		t.Fatalf("result = %+v, want amount 4 total 480", res)
	}
	if got := balance(t, provider, "alice"); got != "1020" {
		t.Fatalf("balance = %s, want 1020", got)
	}
	if got := e.Ledger.Get("market", 0, 25); got != 16 {
		t.Fatalf("stock = %d, want 16", got)
	}
}

// drainingInventory empties the stock ledger during Grant, forcing the
// ledger debit after withdraw and grant to fail.
type drainingInventory struct {
	inner    *inventory.Memory
	ledger   *stock.Ledger
	strategy shop.PriceStrategy
	drained  bool
}

func (d *drainingInventory) Grant(playerID, itemID string, amount int) int {
	leftover := d.inner.Grant(playerID, itemID, amount)
	if !d.drained {
		d.drained = true
		current := d.ledger.Get("market", 0, d.strategy.StockMax)
		if _, err := d.ledger.Buy("market", 0, current, d.strategy); err != nil {
			panic(err)
		}
	}
	return leftover
}

func (d *drainingInventory) HasAtLeast(playerID, itemID string, amount int) bool {
	return d.inner.HasAtLeast(playerID, itemID, amount)
}

func (d *drainingInventory) Remove(playerID, itemID string, amount int) {
	d.inner.Remove(playerID, itemID, amount)
}

func (d *drainingInventory) CountHeld(playerID, itemID string) int {
	return d.inner.CountHeld(playerID, itemID)
}

func TestBuyCompensatesWhenStockDrainsMidTransaction(t *testing.T) {
	def := testShop(t, nil)
	inv := &drainingInventory{
		inner:    inventory.NewMemory(36, 64),
		strategy: def.Items[0].Strategy,
	}
	e := newTestEngine(t, def, inv)
	inv.ledger = e.Ledger
	provider := fund(t, e, def, "alice", 1000)

	// Stock vanishes between the price snapshot and the ledger debit:
	// the charge must come back and the granted goods must be revoked.
	res, err := e.Buy(context.Background(), "market", 0, "alice", 2)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeInsufficientStock {
		t.Fatalf("outcome = %s, want insufficient_stock", res.Outcome)
	}
	if got := balance(t, provider, "alice"); got != "1000" {
		t.Fatalf("balance = %s, want 1000 fully refunded", got)
	}
	if got := inv.CountHeld("alice", "bread"); got != 0 {
		t.Fatalf("held = %d, want 0 after revoke", got)
	}
}

func TestBuyAppliesTaxes(t *testing.T) {
	def := testShop(t, func(d *shop.Definition) {
		d.Taxes = 5
	})
	e := newTestEngine(t, def, nil)
	provider := fund(t, e, def, "alice", 150)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
	if res.Total.String() != "105" {
		t.Fatalf("total = %s, want 105 with 5%% tax on base 100", res.Total)
	}
	if got := balance(t, provider, "alice"); got != "45" {
		t.Fatalf("balance = %s, want 45", got)
	}
}

func TestBuyWithoutCurrencyProvider(t *testing.T) {
	// Wallet currency with no repository behind the resolver.
	def := testShop(t, func(d *shop.Definition) {
		d.Currency = shop.CurrencyWallet
	})
	e := newTestEngine(t, def, nil)

	res, err := e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeNoCurrencyProvider {
		t.Fatalf("outcome = %s, want no_currency_provider", res.Outcome)
	}
}

func TestBuyRejectsNonPositiveAmount(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	if _, err := e.Buy(context.Background(), "market", 0, "alice", 0); err == nil {
		t.Fatal("expected error for amount 0")
	}
	if _, err := e.Buy(context.Background(), "market", 0, "alice", -3); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestSellSuccess(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	e.Ledger.Restore([]stock.Entry{{ShopID: "market", ItemIndex: 0, Stock: 20}})
	provider := fund(t, e, def, "alice", 0)
	e.Inventory.Grant("alice", "bread", 3)

	// Sell price at stock 20 is 50 + 25*0.2 = 55.
	res, err := e.Sell(context.Background(), "market", 0, "alice", 2)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
	if res.UnitPrice.String() != "55" || res.Total.String() != "110" || res.Amount != 2 {
		t.Fatalf("result = %+v, want unit 55 total 110 amount 2", res)
	}
	if got := balance(t, provider, "alice"); got != "110" {
		t.Fatalf("balance = %s, want 110", got)
	}
	if got := e.Ledger.Get("market", 0, 25); got != 22 {
		t.Fatalf("stock = %d, want 22", got)
	}
	if got := e.Inventory.CountHeld("alice", "bread"); got != 1 {
		t.Fatalf("held = %d, want 1", got)
	}
}

func TestSellNotSellable(t *testing.T) {
	def := testShop(t, func(d *shop.Definition) {
		d.Items[0].Strategy.PriceSell = 0
		d.Items[0].Strategy.SellMin = 0
		d.Items[0].Strategy.SellMax = 0
	})
	e := newTestEngine(t, def, nil)
	e.Inventory.Grant("alice", "bread", 3)

	res, err := e.Sell(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if res.Outcome != OutcomeNotSellable {
		t.Fatalf("outcome = %s, want not_sellable", res.Outcome)
	}
	if got := e.Inventory.CountHeld("alice", "bread"); got != 3 {
		t.Fatalf("held = %d, want 3 untouched", got)
	}
}

func TestSellInsufficientItems(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	e.Inventory.Grant("alice", "bread", 1)

	res, err := e.Sell(context.Background(), "market", 0, "alice", 2)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if res.Outcome != OutcomeInsufficientItems {
		t.Fatalf("outcome = %s, want insufficient_items", res.Outcome)
	}
}

func TestSellAll(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)
	provider := fund(t, e, def, "alice", 0)
	e.Inventory.Grant("alice", "bread", 7)

	res, err := e.SellAll(context.Background(), "market", 0, "alice")
	if err != nil {
		t.Fatalf("SellAll: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.Amount != 7 {
		t.Fatalf("result = %+v, want success amount 7", res)
	}
	if got := e.Inventory.CountHeld("alice", "bread"); got != 0 {
		t.Fatalf("held = %d, want 0", got)
	}
	if balance(t, provider, "alice") == "0" {
		t.Fatal("balance should have grown")
	}

	// Nothing left to sell.
	res, err = e.SellAll(context.Background(), "market", 0, "alice")
	if err != nil {
		t.Fatalf("SellAll: %v", err)
	}
	if res.Outcome != OutcomeInsufficientItems {
		t.Fatalf("outcome = %s, want insufficient_items", res.Outcome)
	}
}

func TestResetRestoresStockAndClearsLimits(t *testing.T) {
	def := testShop(t, func(d *shop.Definition) {
		d.ResetPolicy = shop.ResetInterval
		d.ResetIntervalSeconds = 60
		d.Items[0].LimitPerPlayer = 1
	})
	e := newTestEngine(t, def, nil)
	fund(t, e, def, "alice", 10000)

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }

	res, err := e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}

	res, err = e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeLimitReached {
		t.Fatalf("outcome = %s, want limit_reached before reset", res.Outcome)
	}

	now = now.Add(61 * time.Second)
	res, err = e.Buy(context.Background(), "market", 0, "alice", 1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success after reset", res.Outcome)
	}
	// Stock was restored to max before the post-reset purchase.
	if got := e.Ledger.Get("market", 0, 25); got != 24 {
		t.Fatalf("stock = %d, want 24", got)
	}
}

func TestSweepResetsFiresWithoutTraffic(t *testing.T) {
	def := testShop(t, func(d *shop.Definition) {
		d.ResetPolicy = shop.ResetInterval
		d.ResetIntervalSeconds = 60
	})
	e := newTestEngine(t, def, nil)
	fund(t, e, def, "alice", 10000)

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }

	e.SweepResets() // schedules
	if _, err := e.Buy(context.Background(), "market", 0, "alice", 5); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if got := e.Ledger.Get("market", 0, 25); got != 20 {
		t.Fatalf("stock = %d, want 20", got)
	}

	now = now.Add(61 * time.Second)
	e.SweepResets()
	if got := e.Ledger.Get("market", 0, 25); got != 25 {
		t.Fatalf("stock = %d, want 25 after sweep", got)
	}
}

func TestUnknownShopAndItem(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)

	_, err := e.Buy(context.Background(), "nope", 0, "alice", 1)
	if !errors.Is(err, ErrUnknownShop) {
		t.Fatalf("err = %v, want ErrUnknownShop", err)
	}
	_, err = e.Buy(context.Background(), "market", 9, "alice", 1)
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("err = %v, want ErrUnknownItem", err)
	}
	_, err = e.GetQuote("nope", 0, "alice")
	if !errors.Is(err, ErrUnknownShop) {
		t.Fatalf("quote err = %v, want ErrUnknownShop", err)
	}
}

func TestGetQuote(t *testing.T) {
	def := testShop(t, func(d *shop.Definition) {
		d.Items[0].LimitPerPlayer = 5
	})
	e := newTestEngine(t, def, nil)
	fund(t, e, def, "alice", 10000)

	if _, err := e.Buy(context.Background(), "market", 0, "alice", 2); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	q, err := e.GetQuote("market", 0, "alice")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Stock != 23 {
		t.Fatalf("stock = %d, want 23", q.Stock)
	}
	if q.RemainingLimit != 3 {
		t.Fatalf("remaining limit = %d, want 3", q.RemainingLimit)
	}
	if q.NextResetIn >= 0 {
		t.Fatalf("next reset = %s, want negative for policy none", q.NextResetIn)
	}
	if q.BuyUnitPrice.String() != "100" {
		t.Fatalf("buy price = %s, want 100 (within the first tier)", q.BuyUnitPrice)
	}
}

func TestGetQuoteUnlimited(t *testing.T) {
	def := testShop(t, nil)
	e := newTestEngine(t, def, nil)

	q, err := e.GetQuote("market", 0, "alice")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.RemainingLimit != limits.Unlimited {
		t.Fatalf("remaining limit = %d, want Unlimited", q.RemainingLimit)
	}
}
