package economod

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goldvein/economod/economod/economy"
	"github.com/goldvein/economod/economod/economy/auction"
	"github.com/goldvein/economod/economod/logger"
	"github.com/goldvein/economod/economod/market"
	"github.com/goldvein/economod/economod/snapshot"
)

// Engine bundles the three economy subsystems plus their persistence. All
// host-facing operations hang off Ledger, Market, and Auctions directly; the
// engine owns wiring, restore/save, and the periodic sweeps.
type Engine struct {
	cfg Config

	Ledger   *economy.Ledger
	Market   *market.Market
	Auctions *auction.House

	store snapshot.Store
}

func NewEngine(cfg Config, store snapshot.Store) *Engine {
	ledger := economy.NewLedger(cfg.Economy.toLedgerConfig())
	mkt := market.NewMarket(cfg.Market.toMarketConfig(), ledger)
	if !cfg.Market.OpenOnStart {
		mkt.CloseMarket()
	}
	return &Engine{
		cfg:      cfg,
		Ledger:   ledger,
		Market:   mkt,
		Auctions: auction.NewHouse(ledger),
		store:    store,
	}
}

// seedStock is one default listing.
type seedStock struct {
	symbol   string
	company  string
	industry string
	price    int64
	shares   int64
}

var defaultStocks = []seedStock{
	{"ACME", "Acme Industrial", "Manufacturing", 150, 100000},
	{"FORG", "Forge & Foundry Co", "Manufacturing", 85, 150000},
	{"GEAR", "Gearworks Ltd", "Manufacturing", 45, 200000},
	{"BYTE", "ByteStream Systems", "Technology", 320, 80000},
	{"NOVA", "Nova Computing", "Technology", 210, 90000},
	{"PIXL", "Pixel Dynamics", "Technology", 95, 120000},
	{"CROP", "Golden Harvest", "Agriculture", 40, 250000},
	{"FARM", "Meadowbrook Farms", "Agriculture", 55, 180000},
	{"SEED", "Heartland Seed Co", "Agriculture", 30, 300000},
	{"VOLT", "Voltaic Energy", "Energy", 180, 110000},
	{"SOLR", "Solaris Power", "Energy", 140, 130000},
	{"FUEL", "Deepwell Fuels", "Energy", 75, 160000},
	{"BANK", "First Meridian Bank", "Finance", 260, 70000},
	{"CRED", "Credence Holdings", "Finance", 190, 85000},
	{"FUND", "Keystone Capital", "Finance", 110, 100000},
	{"MEDS", "Remedy Pharmaceuticals", "Healthcare", 230, 75000},
	{"CARE", "Clearwater Health", "Healthcare", 120, 95000},
	{"VITA", "Vitalis Labs", "Healthcare", 65, 140000},
	{"SHIP", "Blue Anchor Shipping", "Transport", 100, 125000},
	{"RAIL", "Ironline Railways", "Transport", 160, 105000},
	{"WING", "Skylark Air Freight", "Transport", 135, 90000},
}

// SeedDefaultStocks lists the built-in companies. Symbols already present
// are left untouched.
func (e *Engine) SeedDefaultStocks() {
	listed := 0
	for _, s := range defaultStocks {
		if err := e.Market.AddStock(s.symbol, s.company, s.industry, s.price, s.shares); err == nil {
			listed++
		}
	}
	logger.LogMarket("Seeded default stock listings", slog.Int("listed", listed))
}

// ExportState captures the full engine state.
func (e *Engine) ExportState() snapshot.State {
	return snapshot.State{
		Version:  snapshot.Version,
		TakenAt:  time.Now(),
		Economy:  e.Ledger.Export(),
		Market:   e.Market.Export(),
		Auctions: e.Auctions.Export(),
	}
}

// ImportState replaces the full engine state.
func (e *Engine) ImportState(state snapshot.State) {
	e.Ledger.Import(state.Economy)
	e.Market.Import(state.Market)
	e.Auctions.Import(state.Auctions)
}

// Restore loads the last snapshot from the store. A missing or corrupt
// snapshot starts the engine fresh rather than refusing to run; the default
// stocks are seeded either way when enabled.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store != nil {
		state, err := e.store.Load(ctx)
		switch {
		case err == nil:
			e.ImportState(state)
			slog.Info("Engine state restored",
				slog.String("type", "snapshot"),
				slog.Time("taken_at", state.TakenAt))
		case errors.Is(err, snapshot.ErrNotFound):
			slog.Info("No snapshot found, starting fresh", slog.String("type", "snapshot"))
		default:
			logger.LogError("Snapshot restore failed, starting fresh", err)
		}
	}
	if e.cfg.Market.SeedStocks {
		e.SeedDefaultStocks()
	}
	return nil
}

// Save writes the current state to the store.
func (e *Engine) Save(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	start := time.Now()
	err := e.store.Save(ctx, e.ExportState())
	logger.LogSweep("snapshot", time.Since(start), err)
	return err
}

// Run drives the periodic sweeps until the context is cancelled, then takes
// a final snapshot.
func (e *Engine) Run(ctx context.Context) error {
	ticks := e.cfg.Ticks
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.every(ctx, time.Duration(ticks.PriceUpdateSecs)*time.Second, func(ctx context.Context) {
			start := time.Now()
			err := e.Market.UpdateAllPrices(ctx)
			logger.LogSweep("price_update", time.Since(start), err)
		})
	})

	g.Go(func() error {
		return e.every(ctx, time.Duration(ticks.InterestHours)*time.Hour, func(ctx context.Context) {
			start := time.Now()
			e.Ledger.ApplyInterest()
			e.Ledger.ResetDailyClaims()
			logger.LogSweep("interest", time.Since(start), nil)
		})
	})

	g.Go(func() error {
		return e.every(ctx, time.Duration(ticks.DividendHours)*time.Hour, func(ctx context.Context) {
			start := time.Now()
			err := e.Market.DistributeDividends(ctx)
			logger.LogSweep("dividends", time.Since(start), err)
		})
	})

	g.Go(func() error {
		return e.every(ctx, time.Duration(ticks.AuctionSweepSecs)*time.Second, func(ctx context.Context) {
			outcomes := e.Auctions.SweepExpired()
			if len(outcomes) > 0 {
				logger.LogAuction("Settled expired auctions", slog.Int("count", len(outcomes)))
			}
		})
	})

	g.Go(func() error {
		return e.every(ctx, time.Duration(ticks.SnapshotSecs)*time.Second, func(ctx context.Context) {
			if err := e.Save(ctx); err != nil {
				logger.LogError("Periodic snapshot failed", err)
			}
		})
	})

	err := g.Wait()

	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if saveErr := e.Save(saveCtx); saveErr != nil {
		logger.LogError("Final snapshot failed", saveErr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}
