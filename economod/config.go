package economod

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/goldvein/economod/economod/database"
	"github.com/goldvein/economod/economod/economy"
	"github.com/goldvein/economod/economod/market"
	"github.com/goldvein/economod/economod/snapshot"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log      LogConfig         `toml:"log"`
	Economy  EconomyConfig     `toml:"economy"`
	Market   MarketConfig      `toml:"market"`
	Ticks    TickConfig        `toml:"ticks"`
	Snapshot SnapshotConfig    `toml:"snapshot"`
	DB       database.DBConfig `toml:"db"`
	Spaces   snapshot.S3Config `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type EconomyConfig struct {
	StartingBalance    int64   `toml:"starting_balance"`
	SavingsRate        float64 `toml:"savings_rate"`
	TransferTaxRate    float64 `toml:"transfer_tax_rate"`
	MaxLoanAmount      int64   `toml:"max_loan_amount"`
	LoanInterestRate   float64 `toml:"loan_interest_rate"`
	LoanTermDays       int     `toml:"loan_term_days"`
	DailyRewardAmount  int64   `toml:"daily_reward_amount"`
	DailyRewardEnabled bool    `toml:"daily_reward_enabled"`
	HistoryLimit       int     `toml:"history_limit"`
}

type MarketConfig struct {
	CommissionDivisor int64  `toml:"commission_divisor"`
	StampTaxDivisor   int64  `toml:"stamp_tax_divisor"`
	QuoteCacheSize    int    `toml:"quote_cache_size"`
	QuoteCacheTTLMs   int    `toml:"quote_cache_ttl_ms"`
	SeedStocks        bool   `toml:"seed_stocks"`
	OpenOnStart       bool   `toml:"open_on_start"`
}

// TickConfig sets the periodic sweep cadence, in seconds unless noted.
type TickConfig struct {
	PriceUpdateSecs  int `toml:"price_update_secs"`
	InterestHours    int `toml:"interest_hours"`
	DividendHours    int `toml:"dividend_hours"`
	AuctionSweepSecs int `toml:"auction_sweep_secs"`
	SnapshotSecs     int `toml:"snapshot_secs"`
}

// SnapshotConfig selects the persistence backend: "file", "postgres", or
// "s3".
type SnapshotConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: slog.LevelInfo, Format: "text"},
		Economy: EconomyConfig{
			StartingBalance:    100,
			SavingsRate:        0.01,
			TransferTaxRate:    0.05,
			MaxLoanAmount:      10000,
			LoanInterestRate:   0.10,
			LoanTermDays:       30,
			DailyRewardAmount:  50,
			DailyRewardEnabled: true,
			HistoryLimit:       100,
		},
		Market: MarketConfig{
			CommissionDivisor: 1000,
			StampTaxDivisor:   2000,
			QuoteCacheSize:    1024,
			QuoteCacheTTLMs:   500,
			SeedStocks:        true,
			OpenOnStart:       true,
		},
		Ticks: TickConfig{
			PriceUpdateSecs:  30,
			InterestHours:    24,
			DividendHours:    24,
			AuctionSweepSecs: 10,
			SnapshotSecs:     300,
		},
		Snapshot: SnapshotConfig{Backend: "file", Path: "economod.snapshot.json"},
	}
}

func (c EconomyConfig) toLedgerConfig() economy.Config {
	return economy.Config{
		StartingBalance:     c.StartingBalance,
		BankInterestRate:    c.SavingsRate,
		TransactionTax:      c.TransferTaxRate,
		MaxLoanAmount:       c.MaxLoanAmount,
		LoanInterestRate:    c.LoanInterestRate,
		LoanTermDays:        c.LoanTermDays,
		DailyRewardAmount:   c.DailyRewardAmount,
		DailyRewardsEnabled: c.DailyRewardEnabled,
		HistoryLimit:        c.HistoryLimit,
	}
}

func (c MarketConfig) toMarketConfig() market.Config {
	return market.Config{
		CommissionDivisor: c.CommissionDivisor,
		StampTaxDivisor:   c.StampTaxDivisor,
		QuoteCacheSize:    c.QuoteCacheSize,
		QuoteCacheTTL:     time.Duration(c.QuoteCacheTTLMs) * time.Millisecond,
	}
}
