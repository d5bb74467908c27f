package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/defistate/sir-client-go/cmd/reserves/config"
	"github.com/defistate/sir-client-go/protocols/sir"
	"github.com/defistate/sir-client-go/protocols/sir/calculator"
	"github.com/defistate/sir-client-go/protocols/sir/oracle"
	"github.com/prometheus/client_golang/prometheus"
)

// splitLine is one line of output.
type splitLine struct {
	VaultID         uint64   `json:"vaultId"`
	LeverageTier    int8     `json:"leverageTier"`
	TickPriceSatX42 int64    `json:"tickPriceSatX42"`
	TickPriceX42    int64    `json:"tickPriceX42"`
	Zone            string   `json:"zone"`
	Reserve         *big.Int `json:"reserve"`
	ReserveApes     *big.Int `json:"reserveApes,omitempty"`
	ReserveLPers    *big.Int `json:"reserveLPers,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func main() {
	rootLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	close := func() {
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prices := oracle.NewStatic()
	for _, p := range cfg.Prices {
		collateral, debt := p.Tokens()
		if p.TickX42 != nil {
			err = prices.SetPrice(collateral, debt, *p.TickX42)
		} else {
			ratio, rerr := p.RatioX64()
			if rerr != nil {
				err = rerr
			} else {
				err = prices.SetPriceRatio(collateral, debt, ratio)
			}
		}
		if err != nil {
			rootLogger.Error("Failed to set price", "collateral", p.Collateral, "debt", p.Debt, "error", err)
			close()
		}
	}

	vaults, err := cfg.SirVaults()
	if err != nil {
		rootLogger.Error("Failed to read vaults", "error", err)
		close()
	}

	reserves, err := calculator.NewReserves(&calculator.Config{
		Oracle:     prices,
		Vaults:     vaults,
		Logger:     rootLogger.With("component", "reserves"),
		Registry:   prometheus.DefaultRegisterer,
		CrossCheck: cfg.CrossCheck,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize reserves", "error", err)
		close()
	}

	sort.Slice(vaults, func(i, j int) bool { return vaults[i].VaultID < vaults[j].VaultID })
	enc := json.NewEncoder(os.Stdout)
	for _, v := range vaults {
		if ctx.Err() != nil {
			return
		}
		line := splitLine{
			VaultID:         v.VaultID,
			LeverageTier:    v.LeverageTier,
			TickPriceSatX42: v.TickPriceSatX42,
			Reserve:         v.Reserve,
		}
		tick, err := prices.GetPrice(ctx, v.CollateralToken, v.DebtToken)
		if err == nil {
			line.TickPriceX42 = tick
			line.Zone = calculator.ZoneOf(v.TickPriceSatX42, tick).String()
			var split sir.Reserves
			split, err = reserves.ReservesOf(ctx, v.VaultParameters, false)
			line.ReserveApes, line.ReserveLPers = split.ReserveApes, split.ReserveLPers
		}
		if err != nil {
			line.Error = err.Error()
		}
		if err := enc.Encode(line); err != nil {
			rootLogger.Error("Failed to write output", "error", err)
			close()
		}
	}
}

func loadConfig() (*config.ReservesConfig, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadConfig(*configPath)
}
