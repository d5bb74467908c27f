package calculator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/defistate/sir-client-go/protocols/sir"
	"github.com/defistate/sir-client-go/protocols/sir/indexer"
	"github.com/defistate/sir-client-go/protocols/sir/oracle"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var ErrVaultNotFound = errors.New("vault not found")

var (
	powerZoneTolerance      = big.NewInt(1e16)
	saturationZoneTolerance = big.NewInt(1e12)
)

// Config holds the dependencies of a Reserves service.
type Config struct {
	Oracle   oracle.Oracle
	Vaults   []sir.Vault
	Logger   Logger
	Registry prometheus.Registerer
	// CrossCheck evaluates every split a second time with the floating-point
	// engine and reports disagreements beyond tolerance.
	CrossCheck bool
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *Config) validate() error {
	if c.Oracle == nil {
		return errors.New("config: Oracle cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return nil
}

// Reserves answers reserve splits for a snapshot of vaults priced by an oracle.
// It is safe for concurrent use.
type Reserves struct {
	oracle     oracle.Oracle
	logger     Logger
	metrics    *Metrics
	indexer    *indexer.Indexer
	crossCheck bool

	mu     sync.RWMutex
	vaults []sir.Vault
	index  indexer.IndexedVaultSystem
}

// NewReserves constructs a service from a configuration, returning an error if
// the config or any of its vaults is invalid.
func NewReserves(cfg *Config) (*Reserves, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r := &Reserves{
		oracle:     cfg.Oracle,
		logger:     cfg.Logger,
		metrics:    NewMetrics(cfg.Registry),
		indexer:    indexer.New(),
		crossCheck: cfg.CrossCheck,
	}
	r.index = r.indexer.Index(nil)
	if _, err := r.Update(cfg.Vaults); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return r, nil
}

// Vaults returns the current vault snapshot.
func (r *Reserves) Vaults() indexer.IndexedVaultSystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

// Update replaces the vault snapshot with vaults and returns what changed. Vaults
// must not share an id or parameters.
func (r *Reserves) Update(vaults []sir.Vault) (sir.VaultSystemDiff, error) {
	if err := sir.CheckUnique(vaults); err != nil {
		r.metrics.errors.WithLabelValues("patch").Inc()
		return sir.VaultSystemDiff{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	diff := sir.Differ(r.vaults, vaults)
	if err := r.applyLocked(diff); err != nil {
		return sir.VaultSystemDiff{}, err
	}
	return diff, nil
}

// ApplyDiff patches the current vault snapshot with diff.
func (r *Reserves) ApplyDiff(diff sir.VaultSystemDiff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(diff)
}

func (r *Reserves) applyLocked(diff sir.VaultSystemDiff) error {
	if diff.IsEmpty() {
		return nil
	}
	next, err := sir.Patcher(r.vaults, diff)
	if err != nil {
		r.metrics.errors.WithLabelValues("patch").Inc()
		return err
	}
	r.vaults = next
	r.index = r.indexer.Index(next)
	r.metrics.vaults.Set(float64(len(next)))
	r.logger.Info("Vault snapshot updated",
		"additions", len(diff.Additions),
		"updates", len(diff.Updates),
		"deletions", len(diff.Deletions),
		"vaults", len(next),
	)
	return nil
}

// ReservesOf returns the reserve split of the vault identified by params at the
// current oracle price. With refresh set the oracle state is updated first.
func (r *Reserves) ReservesOf(ctx context.Context, params sir.VaultParameters, refresh bool) (sir.Reserves, error) {
	timer := prometheus.NewTimer(r.metrics.computeDuration)
	defer timer.ObserveDuration()

	if err := params.Validate(); err != nil {
		r.metrics.errors.WithLabelValues("params").Inc()
		return sir.Reserves{}, err
	}

	vault, ok := r.Vaults().GetByParameters(params)
	if !ok {
		r.metrics.errors.WithLabelValues("lookup").Inc()
		return sir.Reserves{}, fmt.Errorf("%w: debt %s, collateral %s, tier %d",
			ErrVaultNotFound, params.DebtToken.Hex(), params.CollateralToken.Hex(), params.LeverageTier)
	}

	var tick int64
	var err error
	if refresh {
		tick, err = r.oracle.UpdateOracleState(ctx, params.CollateralToken, params.DebtToken)
	} else {
		tick, err = r.oracle.GetPrice(ctx, params.CollateralToken, params.DebtToken)
	}
	if err != nil {
		r.metrics.errors.WithLabelValues("oracle").Inc()
		return sir.Reserves{}, fmt.Errorf("oracle: %w", err)
	}

	reserves, err := ComputeReserves(params.LeverageTier, vault.VaultState, tick)
	if err != nil {
		r.metrics.errors.WithLabelValues("compute").Inc()
		r.logger.Error("Failed to compute reserves", "vaultID", vault.VaultID, "error", err)
		return sir.Reserves{}, err
	}

	zone := ZoneOf(vault.TickPriceSatX42, tick)
	r.metrics.computed.WithLabelValues(zone.String()).Inc()
	if r.crossCheck {
		r.checkAgainstFloat(vault, tick, zone, reserves)
	}

	r.logger.Debug("Computed reserves",
		"vaultID", vault.VaultID,
		"zone", zone.String(),
		"tickPriceX42", tick,
		"reserveApes", reserves.ReserveApes,
		"reserveLPers", reserves.ReserveLPers,
	)
	return reserves, nil
}

func (r *Reserves) checkAgainstFloat(vault sir.Vault, tick int64, zone Zone, reserves sir.Reserves) {
	ref, err := ComputeReservesFloat(vault.LeverageTier, vault.VaultState, tick)
	if err != nil {
		r.metrics.crossCheckFailed.Inc()
		r.logger.Warn("Floating-point evaluation failed", "vaultID", vault.VaultID, "error", err)
		return
	}
	if !withinTolerance(zone, vault.Reserve, reserves.ReserveApes, ref.ReserveApes) {
		r.metrics.crossCheckFailed.Inc()
		r.logger.Warn("Reserve split disagrees with floating-point evaluation",
			"vaultID", vault.VaultID,
			"zone", zone.String(),
			"reserveApes", reserves.ReserveApes,
			"floatReserveApes", ref.ReserveApes,
		)
	}
}

// withinTolerance reports whether two evaluations of the apes reserve agree to
// within one unit plus the zone's share of the reserve.
func withinTolerance(zone Zone, reserve, a, b *big.Int) bool {
	tolerance := new(big.Int)
	switch zone {
	case ZonePower:
		tolerance.Quo(reserve, powerZoneTolerance)
	case ZoneSaturation:
		tolerance.Quo(reserve, saturationZoneTolerance)
	}
	tolerance.Add(tolerance, big.NewInt(1))
	diff := new(big.Int).Sub(a, b)
	return diff.CmpAbs(tolerance) <= 0
}
