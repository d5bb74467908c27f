package sir

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MinLeverageTier and MaxLeverageTier bound the tiers a vault can be created with.
	// A tier t gives a leverage ratio of 1 + 2^t.
	MinLeverageTier = int8(-4)
	MaxLeverageTier = int8(2)

	// TickPriceSatNegInf marks a vault whose LPers reserve is empty.
	TickPriceSatNegInf = int64(math.MinInt64)
	// TickPriceSatPosInf marks a vault whose apes reserve is empty.
	TickPriceSatPosInf = int64(math.MaxInt64)

	// ReserveBits is the width of a vault reserve.
	ReserveBits = 144
	// VaultIDBits is the width of a vault id.
	VaultIDBits = 48
)

var (
	ErrInvalidLeverageTier = errors.New("invalid leverage tier")
	ErrInvalidVaultID      = errors.New("invalid vault id")
	ErrInvalidReserve      = errors.New("invalid reserve")
	ErrDuplicateVault      = errors.New("duplicate vault")
)

// VaultParameters uniquely identify a vault.
type VaultParameters struct {
	DebtToken       common.Address `json:"debtToken"`
	CollateralToken common.Address `json:"collateralToken"`
	LeverageTier    int8           `json:"leverageTier"`
}

// Validate checks that the leverage tier is supported.
func (p VaultParameters) Validate() error {
	if p.LeverageTier < MinLeverageTier || p.LeverageTier > MaxLeverageTier {
		return fmt.Errorf("%w: %d", ErrInvalidLeverageTier, p.LeverageTier)
	}
	return nil
}

// VaultState is the part of a vault that changes with mints and burns.
// A VaultID of zero means the vault has not been initialized.
type VaultState struct {
	Reserve         *big.Int `json:"reserve"`
	TickPriceSatX42 int64    `json:"tickPriceSatX42"`
	VaultID         uint64   `json:"vaultId"`
}

// Validate checks the reserve and the vault id fit their on-chain widths.
func (s VaultState) Validate() error {
	if s.VaultID >= 1<<VaultIDBits {
		return fmt.Errorf("%w: %d", ErrInvalidVaultID, s.VaultID)
	}
	if s.Reserve == nil || s.Reserve.Sign() < 0 || s.Reserve.BitLen() > ReserveBits {
		return fmt.Errorf("%w: %v", ErrInvalidReserve, s.Reserve)
	}
	return nil
}

// Vault is the full view of a single vault.
type Vault struct {
	VaultParameters `json:",inline"`
	VaultState      `json:",inline"`
}

// ID returns the vault id.
func (v Vault) ID() uint64 {
	return v.VaultID
}

// Validate checks both the parameters and the state of the vault.
func (v Vault) Validate() error {
	if err := v.VaultParameters.Validate(); err != nil {
		return err
	}
	return v.VaultState.Validate()
}

// Reserves is the split of a vault reserve between leveraged (apes) and
// liquidity (LPers) holders. The two always add up to the vault reserve.
type Reserves struct {
	ReserveApes  *big.Int `json:"reserveApes"`
	ReserveLPers *big.Int `json:"reserveLPers"`
}

// CheckUnique reports an ErrDuplicateVault if two vaults share an id or the same
// (debt token, collateral token, leverage tier).
func CheckUnique(vaults []Vault) error {
	byID := make(map[uint64]struct{}, len(vaults))
	byParams := make(map[VaultParameters]uint64, len(vaults))
	for _, v := range vaults {
		if _, dup := byID[v.VaultID]; dup {
			return fmt.Errorf("%w: id %d", ErrDuplicateVault, v.VaultID)
		}
		byID[v.VaultID] = struct{}{}
		if other, dup := byParams[v.VaultParameters]; dup {
			return fmt.Errorf("%w: vaults %d and %d share debt %s, collateral %s, tier %d",
				ErrDuplicateVault, other, v.VaultID, v.DebtToken.Hex(), v.CollateralToken.Hex(), v.LeverageTier)
		}
		byParams[v.VaultParameters] = v.VaultID
	}
	return nil
}
