package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/defistate/sir-client-go/protocols/sir"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// ReservesConfig is the configuration of the reserves command.
type ReservesConfig struct {
	// CrossCheck also evaluates every split with the floating-point engine.
	CrossCheck bool          `yaml:"cross_check"`
	Prices     []PriceConfig `yaml:"prices"`
	Vaults     []VaultConfig `yaml:"vaults"`
}

// PriceConfig sets the price of a collateral token in a debt token, either as
// an X42 tick or as a decimal ratio such as "1875.25".
type PriceConfig struct {
	Collateral string `yaml:"collateral"`
	Debt       string `yaml:"debt"`
	TickX42    *int64 `yaml:"tick_x42,omitempty"`
	Ratio      string `yaml:"ratio,omitempty"`
}

// VaultConfig describes a single vault. Reserve is a decimal integer and
// TickPriceSatX42 an integer or one of "-inf" and "+inf".
type VaultConfig struct {
	ID              uint64 `yaml:"id"`
	Debt            string `yaml:"debt"`
	Collateral      string `yaml:"collateral"`
	LeverageTier    int8   `yaml:"leverage_tier"`
	Reserve         string `yaml:"reserve"`
	TickPriceSatX42 string `yaml:"tick_price_sat_x42"`
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*ReservesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*ReservesConfig, error) {
	var cfg ReservesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every price and vault entry. Vaults must not share an id or
// parameters.
func (c *ReservesConfig) Validate() error {
	for i, p := range c.Prices {
		if err := p.validate(); err != nil {
			return fmt.Errorf("prices[%d]: %w", i, err)
		}
	}
	vaults, err := c.SirVaults()
	if err != nil {
		return err
	}
	if err := sir.CheckUnique(vaults); err != nil {
		return fmt.Errorf("vaults: %w", err)
	}
	return nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func (p PriceConfig) validate() error {
	if _, err := parseAddress("collateral", p.Collateral); err != nil {
		return err
	}
	if _, err := parseAddress("debt", p.Debt); err != nil {
		return err
	}
	if (p.TickX42 == nil) == (p.Ratio == "") {
		return errors.New("exactly one of tick_x42 and ratio must be set")
	}
	if p.Ratio != "" {
		if _, err := p.RatioX64(); err != nil {
			return err
		}
	}
	return nil
}

// Tokens returns the collateral and debt token addresses.
func (p PriceConfig) Tokens() (collateral, debt common.Address) {
	return common.HexToAddress(p.Collateral), common.HexToAddress(p.Debt)
}

// RatioX64 returns the decimal ratio as a Q64 fixed-point number, rounded down.
func (p PriceConfig) RatioX64() (*uint256.Int, error) {
	r, ok := new(big.Rat).SetString(p.Ratio)
	if !ok {
		return nil, fmt.Errorf("ratio: invalid number %q", p.Ratio)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("ratio: must be positive, got %q", p.Ratio)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if q.Sign() == 0 {
		return nil, fmt.Errorf("ratio: %q is below 2^-64", p.Ratio)
	}
	x, overflow := uint256.FromBig(q)
	if overflow {
		return nil, fmt.Errorf("ratio: %q is too large", p.Ratio)
	}
	return x, nil
}

// ParseTickPriceSat parses an X42 saturation tick, accepting "-inf" and "+inf"
// for the empty-side sentinels.
func ParseTickPriceSat(s string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "-inf":
		return sir.TickPriceSatNegInf, nil
	case "+inf", "inf":
		return sir.TickPriceSatPosInf, nil
	}
	tick, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tick_price_sat_x42: %w", err)
	}
	return tick, nil
}

// Vault converts the entry into a validated sir.Vault.
func (v VaultConfig) Vault() (sir.Vault, error) {
	debt, err := parseAddress("debt", v.Debt)
	if err != nil {
		return sir.Vault{}, err
	}
	collateral, err := parseAddress("collateral", v.Collateral)
	if err != nil {
		return sir.Vault{}, err
	}
	reserve, ok := new(big.Int).SetString(strings.TrimSpace(v.Reserve), 10)
	if !ok {
		return sir.Vault{}, fmt.Errorf("%w: %q", sir.ErrInvalidReserve, v.Reserve)
	}
	tickSat, err := ParseTickPriceSat(v.TickPriceSatX42)
	if err != nil {
		return sir.Vault{}, err
	}
	vault := sir.Vault{
		VaultParameters: sir.VaultParameters{
			DebtToken:       debt,
			CollateralToken: collateral,
			LeverageTier:    v.LeverageTier,
		},
		VaultState: sir.VaultState{
			Reserve:         reserve,
			TickPriceSatX42: tickSat,
			VaultID:         v.ID,
		},
	}
	if err := vault.Validate(); err != nil {
		return sir.Vault{}, err
	}
	return vault, nil
}

// SirVaults converts every vault entry.
func (c *ReservesConfig) SirVaults() ([]sir.Vault, error) {
	vaults := make([]sir.Vault, 0, len(c.Vaults))
	for i, v := range c.Vaults {
		vault, err := v.Vault()
		if err != nil {
			return nil, fmt.Errorf("vaults[%d]: %w", i, err)
		}
		vaults = append(vaults, vault)
	}
	return vaults, nil
}
