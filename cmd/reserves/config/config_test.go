package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/defistate/sir-client-go/protocols/sir"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
cross_check: true
prices:
  - collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    ratio: "2.5"
  - collateral: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    tick_x42: -1024
vaults:
  - id: 1
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    leverage_tier: -2
    reserve: "1000000000000000000000"
    tick_price_sat_x42: "1125899906842624"
  - id: 2
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"
    leverage_tier: 2
    reserve: "42"
    tick_price_sat_x42: "+inf"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.CrossCheck)
	require.Len(t, cfg.Prices, 2)
	require.Len(t, cfg.Vaults, 2)

	ratio, err := cfg.Prices[0].RatioX64()
	require.NoError(t, err)
	want := new(uint256.Int).Lsh(uint256.NewInt(5), 63)
	assert.Equal(t, want, ratio)
	require.NotNil(t, cfg.Prices[1].TickX42)
	assert.Equal(t, int64(-1024), *cfg.Prices[1].TickX42)

	vaults, err := cfg.SirVaults()
	require.NoError(t, err)
	assert.Equal(t, int8(-2), vaults[0].LeverageTier)
	assert.Equal(t, "1000000000000000000000", vaults[0].Reserve.String())
	assert.Equal(t, int64(1<<50), vaults[0].TickPriceSatX42)
	assert.Equal(t, sir.TickPriceSatPosInf, vaults[1].TickPriceSatX42)
	assert.Equal(t, big.NewInt(42), vaults[1].Reserve)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{
			name: "malformed yaml",
			yaml: "vaults: [",
		},
		{
			name: "price with both tick and ratio",
			yaml: `
prices:
  - collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    tick_x42: 1
    ratio: "1"
`,
		},
		{
			name: "negative ratio",
			yaml: `
prices:
  - collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    ratio: "-3"
`,
		},
		{
			name: "bad address",
			yaml: `
prices:
  - collateral: "weth"
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    tick_x42: 1
`,
		},
		{
			name: "unsupported tier",
			yaml: `
vaults:
  - id: 1
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    leverage_tier: 5
    reserve: "1"
    tick_price_sat_x42: "0"
`,
		},
		{
			name: "bad reserve",
			yaml: `
vaults:
  - id: 1
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    reserve: "1e18"
    tick_price_sat_x42: "0"
`,
		},
		{
			name: "duplicate vault id",
			yaml: `
vaults:
  - id: 1
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    reserve: "1"
    tick_price_sat_x42: "0"
  - id: 1
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    leverage_tier: 1
    reserve: "1"
    tick_price_sat_x42: "0"
`,
		},
		{
			name: "ratio below the Q64 resolution",
			yaml: `
prices:
  - collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    ratio: "0.00000000000000000001"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_DuplicateVaultParameters(t *testing.T) {
	_, err := Parse([]byte(`
vaults:
  - id: 1
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    leverage_tier: 1
    reserve: "1000"
    tick_price_sat_x42: "0"
  - id: 2
    debt: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    collateral: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
    leverage_tier: 1
    reserve: "5000"
    tick_price_sat_x42: "7"
`))
	assert.ErrorIs(t, err, sir.ErrDuplicateVault)
}

func TestRatioX64(t *testing.T) {
	p := PriceConfig{Ratio: "0.00000000000000000001"}
	_, err := p.RatioX64()
	assert.ErrorContains(t, err, "below 2^-64")

	// 2^-64 itself is the smallest representable ratio.
	p.Ratio = "1/18446744073709551616"
	x, err := p.RatioX64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), x.Uint64())
}

func TestParseTickPriceSat(t *testing.T) {
	tick, err := ParseTickPriceSat("-inf")
	require.NoError(t, err)
	assert.Equal(t, sir.TickPriceSatNegInf, tick)

	tick, err = ParseTickPriceSat(" INF ")
	require.NoError(t, err)
	assert.Equal(t, sir.TickPriceSatPosInf, tick)

	tick, err = ParseTickPriceSat("-17")
	require.NoError(t, err)
	assert.Equal(t, int64(-17), tick)

	_, err = ParseTickPriceSat("sat")
	assert.Error(t, err)
}
