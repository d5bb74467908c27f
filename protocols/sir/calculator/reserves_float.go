package calculator

import (
	"fmt"

	"github.com/defistate/sir-client-go/protocols/sir"
	"github.com/defistate/sir-client-go/protocols/sir/calculator/floatmath"
	"github.com/defistate/sir-client-go/protocols/sir/calculator/tickmath"
	"github.com/holiman/uint256"
)

var (
	// log2Base is log2(1.0001), the scale between ticks and base-2 exponents.
	log2Base = mustLog2Base()

	oneX42 = uint256.NewInt(1 << 42)
)

func mustLog2Base() floatmath.Float {
	base, err := floatmath.Divu(uint256.NewInt(10001), uint256.NewInt(10000))
	if err != nil {
		panic(err)
	}
	l, err := base.Log2()
	if err != nil {
		panic(err)
	}
	return l
}

// priceRatioBelow returns 1.0001^(-diff / 2^42), the ratio between two prices
// diff ticks apart, as a value in (0, 1].
func priceRatioBelow(diff uint64) (floatmath.Float, error) {
	e, err := log2Base.MulDivu(new(uint256.Int).SetUint64(diff), oneX42)
	if err != nil {
		return floatmath.Float{}, err
	}
	return e.Neg().Pow2()
}

// leverageExponent returns l - 1 = 2^leverageTier.
func leverageExponent(leverageTier int8) (floatmath.Float, error) {
	if leverageTier >= 0 {
		return floatmath.FromUint256(new(uint256.Int).Lsh(uint256.NewInt(1), uint(leverageTier))), nil
	}
	return floatmath.Divu(uint256.NewInt(1), new(uint256.Int).Lsh(uint256.NewInt(1), uint(-leverageTier)))
}

// ceilToUint rounds a finite, non-negative x up to an integer.
func ceilToUint(x floatmath.Float) (*uint256.Int, error) {
	u, err := x.ToUint()
	if err != nil {
		return nil, err
	}
	c, err := x.Cmp(floatmath.FromUint256(u))
	if err != nil {
		return nil, err
	}
	if c > 0 {
		u.AddUint64(u, 1)
	}
	return u, nil
}

// ComputeReservesFloat evaluates the same split as ComputeReserves with the
// floating-point engine instead of the integer tick ratios. Power-zone ratios go
// through Pow, so the two paths share no arithmetic beyond the input checks and
// the clamps for prices beyond the tick range. Both sides agree to within one
// unit plus reserve/1e16 in the power zone and reserve/1e12 in the saturation zone.
func ComputeReservesFloat(leverageTier int8, state sir.VaultState, tickPriceX42 int64) (sir.Reserves, error) {
	var reserve uint256.Int
	if err := checkInputs(leverageTier, state, &reserve); err != nil {
		return sir.Reserves{}, err
	}
	if reserve.IsZero() {
		return newReserves(&reserve, &reserve), nil
	}

	one := uint256.NewInt(1)
	zone := ZoneOf(state.TickPriceSatX42, tickPriceX42)
	switch zone {
	case ZoneLPersEmpty:
		return splitLPers(&reserve, one), nil
	case ZoneApesEmpty:
		return splitApes(&reserve, one), nil
	}

	var part *uint256.Int
	var err error
	if zone == ZonePower {
		part, err = powerZoneApesFloat(leverageTier, &reserve, uint64(state.TickPriceSatX42)-uint64(tickPriceX42))
	} else {
		part, err = saturationZoneLPersFloat(leverageTier, &reserve, uint64(tickPriceX42)-uint64(state.TickPriceSatX42))
	}
	if err != nil {
		return sir.Reserves{}, fmt.Errorf("%s zone: %w", zone, err)
	}
	if part.IsZero() {
		part.SetOne()
	}
	capBelowReserve(part, &reserve)
	if zone == ZonePower {
		return splitApes(&reserve, part), nil
	}
	return splitLPers(&reserve, part), nil
}

func powerZoneApesFloat(leverageTier int8, reserve *uint256.Int, diff uint64) (*uint256.Int, error) {
	maxTick := uint64(tickmath.MaxTickX42)
	if (leverageTier >= 0 && diff > maxTick>>uint(leverageTier)) ||
		(leverageTier < 0 && diff>>uint(-leverageTier) > maxTick) {
		return uint256.NewInt(1), nil
	}

	price, err := priceRatioBelow(diff)
	if err != nil {
		return nil, err
	}
	exp, err := leverageExponent(leverageTier)
	if err != nil {
		return nil, err
	}
	// (price/priceSat)^(l-1)
	ratio, err := price.Pow(exp)
	if err != nil {
		return nil, err
	}

	var apes floatmath.Float
	if leverageTier >= 0 {
		// reserve * ratio / (1 + 2^tier)
		den := new(uint256.Int).Lsh(uint256.NewInt(1), uint(leverageTier))
		apes, err = ratio.MulDivuUp(reserve, den.AddUint64(den, 1))
	} else {
		// reserve * 2^k * ratio / (2^k + 1)
		k := uint(-leverageTier)
		num := new(uint256.Int).Lsh(reserve, k)
		den := new(uint256.Int).Lsh(uint256.NewInt(1), k)
		apes, err = ratio.MulDivuUp(num, den.AddUint64(den, 1))
	}
	if err != nil {
		return nil, err
	}
	return ceilToUint(apes)
}

func saturationZoneLPersFloat(leverageTier int8, reserve *uint256.Int, diff uint64) (*uint256.Int, error) {
	if diff > uint64(tickmath.MaxTickX42) {
		return uint256.NewInt(1), nil
	}

	// priceSat/price
	inv, err := priceRatioBelow(diff)
	if err != nil {
		return nil, err
	}

	var lpers floatmath.Float
	if leverageTier >= 0 {
		// reserve * 2^tier / (2^tier + 1) * priceSat/price
		t := uint(leverageTier)
		num := new(uint256.Int).Lsh(reserve, t)
		den := new(uint256.Int).Lsh(uint256.NewInt(1), t)
		lpers, err = inv.MulDivuUp(num, den.AddUint64(den, 1))
	} else {
		// reserve / (1 + 2^k) * priceSat/price
		den := new(uint256.Int).Lsh(uint256.NewInt(1), uint(-leverageTier))
		lpers, err = inv.MulDivuUp(reserve, den.AddUint64(den, 1))
	}
	if err != nil {
		return nil, err
	}
	return ceilToUint(lpers)
}
