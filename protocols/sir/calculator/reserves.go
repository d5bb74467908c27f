package calculator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/defistate/sir-client-go/protocols/sir"
	"github.com/defistate/sir-client-go/protocols/sir/calculator/tickmath"
	"github.com/holiman/uint256"
)

var (
	ErrVaultDoesNotExist = errors.New("vault does not exist")
	ErrInvalidReserve    = sir.ErrInvalidReserve
)

// Zone is the price regime a vault is in.
type Zone int

const (
	// ZonePower is below the saturation price: apes hold a leveraged position.
	ZonePower Zone = iota
	// ZoneSaturation is at or above the saturation price: LPers are pegged to the debt token.
	ZoneSaturation
	// ZoneLPersEmpty is the -inf saturation sentinel.
	ZoneLPersEmpty
	// ZoneApesEmpty is the +inf saturation sentinel.
	ZoneApesEmpty
)

func (z Zone) String() string {
	switch z {
	case ZonePower:
		return "power"
	case ZoneSaturation:
		return "saturation"
	case ZoneLPersEmpty:
		return "lpers_empty"
	case ZoneApesEmpty:
		return "apes_empty"
	}
	return fmt.Sprintf("zone(%d)", int(z))
}

// ZoneOf returns the zone of a vault whose saturation tick is tickPriceSatX42
// when the price is at tickPriceX42.
func ZoneOf(tickPriceSatX42, tickPriceX42 int64) Zone {
	switch {
	case tickPriceSatX42 == sir.TickPriceSatNegInf:
		return ZoneLPersEmpty
	case tickPriceSatX42 == sir.TickPriceSatPosInf:
		return ZoneApesEmpty
	case tickPriceX42 < tickPriceSatX42:
		return ZonePower
	}
	return ZoneSaturation
}

// reservesScratch holds the intermediates of a single split.
type reservesScratch struct {
	reserve uint256.Int
	ratio   uint256.Int
	num     uint256.Int
	den     uint256.Int
	rem     uint256.Int
	part    uint256.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return new(reservesScratch)
	},
}

// checkInputs validates everything ComputeReserves and ComputeReservesFloat
// accept and returns the reserve as a uint256.
func checkInputs(leverageTier int8, state sir.VaultState, dest *uint256.Int) error {
	if state.VaultID == 0 {
		return ErrVaultDoesNotExist
	}
	if err := (sir.VaultParameters{LeverageTier: leverageTier}).Validate(); err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}
	dest.SetFromBig(state.Reserve)
	return nil
}

// ComputeReserves splits the reserve of a vault between apes and LPers at the
// price tickPriceX42. Below the saturation tick apes get
//
//	reserve / (l * (priceSat/price)^(l-1))
//
// with l = 1 + 2^leverageTier, and at or above it LPers get
//
//	reserve * (l-1) / (l * price/priceSat).
//
// The closed-form side is rounded up and the other side gets the remainder, so
// the two always add up to the reserve. For reserves of 2 or more each side gets
// at least 1.
func ComputeReserves(leverageTier int8, state sir.VaultState, tickPriceX42 int64) (sir.Reserves, error) {
	s := scratchPool.Get().(*reservesScratch)
	defer scratchPool.Put(s)

	if err := checkInputs(leverageTier, state, &s.reserve); err != nil {
		return sir.Reserves{}, err
	}
	if s.reserve.IsZero() {
		return newReserves(&s.reserve, &s.reserve), nil
	}

	zone := ZoneOf(state.TickPriceSatX42, tickPriceX42)
	switch zone {
	case ZoneLPersEmpty:
		s.part.SetOne()
		return splitLPers(&s.reserve, &s.part), nil
	case ZoneApesEmpty:
		s.part.SetOne()
		return splitApes(&s.reserve, &s.part), nil
	}

	var err error
	if zone == ZonePower {
		err = s.powerZoneApes(leverageTier, uint64(state.TickPriceSatX42)-uint64(tickPriceX42))
	} else {
		err = s.saturationZoneLPers(leverageTier, uint64(tickPriceX42)-uint64(state.TickPriceSatX42))
	}
	if err != nil {
		return sir.Reserves{}, err
	}
	capBelowReserve(&s.part, &s.reserve)
	if zone == ZonePower {
		return splitApes(&s.reserve, &s.part), nil
	}
	return splitLPers(&s.reserve, &s.part), nil
}

// powerZoneApes sets s.part to the apes reserve for a price diff ticks below saturation.
func (s *reservesScratch) powerZoneApes(leverageTier int8, diff uint64) error {
	// The ratio is (priceSat/price)^(l-1), whose tick is diff * 2^leverageTier.
	maxTick := uint64(tickmath.MaxTickX42)
	var powered uint64
	if leverageTier >= 0 {
		if diff > maxTick>>uint(leverageTier) {
			s.part.SetOne()
			return nil
		}
		powered = diff << uint(leverageTier)
	} else {
		powered = diff >> uint(-leverageTier)
		if powered > maxTick {
			s.part.SetOne()
			return nil
		}
	}
	if err := tickmath.GetRatioAtTick(&s.ratio, int64(powered)); err != nil {
		return err
	}

	if leverageTier >= 0 {
		// reserve * 2^64 / (ratio * (1 + 2^tier))
		s.num.Lsh(&s.reserve, 64)
		s.den.Lsh(&s.ratio, uint(leverageTier))
		s.den.Add(&s.den, &s.ratio)
	} else {
		// reserve * 2^(64+k) / (ratio * (2^k + 1)) with k = -tier
		k := uint(-leverageTier)
		s.num.Lsh(&s.reserve, 64+k)
		s.den.Lsh(&s.ratio, k)
		s.den.Add(&s.den, &s.ratio)
	}
	s.divUp()
	return nil
}

// saturationZoneLPers sets s.part to the LPers reserve for a price diff ticks above saturation.
func (s *reservesScratch) saturationZoneLPers(leverageTier int8, diff uint64) error {
	if diff > uint64(tickmath.MaxTickX42) {
		s.part.SetOne()
		return nil
	}
	if err := tickmath.GetRatioAtTick(&s.ratio, int64(diff)); err != nil {
		return err
	}

	if leverageTier >= 0 {
		// reserve * 2^(64+tier) / (ratio * (2^tier + 1))
		t := uint(leverageTier)
		s.num.Lsh(&s.reserve, 64+t)
		s.den.Lsh(&s.ratio, t)
		s.den.Add(&s.den, &s.ratio)
	} else {
		// reserve * 2^64 / (ratio * (1 + 2^k)) with k = -tier
		s.num.Lsh(&s.reserve, 64)
		s.den.Lsh(&s.ratio, uint(-leverageTier))
		s.den.Add(&s.den, &s.ratio)
	}
	s.divUp()
	return nil
}

// divUp sets s.part to ceil(s.num / s.den).
func (s *reservesScratch) divUp() {
	s.part.DivMod(&s.num, &s.den, &s.rem)
	if !s.rem.IsZero() {
		s.part.AddUint64(&s.part, 1)
	}
}

// capBelowReserve keeps part at most reserve-1 so the other side is never empty.
func capBelowReserve(part, reserve *uint256.Int) {
	if part.Lt(reserve) {
		return
	}
	part.SubUint64(reserve, 1)
}

func newReserves(apes, lpers *uint256.Int) sir.Reserves {
	return sir.Reserves{
		ReserveApes:  apes.ToBig(),
		ReserveLPers: lpers.ToBig(),
	}
}

func splitApes(reserve, apes *uint256.Int) sir.Reserves {
	var lpers uint256.Int
	lpers.Sub(reserve, apes)
	return newReserves(apes, &lpers)
}

func splitLPers(reserve, lpers *uint256.Int) sir.Reserves {
	var apes uint256.Int
	apes.Sub(reserve, lpers)
	return newReserves(&apes, lpers)
}
