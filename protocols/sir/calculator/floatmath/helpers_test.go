package floatmath

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// pow2Big returns 2^n as a big.Int.
func pow2Big(n uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), n)
}

func mustUint(t *testing.T, u uint64) Float {
	t.Helper()
	f, err := FromUint(new(big.Int).SetUint64(u))
	require.NoError(t, err)
	return f
}

// toBigFloat returns the exact value of a finite x.
func toBigFloat(x Float) *big.Float {
	r, err := x.Rat()
	if err != nil {
		panic(err)
	}
	return new(big.Float).SetPrec(256).SetRat(r)
}

// fromBigFloat encodes a big.Float holding at most 113 bits of precision within the
// normal exponent range.
func fromBigFloat(f *big.Float) Float {
	if f.Sign() == 0 {
		return Zero
	}
	mant := new(big.Float)
	exp := f.MantExp(mant)
	mant.SetMantExp(mant, precision)
	sig, acc := mant.Int(nil)
	if acc != big.Exact {
		panic("big.Float has more than 113 bits of precision")
	}
	neg := sig.Sign() < 0
	sig.Abs(sig)
	e := uint64(exp + exponentBias - 1)
	words := sig.Bits()
	var lo, hi uint64
	if len(words) > 0 {
		lo = uint64(words[0])
	}
	if len(words) > 1 {
		hi = uint64(words[1])
	}
	out := Float{hi: e<<48 | hi&fracHiMask, lo: lo}
	if neg {
		out.hi |= signMask
	}
	return out
}

// reference rounds op(x, y) to 113 bits with the given mode.
func reference(op func(z, x, y *big.Float) *big.Float, x, y Float, mode big.RoundingMode) Float {
	z := new(big.Float).SetPrec(precision).SetMode(mode)
	return fromBigFloat(op(z, toBigFloat(x), toBigFloat(y)))
}

// referenceRat rounds an exact fraction to 113 bits with the given mode.
func referenceRat(r *big.Rat, mode big.RoundingMode) Float {
	z := new(big.Float).SetPrec(precision).SetMode(mode)
	return fromBigFloat(z.SetRat(r))
}

// nextUp returns the next representable value above a positive finite x.
func nextUp(x Float) Float {
	lo := x.lo + 1
	hi := x.hi
	if lo == 0 {
		hi++
	}
	return Float{hi: hi, lo: lo}
}

func mustRat(t require.TestingT, x Float) *big.Rat {
	r, err := x.Rat()
	require.NoError(t, err)
	return r
}

// genFloat draws positive normal values with biased exponents in [minExp, maxExp].
func genFloat(minExp, maxExp int) *rapid.Generator[Float] {
	return rapid.Custom(func(t *rapid.T) Float {
		e := rapid.IntRange(minExp, maxExp).Draw(t, "exp")
		fracHi := rapid.Uint64Range(0, fracHiMask).Draw(t, "fracHi")
		fracLo := rapid.Uint64().Draw(t, "fracLo")
		return Float{hi: uint64(e)<<48 | fracHi, lo: fracLo}
	})
}

// genUint256 draws integers of up to 256 bits, biased toward short ones.
func genUint256() *rapid.Generator[*uint256.Int] {
	return rapid.Custom(func(t *rapid.T) *uint256.Int {
		bits := rapid.IntRange(1, 256).Draw(t, "bits")
		var z uint256.Int
		for i := 0; i < 4; i++ {
			z[i] = rapid.Uint64().Draw(t, "word")
		}
		z.Rsh(&z, uint(256-bits))
		return &z
	})
}
