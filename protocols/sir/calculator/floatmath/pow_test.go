package floatmath

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustInt(t *testing.T, i int64) Float {
	t.Helper()
	f, err := FromInt(big.NewInt(i))
	require.NoError(t, err)
	return f
}

// ulpBelowTwo is the spacing of values in [1, 2).
var ulpBelowTwo = new(big.Rat).SetFrac(big.NewInt(1), pow2Big(fractionBits))

func TestPow2(t *testing.T) {
	half := MustFromHex("0x3ffe0000000000000000000000000000")

	testCases := []struct {
		name string
		x    Float
		want Float
	}{
		{"zero", Zero, One},
		{"one", One, mustUint(t, 2)},
		{"three", mustUint(t, 3), mustUint(t, 8)},
		{"minus one", mustInt(t, -1), half},
		{"largest power", mustUint(t, 16383), MustFromHex("0x7ffe0000000000000000000000000000")},
		{"smallest normal", mustInt(t, -16382), minNormal},
		{"below the normal range", mustInt(t, -16383), Zero},
		{"far below the normal range", mustInt(t, -1 << 20), Zero},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.x.Pow2()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("overflow", func(t *testing.T) {
		_, err := mustUint(t, 16384).Pow2()
		assert.ErrorIs(t, err, ErrOverflow)
		_, err = mustUint(t, 1<<15).Pow2()
		assert.ErrorIs(t, err, ErrOverflow)
		_, err = MaxFloat.Pow2()
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("infinite exponent", func(t *testing.T) {
		_, err := Infinity.Pow2()
		assert.ErrorIs(t, err, ErrInvalidOperand)
		_, err = NegInfinity.Pow2()
		assert.ErrorIs(t, err, ErrInvalidOperand)
	})

	t.Run("square root of two", func(t *testing.T) {
		r, err := half.Pow2()
		require.NoError(t, err)
		lo := mustRat(t, r)
		hi := new(big.Rat).Add(lo, ulpBelowTwo)
		two := big.NewRat(2, 1)
		assert.True(t, new(big.Rat).Mul(lo, lo).Cmp(two) <= 0)
		assert.True(t, new(big.Rat).Mul(hi, hi).Cmp(two) > 0)
	})

	t.Run("fourth root of two", func(t *testing.T) {
		r, err := MustFromHex("0x3ffd0000000000000000000000000000").Pow2()
		require.NoError(t, err)
		lo := mustRat(t, r)
		hi := new(big.Rat).Add(lo, ulpBelowTwo)
		pow4 := func(v *big.Rat) *big.Rat {
			sq := new(big.Rat).Mul(v, v)
			return sq.Mul(sq, sq)
		}
		two := big.NewRat(2, 1)
		assert.True(t, pow4(lo).Cmp(two) <= 0)
		assert.True(t, pow4(hi).Cmp(two) > 0)
	})

	t.Run("integer part only scales", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			// x = n + k/2^100 and f = k/2^100 are both exact.
			n := rapid.Uint64Range(0, 1000).Draw(t, "n")
			k := rapid.Uint64().Draw(t, "k")
			denom := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
			num := new(uint256.Int).Lsh(uint256.NewInt(n), 100)
			num.AddUint64(num, k)
			f, err := Divu(uint256.NewInt(k), denom)
			require.NoError(t, err)
			x, err := Divu(num, denom)
			require.NoError(t, err)
			if rapid.Bool().Draw(t, "negate") {
				f, x = f.Neg(), x.Neg()
			}

			base, err := f.Pow2()
			require.NoError(t, err)
			got, err := x.Pow2()
			require.NoError(t, err)
			scale := new(big.Rat).SetInt(pow2Big(uint(n)))
			want := new(big.Rat).Mul(mustRat(t, base), scale)
			if x.Sign() < 0 {
				want.Quo(mustRat(t, base), scale)
			}
			require.Zero(t, want.Cmp(mustRat(t, got)), "2^%s", x)
		})
	})
}

func TestLog2(t *testing.T) {
	testCases := []struct {
		name string
		x    Float
		want Float
	}{
		{"one", One, Zero},
		{"eight", mustUint(t, 8), mustUint(t, 3)},
		{"half", MustFromHex("0x3ffe0000000000000000000000000000"), mustInt(t, -1)},
		{"smallest normal", minNormal, mustInt(t, -16382)},
		{"largest power", MustFromHex("0x7ffe0000000000000000000000000000"), mustUint(t, 16383)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.x.Log2()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, x := range []Float{Zero, One.Neg(), Infinity} {
		_, err := x.Log2()
		assert.ErrorIs(t, err, ErrInvalidOperand, "log2 of %s", x)
	}

	t.Run("inverts pow2", func(t *testing.T) {
		tolerance := new(big.Rat).SetFrac(big.NewInt(1), pow2Big(95))
		rapid.Check(t, func(t *rapid.T) {
			x := genFloat(minTestExp, maxTestExp).Draw(t, "x")
			l, err := x.Log2()
			require.NoError(t, err)
			back, err := l.Pow2()
			require.NoError(t, err)

			exact := mustRat(t, x)
			diff := new(big.Rat).Sub(exact, mustRat(t, back))
			diff.Abs(diff).Quo(diff, exact)
			require.True(t, diff.Cmp(tolerance) <= 0, "2^log2(%s) = %s", x, back)
		})
	})
}

func TestPow(t *testing.T) {
	half := MustFromHex("0x3ffe0000000000000000000000000000")
	quarter := MustFromHex("0x3ffd0000000000000000000000000000")

	testCases := []struct {
		name      string
		base, exp Float
		want      Float
	}{
		{"zero to the zero", Zero, Zero, One},
		{"zero to a positive power", Zero, mustUint(t, 3), Zero},
		{"one to any power", One, MaxFloat, One},
		{"any base to the zero", half, Zero, One},
		{"half squared", half, mustUint(t, 2), quarter},
		{"quarter to the half", quarter, half, half},
		{"tiny result underflows", half, mustUint(t, 20000), Zero},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.base.Pow(tc.exp)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("invalid operands", func(t *testing.T) {
		_, err := mustUint(t, 2).Pow(One)
		assert.ErrorIs(t, err, ErrInvalidOperand)
		_, err = half.Neg().Pow(One)
		assert.ErrorIs(t, err, ErrInvalidOperand)
		_, err = half.Pow(One.Neg())
		assert.ErrorIs(t, err, ErrInvalidOperand)
		_, err = half.Pow(Infinity)
		assert.ErrorIs(t, err, ErrInvalidOperand)
	})

	t.Run("stays in the unit interval", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			base := genFloat(exponentBias-100, exponentBias-1).Draw(t, "base")
			exp := genFloat(exponentBias-50, exponentBias+8).Draw(t, "exp")
			got, err := base.Pow(exp)
			require.NoError(t, err)
			c, err := got.Cmp(One)
			require.NoError(t, err)
			require.LessOrEqual(t, c, 0)
			require.GreaterOrEqual(t, got.Sign(), 0)
		})
	})
}
