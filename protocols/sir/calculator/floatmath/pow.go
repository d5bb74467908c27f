package floatmath

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// q128 is 1.0 in unsigned Q128.128 fixed point.
var q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// pow2Constants[i] is 2^(2^-(i+1)) in Q128.128, rounded down.
var pow2Constants = [128]*uint256.Int{
	uint256.MustFromHex("0x16a09e667f3bcc908b2fb1366ea957d3e"), // 2^(2^-1)
	uint256.MustFromHex("0x1306fe0a31b7152de8d5a46305c85edec"), // 2^(2^-2)
	uint256.MustFromHex("0x1172b83c7d517adcdf7c8c50eb14a7920"), // 2^(2^-3)
	uint256.MustFromHex("0x10b5586cf9890f6298b92b71842a98364"), // 2^(2^-4)
	uint256.MustFromHex("0x1059b0d31585743ae7c548eb68ca417fe"), // 2^(2^-5)
	uint256.MustFromHex("0x102c9a3e778060ee6f7caca4f7a29bde9"), // 2^(2^-6)
	uint256.MustFromHex("0x10163da9fb33356d84a66ae336dcdfa40"), // 2^(2^-7)
	uint256.MustFromHex("0x100b1afa5abcbed6129ab13ec11dc9544"), // 2^(2^-8)
	uint256.MustFromHex("0x10058c86da1c09ea1ff19d294cf2f679c"), // 2^(2^-9)
	uint256.MustFromHex("0x1002c605e2e8cec506d21bfc89a23a010"), // 2^(2^-10)
	uint256.MustFromHex("0x100162f3904051fa128bca9c55c31e5e0"), // 2^(2^-11)
	uint256.MustFromHex("0x1000b175effdc76ba38e31671ca939726"), // 2^(2^-12)
	uint256.MustFromHex("0x100058ba01fb9f96d6cacd4b180917c3e"), // 2^(2^-13)
	uint256.MustFromHex("0x10002c5cc37da9491d0985c348c68e7b3"), // 2^(2^-14)
	uint256.MustFromHex("0x1000162e525ee054754457d5995292026"), // 2^(2^-15)
	uint256.MustFromHex("0x10000b17255775c040618bf4a4ade83fc"), // 2^(2^-16)
	uint256.MustFromHex("0x1000058b91b5bc9ae2eed81e9b7d4cfac"), // 2^(2^-17)
	uint256.MustFromHex("0x100002c5c89d5ec6ca4d7c8acc017b7c9"), // 2^(2^-18)
	uint256.MustFromHex("0x10000162e43f4f831060e02d839a9d16d"), // 2^(2^-19)
	uint256.MustFromHex("0x100000b1721bcfc99d9f890ea06911763"), // 2^(2^-20)
	uint256.MustFromHex("0x10000058b90cf1e6d97f9ca14dbcc1628"), // 2^(2^-21)
	uint256.MustFromHex("0x1000002c5c863b73f016468f6bac5ca2c"), // 2^(2^-22)
	uint256.MustFromHex("0x100000162e430e5a18f6119e3c02282a5"), // 2^(2^-23)
	uint256.MustFromHex("0x1000000b1721835514b86e6d96efd1bff"), // 2^(2^-24)
	uint256.MustFromHex("0x100000058b90c0b48c6be5df846c5b2f0"), // 2^(2^-25)
	uint256.MustFromHex("0x10000002c5c8601cc6b9e94213c72737a"), // 2^(2^-26)
	uint256.MustFromHex("0x1000000162e42fff037df38aa2b219f06"), // 2^(2^-27)
	uint256.MustFromHex("0x10000000b17217fba9c739aa5819f44f9"), // 2^(2^-28)
	uint256.MustFromHex("0x1000000058b90bfcdee5acd3c1cedc823"), // 2^(2^-29)
	uint256.MustFromHex("0x100000002c5c85fe31f35a6a30da1be50"), // 2^(2^-30)
	uint256.MustFromHex("0x10000000162e42ff0999ce3541b9fffcf"), // 2^(2^-31)
	uint256.MustFromHex("0x100000000b17217f80f4ef5aadda45554"), // 2^(2^-32)
	uint256.MustFromHex("0x10000000058b90bfbf8479bd5a81b51ad"), // 2^(2^-33)
	uint256.MustFromHex("0x1000000002c5c85fdf84bd62ae30a74cc"), // 2^(2^-34)
	uint256.MustFromHex("0x100000000162e42fefb2fed257559bdaa"), // 2^(2^-35)
	uint256.MustFromHex("0x1000000000b17217f7d5a7716bba4a9af"), // 2^(2^-36)
	uint256.MustFromHex("0x100000000058b90bfbe9ddbac5e109ccf"), // 2^(2^-37)
	uint256.MustFromHex("0x10000000002c5c85fdf4b15de6f17eb0d"), // 2^(2^-38)
	uint256.MustFromHex("0x1000000000162e42fefa494f1478fde05"), // 2^(2^-39)
	uint256.MustFromHex("0x10000000000b17217f7d20cf927c8e94c"), // 2^(2^-40)
	uint256.MustFromHex("0x1000000000058b90bfbe8f71cb4e4b33e"), // 2^(2^-41)
	uint256.MustFromHex("0x100000000002c5c85fdf477b662b26945"), // 2^(2^-42)
	uint256.MustFromHex("0x10000000000162e42fefa3ae53369388c"), // 2^(2^-43)
	uint256.MustFromHex("0x100000000000b17217f7d1d351a389d40"), // 2^(2^-44)
	uint256.MustFromHex("0x10000000000058b90bfbe8e8b2d3d4ede"), // 2^(2^-45)
	uint256.MustFromHex("0x1000000000002c5c85fdf4741bea6e77f"), // 2^(2^-46)
	uint256.MustFromHex("0x100000000000162e42fefa39fe95583c3"), // 2^(2^-47)
	uint256.MustFromHex("0x1000000000000b17217f7d1cfb72b45e2"), // 2^(2^-48)
	uint256.MustFromHex("0x100000000000058b90bfbe8e7cc35c3f1"), // 2^(2^-49)
	uint256.MustFromHex("0x10000000000002c5c85fdf473e242ea38"), // 2^(2^-50)
	uint256.MustFromHex("0x1000000000000162e42fefa39f02b772c"), // 2^(2^-51)
	uint256.MustFromHex("0x10000000000000b17217f7d1cf7d83c1a"), // 2^(2^-52)
	uint256.MustFromHex("0x1000000000000058b90bfbe8e7bdcbe2e"), // 2^(2^-53)
	uint256.MustFromHex("0x100000000000002c5c85fdf473dea871f"), // 2^(2^-54)
	uint256.MustFromHex("0x10000000000000162e42fefa39ef44d91"), // 2^(2^-55)
	uint256.MustFromHex("0x100000000000000b17217f7d1cf79e949"), // 2^(2^-56)
	uint256.MustFromHex("0x10000000000000058b90bfbe8e7bce544"), // 2^(2^-57)
	uint256.MustFromHex("0x1000000000000002c5c85fdf473de6eca"), // 2^(2^-58)
	uint256.MustFromHex("0x100000000000000162e42fefa39ef366f"), // 2^(2^-59)
	uint256.MustFromHex("0x1000000000000000b17217f7d1cf79afa"), // 2^(2^-60)
	uint256.MustFromHex("0x100000000000000058b90bfbe8e7bcd6d"), // 2^(2^-61)
	uint256.MustFromHex("0x10000000000000002c5c85fdf473de6b2"), // 2^(2^-62)
	uint256.MustFromHex("0x1000000000000000162e42fefa39ef358"), // 2^(2^-63)
	uint256.MustFromHex("0x10000000000000000b17217f7d1cf79ac"), // 2^(2^-64)
	uint256.MustFromHex("0x1000000000000000058b90bfbe8e7bcd5"), // 2^(2^-65)
	uint256.MustFromHex("0x100000000000000002c5c85fdf473de6a"), // 2^(2^-66)
	uint256.MustFromHex("0x10000000000000000162e42fefa39ef35"), // 2^(2^-67)
	uint256.MustFromHex("0x100000000000000000b17217f7d1cf79a"), // 2^(2^-68)
	uint256.MustFromHex("0x10000000000000000058b90bfbe8e7bcd"), // 2^(2^-69)
	uint256.MustFromHex("0x1000000000000000002c5c85fdf473de6"), // 2^(2^-70)
	uint256.MustFromHex("0x100000000000000000162e42fefa39ef3"), // 2^(2^-71)
	uint256.MustFromHex("0x1000000000000000000b17217f7d1cf79"), // 2^(2^-72)
	uint256.MustFromHex("0x100000000000000000058b90bfbe8e7bc"), // 2^(2^-73)
	uint256.MustFromHex("0x10000000000000000002c5c85fdf473de"), // 2^(2^-74)
	uint256.MustFromHex("0x1000000000000000000162e42fefa39ef"), // 2^(2^-75)
	uint256.MustFromHex("0x10000000000000000000b17217f7d1cf7"), // 2^(2^-76)
	uint256.MustFromHex("0x1000000000000000000058b90bfbe8e7b"), // 2^(2^-77)
	uint256.MustFromHex("0x100000000000000000002c5c85fdf473d"), // 2^(2^-78)
	uint256.MustFromHex("0x10000000000000000000162e42fefa39e"), // 2^(2^-79)
	uint256.MustFromHex("0x100000000000000000000b17217f7d1cf"), // 2^(2^-80)
	uint256.MustFromHex("0x10000000000000000000058b90bfbe8e7"), // 2^(2^-81)
	uint256.MustFromHex("0x1000000000000000000002c5c85fdf473"), // 2^(2^-82)
	uint256.MustFromHex("0x100000000000000000000162e42fefa39"), // 2^(2^-83)
	uint256.MustFromHex("0x1000000000000000000000b17217f7d1c"), // 2^(2^-84)
	uint256.MustFromHex("0x100000000000000000000058b90bfbe8e"), // 2^(2^-85)
	uint256.MustFromHex("0x10000000000000000000002c5c85fdf47"), // 2^(2^-86)
	uint256.MustFromHex("0x1000000000000000000000162e42fefa3"), // 2^(2^-87)
	uint256.MustFromHex("0x10000000000000000000000b17217f7d1"), // 2^(2^-88)
	uint256.MustFromHex("0x1000000000000000000000058b90bfbe8"), // 2^(2^-89)
	uint256.MustFromHex("0x100000000000000000000002c5c85fdf4"), // 2^(2^-90)
	uint256.MustFromHex("0x10000000000000000000000162e42fefa"), // 2^(2^-91)
	uint256.MustFromHex("0x100000000000000000000000b17217f7d"), // 2^(2^-92)
	uint256.MustFromHex("0x10000000000000000000000058b90bfbe"), // 2^(2^-93)
	uint256.MustFromHex("0x1000000000000000000000002c5c85fdf"), // 2^(2^-94)
	uint256.MustFromHex("0x100000000000000000000000162e42fef"), // 2^(2^-95)
	uint256.MustFromHex("0x1000000000000000000000000b17217f7"), // 2^(2^-96)
	uint256.MustFromHex("0x100000000000000000000000058b90bfb"), // 2^(2^-97)
	uint256.MustFromHex("0x10000000000000000000000002c5c85fd"), // 2^(2^-98)
	uint256.MustFromHex("0x1000000000000000000000000162e42fe"), // 2^(2^-99)
	uint256.MustFromHex("0x10000000000000000000000000b17217f"), // 2^(2^-100)
	uint256.MustFromHex("0x1000000000000000000000000058b90bf"), // 2^(2^-101)
	uint256.MustFromHex("0x100000000000000000000000002c5c85f"), // 2^(2^-102)
	uint256.MustFromHex("0x10000000000000000000000000162e42f"), // 2^(2^-103)
	uint256.MustFromHex("0x100000000000000000000000000b17217"), // 2^(2^-104)
	uint256.MustFromHex("0x10000000000000000000000000058b90b"), // 2^(2^-105)
	uint256.MustFromHex("0x1000000000000000000000000002c5c85"), // 2^(2^-106)
	uint256.MustFromHex("0x100000000000000000000000000162e42"), // 2^(2^-107)
	uint256.MustFromHex("0x1000000000000000000000000000b1721"), // 2^(2^-108)
	uint256.MustFromHex("0x100000000000000000000000000058b90"), // 2^(2^-109)
	uint256.MustFromHex("0x10000000000000000000000000002c5c8"), // 2^(2^-110)
	uint256.MustFromHex("0x1000000000000000000000000000162e4"), // 2^(2^-111)
	uint256.MustFromHex("0x10000000000000000000000000000b172"), // 2^(2^-112)
	uint256.MustFromHex("0x1000000000000000000000000000058b9"), // 2^(2^-113)
	uint256.MustFromHex("0x100000000000000000000000000002c5c"), // 2^(2^-114)
	uint256.MustFromHex("0x10000000000000000000000000000162e"), // 2^(2^-115)
	uint256.MustFromHex("0x100000000000000000000000000000b17"), // 2^(2^-116)
	uint256.MustFromHex("0x10000000000000000000000000000058b"), // 2^(2^-117)
	uint256.MustFromHex("0x1000000000000000000000000000002c5"), // 2^(2^-118)
	uint256.MustFromHex("0x100000000000000000000000000000162"), // 2^(2^-119)
	uint256.MustFromHex("0x1000000000000000000000000000000b1"), // 2^(2^-120)
	uint256.MustFromHex("0x100000000000000000000000000000058"), // 2^(2^-121)
	uint256.MustFromHex("0x10000000000000000000000000000002c"), // 2^(2^-122)
	uint256.MustFromHex("0x100000000000000000000000000000016"), // 2^(2^-123)
	uint256.MustFromHex("0x10000000000000000000000000000000b"), // 2^(2^-124)
	uint256.MustFromHex("0x100000000000000000000000000000005"), // 2^(2^-125)
	uint256.MustFromHex("0x100000000000000000000000000000002"), // 2^(2^-126)
	uint256.MustFromHex("0x100000000000000000000000000000001"), // 2^(2^-127)
	uint256.MustFromHex("0x100000000000000000000000000000000"), // 2^(2^-128)
}

// log2Bits is the number of fractional bits produced by Log2.
const log2Bits = 128

// Pow2 returns 2^x for a finite x of either sign. Results of 2^16384 or more return
// ErrOverflow and results below the normal range return Zero. Fractional bits of x
// below 2^-128 are ignored.
func (x Float) Pow2() (Float, error) {
	if x.isNaN() || x.IsInf() {
		return Float{}, fmt.Errorf("%w: exponent %s is not finite", ErrInvalidOperand, x)
	}
	if x.IsZero() {
		return One, nil
	}
	neg := x.signBit()
	sig, exp := x.unpack()
	if exp+sig.BitLen() > 15 {
		// |x| >= 2^15 lies beyond the exponent range in both directions.
		if neg {
			return Zero, nil
		}
		return Float{}, fmt.Errorf("%w: 2^%s", ErrOverflow, x)
	}

	// |x| in Q128.128; it stays below 2^143.
	var fixed uint256.Int
	if s := exp + 128; s >= 0 {
		fixed.Lsh(&sig, uint(s))
	} else {
		fixed.Rsh(&sig, uint(-s))
	}
	n := int(fixed[2])
	frac := uint256.Int{fixed[0], fixed[1], 0, 0}
	if neg {
		n = -n
		if !frac.IsZero() {
			n--
			frac.Sub(q128, &frac)
		}
	}

	r := new(uint256.Int).Set(q128)
	for i := 0; i < 128; i++ {
		bit := 127 - i
		if frac[bit/64]>>(bit%64)&1 != 0 {
			r.MulDivOverflow(r, pow2Constants[i], q128)
		}
	}
	f, err := pack(false, r, n-128, false, false)
	if err != nil {
		return Float{}, fmt.Errorf("%w: 2^%s", err, x)
	}
	return f, nil
}

// Log2 returns the base-2 logarithm of a finite, strictly positive x, truncated to
// 128 fractional bits.
func (x Float) Log2() (Float, error) {
	if x.isNaN() || x.IsInf() || x.Sign() <= 0 {
		return Float{}, fmt.Errorf("%w: log2 of %s", ErrInvalidOperand, x)
	}
	sig, exp := x.unpack()
	k := exp + fractionBits

	// x = m * 2^k with m in [1, 2), kept in Q2.126 while squaring.
	var m uint256.Int
	m.Lsh(&sig, 126-fractionBits)
	frac := new(big.Int)
	for i := 0; i < log2Bits; i++ {
		m.Mul(&m, &m)
		m.Rsh(&m, 126)
		frac.Lsh(frac, 1)
		if m.BitLen() > 127 {
			m.Rsh(&m, 1)
			frac.SetBit(frac, 0, 1)
		}
	}

	total := new(big.Int).Lsh(big.NewInt(int64(k)), log2Bits)
	total.Add(total, frac)
	neg := total.Sign() < 0
	return packBig(neg, total.Abs(total), -log2Bits, false, false)
}

// Pow returns base^exp for base in [0, 1] and a finite, non-negative exp, computed
// as 2^(exp * log2(base)). 0^0 is One and 0^exp is Zero for any positive exp.
func (x Float) Pow(y Float) (Float, error) {
	if err := checkOperand(x); err != nil {
		return Float{}, err
	}
	if err := checkOperand(y); err != nil {
		return Float{}, err
	}
	c, _ := x.Cmp(One)
	switch {
	case c > 0:
		return Float{}, fmt.Errorf("%w: base %s is above one", ErrInvalidOperand, x)
	case y.IsZero(), c == 0:
		return One, nil
	case x.IsZero():
		return Zero, nil
	}

	l, err := x.Log2()
	if err != nil {
		return Float{}, err
	}
	p, err := y.Mul(l.Neg())
	if err != nil {
		return Float{}, err
	}
	return p.Neg().Pow2()
}
