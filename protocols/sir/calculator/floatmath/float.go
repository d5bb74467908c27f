package floatmath

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Float is a binary floating-point number laid out as an IEEE 754 binary128 value:
// 1 sign bit, a 15-bit exponent biased by 16383 and a 112-bit fraction with an
// implicit leading one. Zero and Infinity are the only special values; NaN bit
// patterns are rejected by every operation.
//
// All arithmetic is carried out on integers, so results are bit-for-bit
// reproducible on every platform.
type Float struct {
	hi uint64
	lo uint64
}

const (
	exponentBias = 16383
	maxExponent  = 0x7FFF // biased exponent of Infinity
	fractionBits = 112
	precision    = fractionBits + 1

	signMask   = uint64(1) << 63
	fracHiMask = uint64(1)<<48 - 1
)

var (
	// Zero is positive zero.
	Zero = Float{}
	// One is the number 1.
	One = Float{hi: exponentBias << 48}
	// Infinity is positive infinity.
	Infinity = Float{hi: maxExponent << 48}
	// NegInfinity is negative infinity.
	NegInfinity = Float{hi: signMask | maxExponent<<48}
	// MaxFloat is the largest finite value, (2 - 2^-112) * 2^16383.
	MaxFloat = Float{hi: (maxExponent-1)<<48 | fracHiMask, lo: math.MaxUint64}

	// minNormal is the smallest positive value ever produced, 2^-16382.
	minNormal = Float{hi: 1 << 48}
)

var (
	// ErrOutOfBounds is returned when an integer cannot be converted into a Float.
	ErrOutOfBounds = errors.New("value out of bounds")
	// ErrInvalidOperand is returned when an operand is outside an operation's domain:
	// negative, infinite or NaN where forbidden, a zero divisor, or a difference below zero.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrOverflow is returned when an exact result exceeds the largest finite Float.
	ErrOverflow = errors.New("overflow")
)

var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// --- Bit Layout ---

func (x Float) biasedExponent() int {
	return int(x.hi>>48) & maxExponent
}

func (x Float) signBit() bool {
	return x.hi&signMask != 0
}

func (x Float) fractionIsZero() bool {
	return x.hi&fracHiMask == 0 && x.lo == 0
}

// IsZero reports whether x is positive or negative zero.
func (x Float) IsZero() bool {
	return x.hi&^signMask == 0 && x.lo == 0
}

// IsInf reports whether x is positive or negative infinity.
func (x Float) IsInf() bool {
	return x.biasedExponent() == maxExponent && x.fractionIsZero()
}

func (x Float) isNaN() bool {
	return x.biasedExponent() == maxExponent && !x.fractionIsZero()
}

// isNeg reports whether x is strictly below zero. Negative zero is not.
func (x Float) isNeg() bool {
	return x.signBit() && !x.IsZero()
}

// unpack splits a finite x into sig*2^exp. A non-zero sig always has exactly
// 113 bits, including values stored in the subnormal range.
func (x Float) unpack() (sig uint256.Int, exp int) {
	e := x.biasedExponent()
	sig[0] = x.lo
	sig[1] = x.hi & fracHiMask
	if e != 0 {
		sig[1] |= 1 << 48
		return sig, e - exponentBias - fractionBits
	}
	exp = 1 - exponentBias - fractionBits
	if n := sig.BitLen(); n != 0 {
		sig.Lsh(&sig, uint(precision-n))
		exp -= precision - n
	}
	return sig, exp
}

// checkOperand rejects NaN, infinite and negative operands.
func checkOperand(x Float) error {
	if x.isNaN() || x.IsInf() {
		return fmt.Errorf("%w: %s is not finite", ErrInvalidOperand, x)
	}
	if x.isNeg() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidOperand, x)
	}
	return nil
}

// --- Rounding ---

// round packs sig*2^exp into a Float. When sticky is set the exact value is larger
// than sig*2^exp by a positive amount below 2^exp; callers set it for bits they
// discarded and must then pass a non-zero sig.
//
// Inexact results are truncated, or rounded away from zero when up is set.
// Results below the normal range become zero, or the smallest normal when up is set.
// Two results report ErrOverflow: Infinity when the rounded magnitude reaches
// 2^16384, and MaxFloat when the exact magnitude lies between MaxFloat and 2^16384.
func round(neg bool, sig *uint256.Int, exp int, sticky, up bool) (Float, error) {
	if sig.IsZero() {
		return Zero, nil
	}

	var z uint256.Int
	z.Set(sig)
	inexact := sticky
	if n := z.BitLen(); n > precision {
		shift := uint(n - precision)
		var lost uint256.Int
		lost.Lsh(&z, 256-shift)
		inexact = inexact || !lost.IsZero()
		z.Rsh(&z, shift)
		exp += int(shift)
	} else if n < precision {
		shift := uint(precision - n)
		z.Lsh(&z, shift)
		exp -= int(shift)
	}

	if up && inexact {
		z.AddUint64(&z, 1)
		if z.BitLen() > precision {
			z.Rsh(&z, 1)
			exp++
		}
	}

	e := exp + exponentBias + fractionBits
	var f Float
	switch {
	case e >= maxExponent:
		f = Infinity
		if neg {
			f = NegInfinity
		}
		return f, ErrOverflow
	case e < 1:
		if !up {
			return Zero, nil
		}
		f = minNormal
	default:
		f = Float{hi: uint64(e)<<48 | z[1]&fracHiMask, lo: z[0]}
	}
	if neg {
		f.hi |= signMask
	}
	if inexact && !up && f.hi&^signMask == MaxFloat.hi && f.lo == MaxFloat.lo {
		return f, ErrOverflow
	}
	return f, nil
}

// pack is round for operations that must fail rather than saturate.
func pack(neg bool, sig *uint256.Int, exp int, sticky, up bool) (Float, error) {
	f, err := round(neg, sig, exp, sticky, up)
	if err != nil {
		return Float{}, err
	}
	return f, nil
}

// packBig is pack for significands that may be wider than 256 bits.
func packBig(neg bool, sig *big.Int, exp int, sticky, up bool) (Float, error) {
	if n := sig.BitLen(); n > 256 {
		shift := uint(n - 256)
		sticky = sticky || sig.TrailingZeroBits() < shift
		sig = new(big.Int).Rsh(sig, shift)
		exp += int(shift)
	}
	z, _ := uint256.FromBig(sig)
	return pack(neg, z, exp, sticky, up)
}

// --- Integer Conversions ---

// FromInt converts a signed 256-bit integer, truncating toward zero when it has
// more than 113 significant bits. Values outside [-2^255, 2^255) return ErrOutOfBounds.
func FromInt(i *big.Int) (Float, error) {
	if i == nil || i.Cmp(minInt256) < 0 || i.Cmp(maxInt256) > 0 {
		return Float{}, fmt.Errorf("%w: %v does not fit in int256", ErrOutOfBounds, i)
	}
	z, _ := uint256.FromBig(new(big.Int).Abs(i))
	return pack(i.Sign() < 0, z, 0, false, false)
}

// FromUint converts an unsigned 256-bit integer, truncating toward zero when it has
// more than 113 significant bits. Values outside [0, 2^256) return ErrOutOfBounds.
func FromUint(u *big.Int) (Float, error) {
	return fromUint(u, false)
}

// FromUintUp is like FromUint but rounds away from zero.
func FromUintUp(u *big.Int) (Float, error) {
	return fromUint(u, true)
}

func fromUint(u *big.Int, up bool) (Float, error) {
	if u == nil || u.Sign() < 0 || u.BitLen() > 256 {
		return Float{}, fmt.Errorf("%w: %v does not fit in uint256", ErrOutOfBounds, u)
	}
	z, _ := uint256.FromBig(u)
	return pack(false, z, 0, false, up)
}

// FromUint256 converts u exactly when it has at most 113 significant bits and
// truncates otherwise. It cannot fail.
func FromUint256(u *uint256.Int) Float {
	f, _ := pack(false, u, 0, false, false)
	return f
}

// ToUint truncates x toward zero. Negative, infinite and NaN values return
// ErrInvalidOperand, and so do values of 2^256 or more.
func (x Float) ToUint() (*uint256.Int, error) {
	if x.IsZero() {
		return new(uint256.Int), nil
	}
	if err := checkOperand(x); err != nil {
		return nil, err
	}
	sig, exp := x.unpack()
	z := new(uint256.Int)
	if exp >= 0 {
		if sig.BitLen()+exp > 256 {
			return nil, fmt.Errorf("%w: %s does not fit in uint256", ErrInvalidOperand, x)
		}
		return z.Lsh(&sig, uint(exp)), nil
	}
	return z.Rsh(&sig, uint(-exp)), nil
}

// ToInt truncates x toward zero into a signed 256-bit integer.
func (x Float) ToInt() (*big.Int, error) {
	if x.isNaN() || x.IsInf() {
		return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidOperand, x)
	}
	if x.IsZero() {
		return new(big.Int), nil
	}
	sig, exp := x.unpack()
	z := sig.ToBig()
	if exp >= 0 {
		if sig.BitLen()+exp > 256 {
			return nil, fmt.Errorf("%w: %s does not fit in int256", ErrOverflow, x)
		}
		z.Lsh(z, uint(exp))
	} else {
		z.Rsh(z, uint(-exp))
	}
	if x.signBit() {
		z.Neg(z)
	}
	if z.Cmp(minInt256) < 0 || z.Cmp(maxInt256) > 0 {
		return nil, fmt.Errorf("%w: %s does not fit in int256", ErrOverflow, x)
	}
	return z, nil
}

// Rat returns the exact value of a finite x as a fraction.
func (x Float) Rat() (*big.Rat, error) {
	if x.isNaN() || x.IsInf() {
		return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidOperand, x)
	}
	sig, exp := x.unpack()
	num := sig.ToBig()
	if x.signBit() {
		num.Neg(num)
	}
	if exp >= 0 {
		return new(big.Rat).SetInt(num.Lsh(num, uint(exp))), nil
	}
	return new(big.Rat).SetFrac(num, new(big.Int).Lsh(big.NewInt(1), uint(-exp))), nil
}

// --- Sign and Comparison ---

// Sign returns -1, 0 or +1 depending on whether x is negative, zero or positive.
func (x Float) Sign() int {
	switch {
	case x.IsZero():
		return 0
	case x.signBit():
		return -1
	}
	return 1
}

// Neg returns x with its sign flipped. The negation of zero is Zero.
func (x Float) Neg() Float {
	if x.IsZero() {
		return Zero
	}
	return Float{hi: x.hi ^ signMask, lo: x.lo}
}

// Cmp compares x and y and returns -1, 0 or +1. Comparing two infinities, or any NaN,
// returns ErrInvalidOperand.
func (x Float) Cmp(y Float) (int, error) {
	if x.isNaN() || y.isNaN() {
		return 0, fmt.Errorf("%w: NaN comparison", ErrInvalidOperand)
	}
	if x.IsInf() && y.IsInf() {
		return 0, fmt.Errorf("%w: comparison of two infinities", ErrInvalidOperand)
	}
	sx, sy := x.Sign(), y.Sign()
	switch {
	case sx < sy:
		return -1, nil
	case sx > sy:
		return 1, nil
	case sx == 0:
		return 0, nil
	}
	return sx * cmpMagnitude(x, y), nil
}

// cmpMagnitude compares |x| and |y| through their bit patterns.
func cmpMagnitude(x, y Float) int {
	xh, yh := x.hi&^signMask, y.hi&^signMask
	switch {
	case xh < yh:
		return -1
	case xh > yh:
		return 1
	case x.lo < y.lo:
		return -1
	case x.lo > y.lo:
		return 1
	}
	return 0
}

// --- Encoding ---

// Bytes returns the big-endian 16-byte encoding of x.
func (x Float) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], x.hi)
	binary.BigEndian.PutUint64(b[8:], x.lo)
	return b
}

// FromBytes decodes a big-endian 16-byte encoding.
func FromBytes(b [16]byte) Float {
	return Float{hi: binary.BigEndian.Uint64(b[:8]), lo: binary.BigEndian.Uint64(b[8:])}
}

// String returns the bit pattern of x as a 0x-prefixed 32 digit hex string.
func (x Float) String() string {
	return fmt.Sprintf("0x%016x%016x", x.hi, x.lo)
}

// FromHex parses a bit pattern written as up to 32 hex digits, with or without a 0x prefix.
func FromHex(s string) (Float, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" || len(digits) > 32 {
		return Float{}, fmt.Errorf("invalid float bit pattern %q", s)
	}
	digits = strings.Repeat("0", 32-len(digits)) + digits
	var b [16]byte
	if _, err := hex.Decode(b[:], []byte(digits)); err != nil {
		return Float{}, fmt.Errorf("invalid float bit pattern %q: %w", s, err)
	}
	return FromBytes(b), nil
}

// MustFromHex is like FromHex but panics on malformed input.
func MustFromHex(s string) Float {
	f, err := FromHex(s)
	if err != nil {
		panic(fmt.Sprintf("MustFromHex(%q) failed: %v", s, err))
	}
	return f
}

// MarshalText implements encoding.TextMarshaler.
func (x Float) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (x *Float) UnmarshalText(text []byte) error {
	f, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*x = f
	return nil
}
