package floatmath

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Products of a significand and a uint256 reach 369 bits, so the operations in this
// file run on math/big and narrow the result at the end.

// Mulu returns floor(x * u). x must be finite and non-negative; products of 2^256 or
// more return ErrOverflow.
func (x Float) Mulu(u *uint256.Int) (*uint256.Int, error) {
	if err := checkOperand(x); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: nil integer", ErrInvalidOperand)
	}
	if x.IsZero() || u.IsZero() {
		return new(uint256.Int), nil
	}
	sig, exp := x.unpack()
	p := new(big.Int).Mul(sig.ToBig(), u.ToBig())
	if exp >= 0 {
		if p.BitLen()+exp > 256 {
			return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, x, u.Dec())
		}
		p.Lsh(p, uint(exp))
	} else {
		p.Rsh(p, uint(-exp))
	}
	z, overflow := uint256.FromBig(p)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, x, u.Dec())
	}
	return z, nil
}

// MulDiv returns floor(x * u / y) without rounding x / y first. x must be finite and
// non-negative and y strictly positive; an infinite y is only accepted when x is zero.
// Quotients of 2^256 or more return ErrOverflow.
func (x Float) MulDiv(u *uint256.Int, y Float) (*uint256.Int, error) {
	if x.isNaN() || y.isNaN() || x.IsInf() || x.isNeg() {
		return nil, fmt.Errorf("%w: multiplicand %s", ErrInvalidOperand, x)
	}
	if y.Sign() <= 0 {
		return nil, fmt.Errorf("%w: divisor %s", ErrInvalidOperand, y)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: nil integer", ErrInvalidOperand)
	}
	if y.IsInf() {
		if x.IsZero() {
			return new(uint256.Int), nil
		}
		return nil, fmt.Errorf("%w: divisor %s", ErrInvalidOperand, y)
	}
	if x.IsZero() || u.IsZero() {
		return new(uint256.Int), nil
	}

	xs, xe := x.unpack()
	ys, ye := y.unpack()
	num := new(big.Int).Mul(xs.ToBig(), u.ToBig())
	den := ys.ToBig()
	if shift := xe - ye; shift >= 0 {
		// den has 113 bits, so the quotient has at least num+shift-113 bits.
		if num.BitLen()+shift-precision > 256 {
			return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x, u.Dec(), y)
		}
		num.Lsh(num, uint(shift))
	} else {
		if -shift >= num.BitLen() {
			return new(uint256.Int), nil
		}
		den.Lsh(den, uint(-shift))
	}
	q := num.Quo(num, den)
	z, overflow := uint256.FromBig(q)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x, u.Dec(), y)
	}
	return z, nil
}

// Divu returns u1 / u2 truncated toward zero, rounding only once. u2 must not be zero.
func Divu(u1, u2 *uint256.Int) (Float, error) {
	if u1 == nil || u2 == nil || u2.IsZero() {
		return Float{}, fmt.Errorf("%w: division by zero", ErrInvalidOperand)
	}
	if u1.IsZero() {
		return Zero, nil
	}
	return quotient(u1.ToBig(), 0, u2.ToBig(), false)
}

// MulDivu returns x * u1 / u2 truncated toward zero, rounding only once. x must be
// finite and non-negative and u2 non-zero; results beyond MaxFloat return ErrOverflow.
func (x Float) MulDivu(u1, u2 *uint256.Int) (Float, error) {
	return mulDivu(x, u1, u2, false)
}

// MulDivuUp is like MulDivu but rounds away from zero.
func (x Float) MulDivuUp(u1, u2 *uint256.Int) (Float, error) {
	return mulDivu(x, u1, u2, true)
}

func mulDivu(x Float, u1, u2 *uint256.Int, up bool) (Float, error) {
	if err := checkOperand(x); err != nil {
		return Float{}, err
	}
	if u1 == nil || u2 == nil || u2.IsZero() {
		return Float{}, fmt.Errorf("%w: division by zero", ErrInvalidOperand)
	}
	if x.IsZero() || u1.IsZero() {
		return Zero, nil
	}
	sig, exp := x.unpack()
	num := new(big.Int).Mul(sig.ToBig(), u1.ToBig())
	f, err := quotient(num, exp, u2.ToBig(), up)
	if err != nil {
		return Float{}, fmt.Errorf("%w: %s * %s / %s", err, x, u1.Dec(), u2.Dec())
	}
	return f, nil
}

// quotient rounds num * 2^exp / den, for positive num and den, to a Float.
func quotient(num *big.Int, exp int, den *big.Int, up bool) (Float, error) {
	// Keep at least 114 quotient bits so the remainder only feeds the sticky bit.
	shift := precision + 1 + den.BitLen() - num.BitLen()
	if shift < 0 {
		shift = 0
	}
	n := new(big.Int).Lsh(num, uint(shift))
	q, r := n.QuoRem(n, den, new(big.Int))
	return packBig(false, q, exp-shift, r.Sign() != 0, up)
}
