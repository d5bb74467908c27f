package floatmath

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// alignShift is the headroom given to the operand with the larger exponent when two
// operands are aligned. An operand more than alignShift bits below it only contributes
// a sticky bit, which is enough to round a 113-bit result in either direction.
const alignShift = 140

var one = uint256.NewInt(1)

// align rescales a (the operand with the larger exponent) and b to a common exponent.
// The returned sticky flag reports whether bits of b were dropped on the way.
func align(a *uint256.Int, ae int, b *uint256.Int, be int) (exp int, sticky bool) {
	d := ae - be
	if d <= alignShift {
		a.Lsh(a, uint(d))
		return be, false
	}
	a.Lsh(a, alignShift)
	exp = ae - alignShift
	shift := exp - be
	if shift >= 256 {
		sticky = !b.IsZero()
		b.Clear()
		return exp, sticky
	}
	var lost uint256.Int
	lost.Lsh(b, uint(256-shift))
	b.Rsh(b, uint(shift))
	return exp, !lost.IsZero()
}

// Add returns x + y truncated toward zero. Both operands must be finite and
// non-negative; a sum beyond MaxFloat returns ErrOverflow.
func (x Float) Add(y Float) (Float, error) {
	return add(x, y, false)
}

// AddUp is like Add but rounds away from zero.
func (x Float) AddUp(y Float) (Float, error) {
	return add(x, y, true)
}

func add(x, y Float, up bool) (Float, error) {
	if err := checkOperand(x); err != nil {
		return Float{}, err
	}
	if err := checkOperand(y); err != nil {
		return Float{}, err
	}
	xs, xe := x.unpack()
	ys, ye := y.unpack()
	if xe < ye {
		xs, ys = ys, xs
		xe, ye = ye, xe
	}
	exp, sticky := align(&xs, xe, &ys, ye)
	xs.Add(&xs, &ys)
	f, err := pack(false, &xs, exp, sticky, up)
	if err != nil {
		return Float{}, fmt.Errorf("%w: %s + %s", err, x, y)
	}
	return f, nil
}

// Inc returns x + 1 truncated toward zero. From 2^113 upward one is below the last
// place of x and x is returned unchanged.
func (x Float) Inc() (Float, error) {
	if err := checkOperand(x); err != nil {
		return Float{}, err
	}
	if x.biasedExponent() >= exponentBias+precision {
		return x, nil
	}
	return add(x, One, false)
}

// Sub returns x - y truncated toward zero. y must be finite and non-negative, x finite,
// and x >= y: differences below zero return ErrInvalidOperand.
func (x Float) Sub(y Float) (Float, error) {
	return sub(x, y, false)
}

// SubUp is like Sub but rounds away from zero.
func (x Float) SubUp(y Float) (Float, error) {
	return sub(x, y, true)
}

func sub(x, y Float, up bool) (Float, error) {
	if err := checkOperand(y); err != nil {
		return Float{}, err
	}
	if x.isNaN() || x.IsInf() {
		return Float{}, fmt.Errorf("%w: %s is not finite", ErrInvalidOperand, x)
	}
	c, err := x.Cmp(y)
	if err != nil {
		return Float{}, err
	}
	switch {
	case c < 0:
		return Float{}, fmt.Errorf("%w: %s - %s is negative", ErrInvalidOperand, x, y)
	case c == 0:
		return Zero, nil
	}

	// x > y >= 0, so the exponent of x is never below the exponent of y.
	xs, xe := x.unpack()
	ys, ye := y.unpack()
	exp, sticky := align(&xs, xe, &ys, ye)
	xs.Sub(&xs, &ys)
	if sticky {
		// x - (y' + e) with 0 < e < 1 is (x - y' - 1) + (1 - e).
		xs.Sub(&xs, one)
	}
	return pack(false, &xs, exp, sticky, up)
}

// Mul returns x * y truncated toward zero. Both operands must be finite and
// non-negative; a product beyond MaxFloat returns ErrOverflow.
func (x Float) Mul(y Float) (Float, error) {
	return mul(x, y, false)
}

// MulUp is like Mul but rounds away from zero.
func (x Float) MulUp(y Float) (Float, error) {
	return mul(x, y, true)
}

func mul(x, y Float, up bool) (Float, error) {
	if err := checkOperand(x); err != nil {
		return Float{}, err
	}
	if err := checkOperand(y); err != nil {
		return Float{}, err
	}
	if x.IsZero() || y.IsZero() {
		return Zero, nil
	}
	xs, xe := x.unpack()
	ys, ye := y.unpack()
	xs.Mul(&xs, &ys)
	f, err := pack(false, &xs, xe+ye, false, up)
	if err != nil {
		return Float{}, fmt.Errorf("%w: %s * %s", err, x, y)
	}
	return f, nil
}

// Div returns x / y truncated toward zero. x must be finite and non-negative and y
// strictly positive. Dividing by Infinity yields Zero, and a quotient of 2^16384 or
// more yields Infinity instead of an error.
func (x Float) Div(y Float) (Float, error) {
	if x.isNaN() || y.isNaN() {
		return Float{}, fmt.Errorf("%w: NaN operand", ErrInvalidOperand)
	}
	if x.IsInf() || x.isNeg() {
		return Float{}, fmt.Errorf("%w: dividend %s", ErrInvalidOperand, x)
	}
	if y.Sign() <= 0 {
		return Float{}, fmt.Errorf("%w: divisor %s", ErrInvalidOperand, y)
	}
	if y.IsInf() || x.IsZero() {
		return Zero, nil
	}

	xs, xe := x.unpack()
	ys, ye := y.unpack()
	// Both significands have 113 bits, so the quotient keeps at least 143 of them.
	xs.Lsh(&xs, 143)
	var q, r uint256.Int
	q.DivMod(&xs, &ys, &r)
	f, err := round(false, &q, xe-ye-143, !r.IsZero(), false)
	if errors.Is(err, ErrOverflow) {
		return f, nil
	}
	return f, err
}

// Inv returns 1 / x. x must be finite and strictly positive.
func (x Float) Inv() (Float, error) {
	if x.isNaN() || x.IsInf() || x.Sign() <= 0 {
		return Float{}, fmt.Errorf("%w: cannot invert %s", ErrInvalidOperand, x)
	}
	return One.Div(x)
}
