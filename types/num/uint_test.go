package num_test

import (
	"math/big"
	"testing"

	"code.curvance.io/curvance/types/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUintBasics(t *testing.T) {
	z := num.UintZero()
	assert.True(t, z.IsZero())
	assert.True(t, num.NewUint(42).EQUint64(42))
	assert.Equal(t, "42", num.NewUint(42).String())

	// Clone detaches from the receiver
	a := num.NewUint(10)
	b := a.Clone()
	b.AddSum(num.NewUint(5))
	assert.True(t, a.EQUint64(10))
	assert.True(t, b.EQUint64(15))

	assert.True(t, num.Min(num.NewUint(3), num.NewUint(7)).EQUint64(3))
	assert.True(t, num.Max(num.NewUint(3), num.NewUint(7)).EQUint64(7))
	assert.True(t, num.Sum(num.NewUint(1), num.NewUint(2), num.NewUint(3)).EQUint64(6))
}

func TestUintArithmetic(t *testing.T) {
	assert.True(t, num.UintZero().Add(num.NewUint(2), num.NewUint(3)).EQUint64(5))
	assert.True(t, num.UintZero().Sub(num.NewUint(7), num.NewUint(3)).EQUint64(4))
	assert.True(t, num.UintZero().Mul(num.NewUint(6), num.NewUint(7)).EQUint64(42))
	assert.True(t, num.UintZero().Div(num.NewUint(42), num.NewUint(5)).EQUint64(8))
	assert.True(t, num.UintZero().Mod(num.NewUint(42), num.NewUint(5)).EQUint64(2))
	// uint256 semantics, not a panic
	assert.True(t, num.UintZero().Div(num.NewUint(1), num.UintZero()).IsZero())

	a := num.NewUint(100)
	a.AddSum(num.NewUint(1), num.NewUint(2))
	assert.True(t, a.EQUint64(103))
}

func TestUintComparisons(t *testing.T) {
	three, four := num.NewUint(3), num.NewUint(4)
	assert.True(t, three.LT(four))
	assert.True(t, three.LTE(four))
	assert.True(t, three.LTE(three.Clone()))
	assert.True(t, four.GT(three))
	assert.True(t, four.GTE(four.Clone()))
	assert.True(t, three.NEQ(four))
	assert.False(t, three.EQ(four))
}

func TestUintFromString(t *testing.T) {
	u, overflow := num.UintFromString("340282366920938463463374607431768211456", 10)
	require.False(t, overflow)
	assert.Equal(t, "340282366920938463463374607431768211456", u.String())

	_, overflow = num.UintFromString("not a number", 10)
	assert.True(t, overflow)

	// 2^256 does not fit
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, overflow = num.UintFromString(tooBig.String(), 10)
	assert.True(t, overflow)

	assert.Panics(t, func() { num.MustUintFromString("nope") })
}

func TestUintFromDecimal(t *testing.T) {
	u, overflow := num.UintFromDecimal(num.MustDecimalFromString("12.9"))
	require.False(t, overflow)
	assert.True(t, u.EQUint64(12), "fractional part must be dropped")

	d := num.NewUint(7).ToDecimal()
	assert.True(t, d.Equal(num.MustDecimalFromString("7")))
}

func TestMulDiv(t *testing.T) {
	// the intermediate product exceeds 256 bits but the result fits
	x := num.UintZero().Mul(num.WAD(), num.NewUint(3000))
	r, overflow := num.MulDiv(x, num.Precision(), num.Precision())
	require.False(t, overflow)
	assert.True(t, r.EQ(x))

	r, overflow = num.MulDiv(num.NewUint(10), num.NewUint(7), num.NewUint(3))
	require.False(t, overflow)
	assert.True(t, r.EQUint64(23), "result truncates toward zero")

	// result wider than 256 bits overflows
	max := num.UintZero().Sub(num.UintZero(), num.UintOne())
	_, overflow = num.MulDiv(max, num.NewUint(2), num.UintOne())
	assert.True(t, overflow)
}

func TestWadHelpers(t *testing.T) {
	two := num.UintZero().Mul(num.NewUint(2), num.WAD())
	three := num.UintZero().Mul(num.NewUint(3), num.WAD())

	assert.True(t, num.WadMul(two, three).EQ(num.UintZero().Mul(num.NewUint(6), num.WAD())))
	assert.True(t, num.WadDiv(three, two).EQ(num.MustUintFromString("1500000000000000000")))

	// WAD and Precision hand out copies
	w := num.WAD()
	w.AddSum(num.UintOne())
	assert.True(t, num.WAD().EQ(num.MustUintFromString("1000000000000000000")))
	assert.True(t, num.Precision().EQ(num.MustUintFromString("1000000000000000000000000000000000000")))
}
