package num

// Fixed point scales used across the protocol. Prices and reward rates are
// WAD (1e18) scaled, the gauge share accumulator uses the wider 1e36 scale
// so that truncation per settlement stays below one token unit.
var (
	wad       = MustUintFromString("1000000000000000000")
	precision = MustUintFromString("1000000000000000000000000000000000000")

	wadD = MustDecimalFromString("1000000000000000000")
)

// WAD returns the 1e18 fixed point unit.
func WAD() *Uint {
	return wad.Clone()
}

// Precision returns the 1e36 fixed point unit of the gauge accumulator.
func Precision() *Uint {
	return precision.Clone()
}

// DecimalWad returns 1e18 as a Decimal.
func DecimalWad() Decimal {
	return wadD
}

// WadMul computes x * y / 1e18, truncating.
func WadMul(x, y *Uint) *Uint {
	r, _ := MulDiv(x, y, wad)
	return r
}

// WadDiv computes x * 1e18 / y, truncating. y must not be zero.
func WadDiv(x, y *Uint) *Uint {
	r, _ := MulDiv(x, wad, y)
	return r
}
