package liquidity

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidPriceRange marks a sqrt price outside the open (min, max) interval.
	ErrInvalidPriceRange = errors.New("liquidity: sqrt price outside allowed range")
	// ErrZeroLiquidity marks a degenerate pool where the computed depth is zero.
	ErrZeroLiquidity = errors.New("liquidity: liquidity cannot be zero")
	// ErrLiquidityOverflow marks a result that does not narrow into 128 bits.
	ErrLiquidityOverflow = errors.New("liquidity: result exceeds 128 bits")
	// ErrZeroAmount marks an empty base or quote side.
	ErrZeroAmount = errors.New("liquidity: amount must be positive")
)

// Default sqrt price bounds of the external constant-product pool program,
// expressed as X64 fixed-point values.
var (
	DefaultMinSqrtPrice = uint256.NewInt(4295048016)
	DefaultMaxSqrtPrice = uint256.MustFromDecimal("79226673521066979257578248091")
)

// safetyMarginDenom clamps derived prices 0.1% inside the pool bounds so the
// external program never sees an exact boundary value.
const safetyMarginDenom = 1000

// FromBase computes the liquidity supported by the base-token side:
//
//	L = base × √P × √P_max / (√P_max − √P)
//
// The triple product is evaluated with a 512-bit intermediate so no operand
// combination can overflow silently.
func FromBase(baseAmount uint64, sqrtPrice, sqrtMaxPrice *uint256.Int) (*uint256.Int, error) {
	if baseAmount == 0 {
		return nil, ErrZeroAmount
	}
	denom := new(uint256.Int)
	if _, underflow := denom.SubOverflow(sqrtMaxPrice, sqrtPrice); underflow || denom.IsZero() {
		return nil, fmt.Errorf("%w: sqrt price above max", ErrInvalidPriceRange)
	}
	product := new(uint256.Int)
	if _, overflow := product.MulOverflow(uint256.NewInt(baseAmount), sqrtPrice); overflow {
		return nil, ErrLiquidityOverflow
	}
	result := new(uint256.Int)
	if _, overflow := result.MulDivOverflow(product, sqrtMaxPrice, denom); overflow {
		return nil, ErrLiquidityOverflow
	}
	return result, nil
}

// FromQuote computes the liquidity supported by the raised quote-asset side:
//
//	L = (quote << 128) / (√P − √P_min)
func FromQuote(quoteAmount uint64, sqrtPrice, sqrtMinPrice *uint256.Int) (*uint256.Int, error) {
	if quoteAmount == 0 {
		return nil, ErrZeroAmount
	}
	denom := new(uint256.Int)
	if _, underflow := denom.SubOverflow(sqrtPrice, sqrtMinPrice); underflow || denom.IsZero() {
		return nil, fmt.Errorf("%w: sqrt price below min", ErrInvalidPriceRange)
	}
	shifted := new(uint256.Int).Lsh(uint256.NewInt(quoteAmount), 128)
	return new(uint256.Int).Div(shifted, denom), nil
}

// GetLiquidity derives the pool liquidity for the supplied deposit amounts at
// the target sqrt price. The price must sit strictly inside (min, max); the
// smaller of the two per-side liquidity figures wins and must narrow into 128
// bits without loss.
func GetLiquidity(baseAmount, quoteAmount uint64, sqrtPrice, sqrtMinPrice, sqrtMaxPrice *uint256.Int) (*uint256.Int, error) {
	if sqrtPrice == nil || sqrtMinPrice == nil || sqrtMaxPrice == nil {
		return nil, ErrInvalidPriceRange
	}
	if sqrtPrice.Cmp(sqrtMinPrice) <= 0 || sqrtPrice.Cmp(sqrtMaxPrice) >= 0 {
		return nil, ErrInvalidPriceRange
	}
	fromBase, err := FromBase(baseAmount, sqrtPrice, sqrtMaxPrice)
	if err != nil {
		return nil, err
	}
	fromQuote, err := FromQuote(quoteAmount, sqrtPrice, sqrtMinPrice)
	if err != nil {
		return nil, err
	}
	result := fromBase
	if fromQuote.Cmp(fromBase) < 0 {
		result = fromQuote
	}
	if result.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if result.BitLen() > 128 {
		return nil, ErrLiquidityOverflow
	}
	return new(uint256.Int).Set(result), nil
}

// DeriveSqrtPrice computes the bonding-curve target price for the raised
// capital against the reserved token supply:
//
//	√P = √(quote / base) × 2^64 = √((quote << 128) / base)
//
// The result is clamped 0.1% inside the pool bounds so pool creation never
// fails on an exact boundary.
func DeriveSqrtPrice(baseAmount, quoteAmount uint64, sqrtMinPrice, sqrtMaxPrice *uint256.Int) (*uint256.Int, error) {
	if baseAmount == 0 || quoteAmount == 0 {
		return nil, ErrZeroAmount
	}
	ratio := new(uint256.Int).Lsh(uint256.NewInt(quoteAmount), 128)
	ratio.Div(ratio, uint256.NewInt(baseAmount))
	price := new(uint256.Int).Sqrt(ratio)

	lower := new(uint256.Int).Div(sqrtMinPrice, uint256.NewInt(safetyMarginDenom))
	lower.Add(sqrtMinPrice, lower)
	upper := new(uint256.Int).Div(sqrtMaxPrice, uint256.NewInt(safetyMarginDenom))
	upper.Sub(sqrtMaxPrice, upper)
	if price.Cmp(lower) < 0 {
		price.Set(lower)
	}
	if price.Cmp(upper) > 0 {
		price.Set(upper)
	}
	return price, nil
}

// SplitEven halves a harvested fee amount, assigning any odd remainder to the
// first party. Both pool-fee claim sides use the same split.
func SplitEven(amount uint64) (uint64, uint64) {
	half := amount / 2
	return half + amount%2, half
}
