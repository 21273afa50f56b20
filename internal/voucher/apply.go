package voucher

import (
	"errors"
	"time"
)

// Distinct rejection reasons; each maps to a verbatim 400 at the edge.
var (
	ErrInactive     = errors.New("voucher: not active")
	ErrNotYetValid  = errors.New("voucher: not yet valid")
	ErrExpired      = errors.New("voucher: expired")
	ErrExhausted    = errors.New("voucher: usage limit reached")
	ErrBelowMinimum = errors.New("voucher: purchase below minimum")
)

// Result carries the outcome of applying a voucher to a base price.
type Result struct {
	Discount int64
	Final    int64
}

// Apply computes the discount for base under v at the given instant. It never
// mutates v; persisting the used_count increment is the caller's one write
// after a successful application.
func Apply(base int64, v *Voucher, now time.Time) (Result, error) {
	if !v.IsActive {
		return Result{}, ErrInactive
	}
	if now.Before(v.ValidFrom) {
		return Result{}, ErrNotYetValid
	}
	if now.After(v.ValidUntil) {
		return Result{}, ErrExpired
	}
	if v.MaxUses > 0 && v.UsedCount >= v.MaxUses {
		return Result{}, ErrExhausted
	}
	if v.MinPurchase > 0 && base < v.MinPurchase {
		return Result{}, ErrBelowMinimum
	}

	var discount int64
	switch v.DiscountType {
	case TypePercentage:
		value := v.DiscountValue
		// out-of-range percentages are a creation-time validation bug,
		// but clamp anyway rather than hand out money
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		discount = base * value / 100
		if v.MaxDiscount > 0 && discount > v.MaxDiscount {
			discount = v.MaxDiscount
		}
	default:
		discount = v.DiscountValue
	}

	// the payable amount can never go negative
	if discount > base {
		discount = base
	}
	if discount < 0 {
		discount = 0
	}

	return Result{Discount: discount, Final: base - discount}, nil
}
