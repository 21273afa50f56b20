// Package voucher applies promotional codes to a base price. The calculator
// is pure; the single usage-count increment after a successful application is
// the caller's write.
package voucher

import "time"

// Discount types.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

// Voucher is the item stored in the vouchers table.
type Voucher struct {
	Code          string    `dynamodbav:"code"` // PK, stored uppercase
	DiscountType  string    `dynamodbav:"discount_type"`
	DiscountValue int64     `dynamodbav:"discount_value"`
	MaxDiscount   int64     `dynamodbav:"max_discount,omitempty"`
	MinPurchase   int64     `dynamodbav:"min_purchase,omitempty"`
	MaxUses       int64     `dynamodbav:"max_uses,omitempty"`
	UsedCount     int64     `dynamodbav:"used_count"`
	IsActive      bool      `dynamodbav:"is_active"`
	ValidFrom     time.Time `dynamodbav:"valid_from"`
	ValidUntil    time.Time `dynamodbav:"valid_until"`
	Description   string    `dynamodbav:"description,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
}
