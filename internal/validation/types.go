package validation

// CreateOrderRequest is the payload for POST /payment/create. At least one of
// Email or Phone must be present so the purchased account can be delivered;
// that rule lives in the struct-level validator.
type CreateOrderRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,numeric,min=8,max=20"`
	VoucherCode string `json:"voucherCode" validate:"omitempty,min=3,max=32"`
}

// CheckOrderRequest is the payload for POST /payment/check.
type CheckOrderRequest struct {
	OrderID string `json:"orderId" validate:"required,min=1,max=64"`
}

// ValidateVoucherRequest previews a voucher against an amount without
// consuming a use. Amount falls back to the configured base price when zero.
type ValidateVoucherRequest struct {
	Code   string `json:"voucherCode" validate:"required,min=3,max=32"`
	Amount int64  `json:"amount" validate:"omitempty,gt=0"`
}
