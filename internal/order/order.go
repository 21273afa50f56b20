// Package order persists purchase attempts and owns the conditional-write
// primitives the fulfillment coordinator relies on.
package order

import "time"

// Order statuses. Transitions are forward-only: pending -> paid, pending ->
// expired, pending -> cancelled. paid is terminal.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Order is the item stored in the orders table.
type Order struct {
	OrderID         string    `dynamodbav:"order_id"` // PK
	BaseAmount      int64     `dynamodbav:"base_amount"`
	VoucherCode     string    `dynamodbav:"voucher_code,omitempty"`
	VoucherDiscount int64     `dynamodbav:"voucher_discount,omitempty"`
	FinalAmount     int64     `dynamodbav:"final_amount"`
	UniqueAmount    int64     `dynamodbav:"unique_amount"` // GSI key, the wire-matching amount
	Status          string    `dynamodbav:"status"`
	CustomerEmail   string    `dynamodbav:"customer_email,omitempty"`
	CustomerPhone   string    `dynamodbav:"customer_phone,omitempty"`
	QRPayload       string    `dynamodbav:"qr_payload,omitempty"`
	QRImage         string    `dynamodbav:"qr_image,omitempty"` // PNG data URL
	CredentialID    string    `dynamodbav:"credential_id,omitempty"`
	TransactionRef  string    `dynamodbav:"transaction_ref,omitempty"`
	PaidAt          time.Time `dynamodbav:"paid_at,omitempty"`
	ExpiresAt       time.Time `dynamodbav:"expires_at"`
	Locked          bool      `dynamodbav:"locked"`
	LockedAt        time.Time `dynamodbav:"locked_at,omitempty"`
	LockedBy        string    `dynamodbav:"locked_by,omitempty"`
	Attempts        int       `dynamodbav:"attempts,omitempty"`
	CreatedAt       time.Time `dynamodbav:"created_at"`
	UpdatedAt       time.Time `dynamodbav:"updated_at"`
}

// Expired reports whether the order's validity window has elapsed. An order
// past this point is treated as abandoned regardless of its stored status.
func (o *Order) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
