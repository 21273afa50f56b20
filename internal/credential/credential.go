// Package credential manages the pool of sellable login artifacts. The core
// flow only ever moves one available record to used; restocking and admin
// resets happen elsewhere.
package credential

import "time"

// Credential statuses.
const (
	StatusAvailable = "available"
	StatusUsed      = "used"
	StatusExpired   = "expired"
	StatusInvalid   = "invalid"
)

// Credential is the item stored in the credentials table.
type Credential struct {
	CredentialID string    `dynamodbav:"credential_id"` // PK
	Email        string    `dynamodbav:"email"`
	Password     string    `dynamodbav:"password"`
	AccountType  string    `dynamodbav:"account_type,omitempty"`
	Status       string    `dynamodbav:"status"`
	UsedBy       string    `dynamodbav:"used_by,omitempty"`
	UsedAt       time.Time `dynamodbav:"used_at,omitempty"`
	OrderID      string    `dynamodbav:"order_id,omitempty"`
	Notes        string    `dynamodbav:"notes,omitempty"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`
}
