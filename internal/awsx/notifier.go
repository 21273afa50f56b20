package awsx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// FulfillmentEvent is the payload handed to the downstream notification
// consumer after an order is fulfilled. The core publishes it and moves on;
// delivery to the end channel (chat bot, email) is someone else's job.
type FulfillmentEvent struct {
	OrderID         string    `json:"order_id"`
	Status          string    `json:"status"`
	BaseAmount      int64     `json:"base_amount"`
	UniqueAmount    int64     `json:"unique_amount"`
	VoucherCode     string    `json:"voucher_code,omitempty"`
	VoucherDiscount int64     `json:"voucher_discount,omitempty"`
	CredentialID    string    `json:"credential_id,omitempty"`
	CustomerEmail   string    `json:"customer_email,omitempty"`
	PaidAt          time.Time `json:"paid_at,omitempty"`
	Note            string    `json:"note,omitempty"`
}

// Notifier publishes fulfillment events to an SQS queue.
type Notifier struct {
	SQS      SQSAPI
	QueueURL string
}

// NewNotifier returns a Notifier bound to a queue URL.
func NewNotifier(sqsClient SQSAPI, queueURL string) *Notifier {
	return &Notifier{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Publish sends one fulfillment event. Callers treat failures as best-effort:
// the order state is already durable before this runs.
func (n *Notifier) Publish(ctx context.Context, ev FulfillmentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msgBody := string(body)

	input := &sqs.SendMessageInput{
		QueueUrl:    &n.QueueURL,
		MessageBody: &msgBody,
	}
	attrs := map[string]string{
		"order_id": ev.OrderID,
		"status":   ev.Status,
	}
	input.MessageAttributes = map[string]sqstypes.MessageAttributeValue{}
	for k, v := range attrs {
		v := v
		input.MessageAttributes[k] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: &v,
		}
	}

	if _, err := n.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
