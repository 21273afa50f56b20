package awsx

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const alertNamespace = "PayflowCore"

// Alerter emits operator-facing metrics. A stock-out (matched payment, empty
// credential pool) is the condition an on-call person must see quickly.
type Alerter struct {
	CloudWatch CloudWatchAPI
	nowFunc    func() time.Time
}

// NewAlerter returns an Alerter over the given CloudWatch client.
func NewAlerter(cw CloudWatchAPI) *Alerter {
	return &Alerter{CloudWatch: cw, nowFunc: time.Now}
}

// CredentialStockOut records one stock-out datapoint for the given order.
func (a *Alerter) CredentialStockOut(ctx context.Context, orderID string) error {
	return a.put(ctx, "CredentialStockOut", orderID)
}

// FeedUnavailable records one reconciliation-feed failure datapoint.
func (a *Alerter) FeedUnavailable(ctx context.Context, orderID string) error {
	return a.put(ctx, "FeedUnavailable", orderID)
}

func (a *Alerter) put(ctx context.Context, metric, orderID string) error {
	ts := a.nowFunc()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(alertNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString(metric),
				Timestamp:  &ts,
				Value:      sdkaws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("OrderID"), Value: awsString(orderID)},
				},
			},
		},
	}
	if _, err := a.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
