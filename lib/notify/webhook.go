package notify

import (
	"context"
	"fmt"
	"time"

	"invoiceflow/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier posts the summary as a json payload, compatible with
// Slack-style incoming webhooks.
type WebhookNotifier struct {
	url  string
	http *resty.Client
}

func NewWebhookNotifier(url string) WebhookNotifier {
	client := resty.New()
	client.SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "notify/webhook")

	return WebhookNotifier{
		url:  url,
		http: client,
	}
}

func (n WebhookNotifier) Send(ctx context.Context, subject, body string) error {
	res, err := n.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"text": fmt.Sprintf("*%s*\n%s", subject, body),
		}).
		Post(n.url)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("webhook returned status %d", res.StatusCode())
	}
	return nil
}
