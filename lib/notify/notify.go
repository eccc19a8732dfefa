package notify

import (
	"context"
	"errors"
)

// Notifier delivers a run summary through an out-of-band channel.
// delivery failure is never fatal to the pipeline.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// MultiNotifier fans a summary out to several notifiers, attempting
// every one of them before reporting a combined error.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) MultiNotifier {
	return MultiNotifier{notifiers: notifiers}
}

func (m MultiNotifier) Send(ctx context.Context, subject, body string) error {
	var errlist []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, subject, body); err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

// NoopNotifier is used when no delivery channel is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, subject, body string) error { return nil }
