package storefront

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"invoiceflow/lib/browser"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/storefront")

const (
	orderHistoryPath = "/gp/your-account/order-history"
	signinMarker     = "ap/signin"
	historyMarker    = "order-history"
)

var ErrSessionDetectTimeout = errors.New("timed out detecting the session state")

// OperatorSignal blocks until an operator reports that manual login
// is complete. any external trigger may satisfy it.
type OperatorSignal interface {
	Wait(ctx context.Context) error
}

// ConsoleSignal waits for a newline on the given reader.
type ConsoleSignal struct {
	In io.Reader
}

func (s ConsoleSignal) Wait(ctx context.Context) error {
	in := s.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprintln(os.Stderr, "Complete the login in the browser, then press ENTER to continue.")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

type SessionWaits struct {
	// Detect bounds how long the location may stay unrecognized.
	Detect time.Duration
	// Login bounds the wait for the authenticated location after the
	// operator reported a completed login.
	Login time.Duration
}

func (w SessionWaits) withDefaults() SessionWaits {
	if w.Detect == 0 {
		w.Detect = time.Second * 10
	}
	if w.Login == 0 {
		w.Login = time.Second * 60
	}
	return w
}

// EnsureAuthenticated navigates to the order history endpoint and makes
// sure the browsing context is signed in, suspending on the operator
// signal when a manual login is required. a failure here aborts the
// whole acquisition stage, there are no retries at this layer.
func EnsureAuthenticated(ctx context.Context, agent browser.Agent, baseUrl string, signal OperatorSignal, waits SessionWaits) error {
	ctx, span := tracer.Start(ctx, "EnsureAuthenticated")
	defer span.End()

	waits = waits.withDefaults()
	historyUrl := baseUrl + orderHistoryPath

	err := agent.Navigate(ctx, historyUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order history")
		return err
	}

	err = agent.WaitLocation(ctx, waits.Detect, func(location string) bool {
		return strings.Contains(location, historyMarker) ||
			strings.Contains(location, signinMarker)
	})
	if errors.Is(err, browser.ErrLocationTimeout) {
		span.SetStatus(codes.Error, ErrSessionDetectTimeout.Error())
		return fmt.Errorf("%w: location is %q", ErrSessionDetectTimeout, agent.Location())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to wait for session state")
		return err
	}

	// the signin url may carry the history path in its return_to
	// parameter, so it must be checked first
	if !strings.Contains(agent.Location(), signinMarker) {
		slog.DebugContext(ctx, "session already authenticated")
		return nil
	}

	if signal == nil {
		err := fmt.Errorf("manual login required but no operator signal is configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	slog.InfoContext(ctx, "manual login required, waiting for the operator signal")
	err = signal.Wait(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operator signal failed")
		return err
	}

	err = agent.Navigate(ctx, historyUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reload order history after login")
		return err
	}
	err = agent.WaitLocation(ctx, waits.Login, func(location string) bool {
		return strings.Contains(location, historyMarker) &&
			!strings.Contains(location, signinMarker)
	})
	if errors.Is(err, browser.ErrLocationTimeout) {
		span.SetStatus(codes.Error, ErrSessionDetectTimeout.Error())
		return fmt.Errorf("%w: still not authenticated after login", ErrSessionDetectTimeout)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to wait for login")
		return err
	}

	slog.InfoContext(ctx, "login successful")
	return nil
}
