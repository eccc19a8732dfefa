package browser

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Agent is a controllable browsing context. implementations navigate,
// expose the current location and rendered document, click same-origin
// links and write downloads into a configured directory as a side effect.
type Agent interface {
	// Navigate loads the given url. if the response is a file download
	// it lands in the agent's download directory instead of becoming
	// the current document.
	Navigate(ctx context.Context, url string) error
	// Location returns the url of the page currently loaded,
	// after any redirects.
	Location() string
	// Document returns the currently loaded page.
	Document() (*goquery.Document, error)
	// Click follows the first anchor matching the selector
	// on the current document.
	Click(ctx context.Context, selector string) error
	// WaitLocation blocks until match accepts the current location
	// or the timeout expires.
	WaitLocation(ctx context.Context, timeout time.Duration, match func(location string) bool) error
	Close() error
}

var (
	ErrNoDocument       = errors.New("the current page is not a document")
	ErrNoSuchElement    = errors.New("no element matches the selector")
	ErrLocationTimeout  = errors.New("timed out waiting for location")
	ErrNavigationFailed = errors.New("navigation failed")
)
