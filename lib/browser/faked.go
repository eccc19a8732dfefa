package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// FakedPage describes what a FakedAgent serves for one url.
type FakedPage struct {
	Html string
	// RedirectTo, when set, becomes the final location instead of the
	// requested url.
	RedirectTo string
	// DownloadName, when set, writes DownloadBody into the download
	// directory instead of producing a document.
	DownloadName string
	DownloadBody []byte
	Err          error
}

// FakedAgent is a scripted Agent used in tests.
type FakedAgent struct {
	Pages       map[string]FakedPage
	DownloadDir string

	Navigations []string
	Clicks      []string
	Closed      bool

	location string
	doc      *goquery.Document
}

func (a *FakedAgent) Navigate(ctx context.Context, link string) error {
	a.Navigations = append(a.Navigations, link)

	page, ok := a.Pages[link]
	if !ok {
		return fmt.Errorf("%w: no scripted page for %s", ErrNavigationFailed, link)
	}
	if page.Err != nil {
		return page.Err
	}

	a.location = link
	if page.RedirectTo != "" {
		a.location = page.RedirectTo
	}

	if page.DownloadName != "" {
		a.doc = nil
		return os.WriteFile(
			filepath.Join(a.DownloadDir, page.DownloadName),
			page.DownloadBody,
			0644,
		)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(page.Html))
	if err != nil {
		return err
	}
	a.doc = doc
	return nil
}

func (a *FakedAgent) Location() string {
	return a.location
}

func (a *FakedAgent) Document() (*goquery.Document, error) {
	if a.doc == nil {
		return nil, ErrNoDocument
	}
	return a.doc, nil
}

func (a *FakedAgent) Click(ctx context.Context, selector string) error {
	a.Clicks = append(a.Clicks, selector)

	doc, err := a.Document()
	if err != nil {
		return err
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
	}
	href := sel.AttrOr("href", "")
	if href == "" {
		href = sel.Find("a").First().AttrOr("href", "")
	}
	if href == "" {
		return fmt.Errorf("%w: %s has no href", ErrNoSuchElement, selector)
	}

	current, err := url.Parse(a.location)
	if err != nil {
		return err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return err
	}
	return a.Navigate(ctx, current.ResolveReference(ref).String())
}

func (a *FakedAgent) WaitLocation(ctx context.Context, timeout time.Duration, match func(location string) bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Millisecond * 5)
	defer ticker.Stop()

	for {
		if match(a.Location()) {
			return nil
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrLocationTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *FakedAgent) Close() error {
	a.Closed = true
	return nil
}
