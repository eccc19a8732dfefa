package browser

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"invoiceflow/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HttpAgent drives a cookie-holding HTTP session that behaves like a
// minimal browser: html responses become the current document, file
// responses are written into the download directory.
type HttpAgent struct {
	http        *resty.Client
	baseUrl     *url.URL
	downloadDir string

	location string
	doc      *goquery.Document
}

type HttpAgentOptions struct {
	BaseUrl     string
	UserAgent   string
	Timeout     time.Duration
	DownloadDir string
}

func NewHttpAgent(opts HttpAgentOptions) (*HttpAgent, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("a download directory is required")
	}
	err = os.MkdirAll(opts.DownloadDir, 0755)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "browser/http")

	return &HttpAgent{
		http:        client,
		baseUrl:     baseUrl,
		downloadDir: opts.DownloadDir,
	}, nil
}

func (a *HttpAgent) Navigate(ctx context.Context, link string) error {
	res, err := a.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigationFailed, link, err)
	}

	a.location = link
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		a.location = res.RawResponse.Request.URL.String()
	}

	if isFileResponse(res) {
		a.doc = nil
		return a.saveDownload(res)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return err
	}
	a.doc = doc
	return nil
}

func (a *HttpAgent) Location() string {
	return a.location
}

func (a *HttpAgent) Document() (*goquery.Document, error) {
	if a.doc == nil {
		return nil, ErrNoDocument
	}
	return a.doc, nil
}

func (a *HttpAgent) Click(ctx context.Context, selector string) error {
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

	target, err := a.resolve(href)
	if err != nil {
		return err
	}
	return a.Navigate(ctx, target)
}

func (a *HttpAgent) WaitLocation(ctx context.Context, timeout time.Duration, match func(location string) bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Millisecond * 250)
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

func (a *HttpAgent) Close() error {
	a.http.GetClient().CloseIdleConnections()
	return nil
}

// resolves a possibly relative href against the current location.
func (a *HttpAgent) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	base := a.baseUrl
	if a.location != "" {
		current, err := url.Parse(a.location)
		if err == nil {
			base = current
		}
	}
	return base.ResolveReference(ref).String(), nil
}

func isFileResponse(res *resty.Response) bool {
	contentType := res.Header().Get("Content-Type")
	if strings.Contains(contentType, "application/pdf") ||
		strings.Contains(contentType, "application/octet-stream") {
		return true
	}
	disposition := res.Header().Get("Content-Disposition")
	return strings.Contains(disposition, "attachment")
}

func (a *HttpAgent) saveDownload(res *resty.Response) error {
	name := downloadFilename(res)
	dest := filepath.Join(a.downloadDir, name)
	return os.WriteFile(dest, res.Body(), 0644)
}

func downloadFilename(res *resty.Response) string {
	disposition := res.Header().Get("Content-Disposition")
	if disposition != "" {
		_, params, err := mime.ParseMediaType(disposition)
		if err == nil && params["filename"] != "" {
			return filepath.Base(params["filename"])
		}
	}

	if res.RawResponse != nil && res.RawResponse.Request != nil {
		base := path.Base(res.RawResponse.Request.URL.Path)
		if base != "" && base != "/" && base != "." {
			if !strings.HasSuffix(base, ".pdf") {
				base += ".pdf"
			}
			return base
		}
	}
	return fmt.Sprintf("download_%d.pdf", time.Now().UnixNano())
}
