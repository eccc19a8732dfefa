package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"invoiceflow/lib/browser"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OrderRecord is one order from the history listing that carries an
// invoice link. records without a link never make it into the result.
type OrderRecord struct {
	OrderID    string
	InvoiceURL string
}

const (
	orderCardSelector = ".order-card, .order"
	orderIdMarker     = "Bestellnummer:"
	nextPageSelector  = ".a-pagination .a-last:not(.a-disabled) a"
)

// ScrapeOrders walks the (optionally year-filtered) order history
// listing page by page and collects every order that exposes an invoice
// link. a broken card is skipped, a broken page mid-walk ends the walk
// with whatever was collected so far. failing to load the listing at
// all is an error. each call starts over at page one.
func ScrapeOrders(ctx context.Context, agent browser.Agent, baseUrl string, year int) ([]OrderRecord, error) {
	ctx, span := tracer.Start(ctx, "ScrapeOrders")
	defer span.End()

	listingUrl := baseUrl + orderHistoryPath
	if year > 0 {
		listingUrl = fmt.Sprintf("%s?orderFilter=year-%d", listingUrl, year)
	}

	err := agent.Navigate(ctx, listingUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order listing")
		return nil, fmt.Errorf("failed to load order listing: %w", err)
	}

	var records []OrderRecord
	page := 1
	for {
		doc, err := agent.Document()
		if err != nil {
			if page == 1 {
				span.RecordError(err)
				span.SetStatus(codes.Error, "order listing did not render")
				return nil, fmt.Errorf("order listing did not render: %w", err)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "listing page did not render")
			slog.ErrorContext(ctx, "listing page did not render", "page", page, "err", err)
			break
		}

		slog.InfoContext(ctx, "scraping listing page", "page", page)
		records = append(records, scrapeOrderCards(ctx, doc, agent.Location())...)

		next := doc.Find(nextPageSelector)
		if next.Length() == 0 {
			slog.DebugContext(ctx, "no next page, listing exhausted", "pages", page)
			break
		}
		err = agent.Click(ctx, nextPageSelector)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to open the next listing page")
			slog.ErrorContext(ctx, "failed to open the next listing page", "page", page, "err", err)
			break
		}
		page++
	}

	span.SetAttributes(
		attribute.Int("pages", page),
		attribute.Int("records", len(records)),
	)
	return records, nil
}

func scrapeOrderCards(ctx context.Context, doc *goquery.Document, pageUrl string) []OrderRecord {
	var records []OrderRecord

	doc.Find(orderCardSelector).Each(func(_ int, card *goquery.Selection) {
		orderId, err := extractOrderId(card)
		if err != nil {
			// one broken card must not abort the page
			slog.WarnContext(ctx, "skipping order card", "err", err)
			return
		}

		link := card.Find(`a[href*="invoice"]`).First()
		if link.Length() == 0 {
			// marketplace orders commonly have no invoice, not an error
			slog.DebugContext(ctx, "order has no invoice link", "order_id", orderId)
			return
		}

		invoiceUrl, err := absoluteUrl(pageUrl, link.AttrOr("href", ""))
		if err != nil {
			slog.WarnContext(ctx, "skipping order card", "order_id", orderId, "err", err)
			return
		}

		slog.InfoContext(ctx, "found order", "order_id", orderId)
		records = append(records, OrderRecord{
			OrderID:    orderId,
			InvoiceURL: invoiceUrl,
		})
	})

	return records
}

func extractOrderId(card *goquery.Selection) (string, error) {
	idElement := card.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), orderIdMarker)
	}).Last()
	if idElement.Length() == 0 {
		return "", fmt.Errorf("order card has no %q element", orderIdMarker)
	}

	orderId := strings.TrimSpace(strings.ReplaceAll(idElement.Text(), orderIdMarker, ""))
	if orderId == "" {
		return "", fmt.Errorf("order card has an empty order id")
	}
	return orderId, nil
}

func absoluteUrl(pageUrl, href string) (string, error) {
	if href == "" {
		return "", fmt.Errorf("invoice link has no href")
	}
	base, err := url.Parse(pageUrl)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
