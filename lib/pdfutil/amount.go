package pdfutil

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

var ErrMalformedDocument = errors.New("the document could not be read as a pdf")

// invoice totals as they appear on German storefront invoices,
// label-anchored first, bare currency-suffixed amounts as a fallback
var amountRegexps = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Gesamtbetrag|Gesamtsumme|Rechnungsbetrag|Zu zahlender Betrag|Total)[^0-9]{0,60}(\d{1,3}(?:\.\d{3})*,\d{2})`),
	regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*,\d{2})\s*(?:EUR|€)`),
}

// ExtractAmount pulls the invoice total out of a pdf. a readable pdf
// without a recognizable amount yields (0, nil), only a document that
// cannot be read at all is an error.
func ExtractAmount(path string) (float64, error) {
	doc, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, path, err)
	}

	var pageErr error
	for page := 1; page <= doc.PageCount; page++ {
		content, err := pdfcpu.ExtractPageContent(doc, page)
		if err != nil {
			pageErr = err
			continue
		}
		if content == nil {
			continue
		}
		text, err := io.ReadAll(content)
		if err != nil {
			pageErr = err
			continue
		}

		amount, ok := AmountFromText(string(text))
		if ok {
			return amount, nil
		}
	}

	if pageErr != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, path, pageErr)
	}
	return 0, nil
}

// AmountFromText scans extracted document text for an invoice total.
func AmountFromText(text string) (float64, bool) {
	for _, re := range amountRegexps {
		groups := re.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}
		amount, err := parseGermanAmount(groups[1])
		if err != nil {
			continue
		}
		if amount > 0 {
			return amount, true
		}
	}
	return 0, false
}

// parses "1.234,56" into 1234.56
func parseGermanAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
