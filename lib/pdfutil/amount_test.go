package pdfutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writePdf assembles a minimal single-page pdf whose uncompressed
// content stream draws the given text.
func writePdf(t *testing.T, path, text string) {
	t.Helper()

	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestExtractAmount(t *testing.T) {
	dir := t.TempDir()

	invoice := filepath.Join(dir, "rechnung.pdf")
	writePdf(t, invoice, "Gesamtbetrag: 49,99 EUR")
	amount, err := ExtractAmount(invoice)
	require.NoError(t, err)
	require.InDelta(t, 49.99, amount, 0.001)

	// readable document without any amount is not an error
	note := filepath.Join(dir, "lieferschein.pdf")
	writePdf(t, note, "Lieferschein ohne Summen")
	amount, err = ExtractAmount(note)
	require.NoError(t, err)
	require.Zero(t, amount)
}

func TestAmountFromText(t *testing.T) {
	for _, tc := range []struct {
		name   string
		text   string
		amount float64
		found  bool
	}{
		{
			name:   "labeled total",
			text:   "Zwischensumme 41,17 EUR\nGesamtbetrag: 49,99",
			amount: 49.99,
			found:  true,
		},
		{
			name:   "thousands separator",
			text:   "Rechnungsbetrag 1.234,56 EUR",
			amount: 1234.56,
			found:  true,
		},
		{
			name:   "currency suffix fallback",
			text:   "Betrag 19,90 EUR inkl. MwSt.",
			amount: 19.9,
			found:  true,
		},
		{
			name:  "no amount",
			text:  "Lieferschein ohne Summen",
			found: false,
		},
		{
			name:  "zero is not an amount",
			text:  "Gesamtbetrag: 0,00",
			found: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			amount, found := AmountFromText(tc.text)
			require.Equal(t, tc.found, found)
			if tc.found {
				require.InDelta(t, tc.amount, amount, 0.001)
			}
		})
	}
}

func TestExtractAmountMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaputt.pdf")
	err := os.WriteFile(path, []byte("definitely not a pdf"), 0644)
	require.NoError(t, err)

	_, err = ExtractAmount(path)
	require.ErrorIs(t, err, ErrMalformedDocument)
}
