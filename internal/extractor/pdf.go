package extractor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// pageSource is the paginated view of a document the extractor walks.
type pageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.r.NumPage() }

// PageText returns the plain text of page i (1-based).
func (p pdfPages) PageText(i int) (string, error) {
	page := p.r.Page(i)
	if page.V.IsNull() || page.V.Key("Contents").IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// Extract opens the PDF at path and returns its text as one normalized string.
// Pages without a text layer contribute nothing.
func Extract(path string) (text string, err error) {
	defer func() {
		// the pdf package panics on some malformed cross-reference tables
		if r := recover(); r != nil {
			text, err = "", domain.E(domain.KindExtraction, "extract", fmt.Errorf("malformed pdf %s: %v", path, r))
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", domain.E(domain.KindExtraction, "extract", fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()
	return joinPages(pdfPages{r: r})
}

func joinPages(src pageSource) (string, error) {
	var b strings.Builder
	for i := 1; i <= src.NumPage(); i++ {
		raw, err := src.PageText(i)
		if err != nil {
			return "", domain.E(domain.KindExtraction, "extract", fmt.Errorf("page %d: %w", i, err))
		}
		b.WriteString(normalizePage(raw))
	}
	return b.String(), nil
}

var pageCleaner = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// normalizePage trims the page and drops tabs and line breaks.
func normalizePage(raw string) string {
	return pageCleaner.Replace(strings.TrimSpace(raw))
}

// IsPDF checks if the provided filename has a .pdf extension (case-insensitive).
func IsPDF(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
