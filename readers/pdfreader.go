package readers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PdfReader struct{}

func (r *PdfReader) Exts() []string {
	return []string{".pdf"}
}

// ReadText extracts text page by page and joins pages with newlines.
// A page that cannot be parsed contributes an empty string instead of
// failing the whole document.
func (r *PdfReader) ReadText(data []byte) (text string, err error) {
	// the pdf package panics rather than returning errors on some
	// malformed documents
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("failed to open pdf document: %v", p)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf document: %w", err)
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		pages = append(pages, extractPage(doc, i))
	}

	return strings.Join(pages, "\n"), nil
}

func extractPage(doc *pdf.Reader, num int) (text string) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	page := doc.Page(num)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}

	return text
}
