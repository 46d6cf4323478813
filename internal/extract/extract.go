package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// Keep pdfcpu from writing a config directory under $HOME.
	api.DisableConfigDir()
}

// Result is the plain-text record extracted from one source file.
type Result struct {
	Pages int
	Text  string
}

// PDF extracts text from PDF files.
type PDF struct{}

// Extract reads the PDF at path and returns its text, pages joined by blank
// lines. It fails when the file is unreadable, structurally invalid, or
// contains no extractable text. Individual unreadable pages are skipped.
func (PDF) Extract(path string) (result *Result, err error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading page count: %w", err)
	}

	// The parser panics on some malformed inputs; surface those as errors.
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	text := strings.Join(pages, "\n\n")
	if text == "" {
		return nil, fmt.Errorf("no extractable text")
	}

	return &Result{Pages: pageCount, Text: text}, nil
}
