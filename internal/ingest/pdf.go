package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadPDFPages returns the plain text of every page of the PDF at path, in page order. Pages without a
// text layer come back empty so later page numbers stay aligned.
func ReadPDFPages(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	pages := make([]string, reader.NumPage())

	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", i+1, err)
		}

		pages[i] = text
	}

	return pages, nil
}

// readDocument returns the text of a supported document with pages separated by form feeds.
func readDocument(path, ext string) (string, error) {
	if ext == ".pdf" {
		pages, err := ReadPDFPages(path)
		if err != nil {
			return "", err
		}

		return strings.Join(pages, pageBreak), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
