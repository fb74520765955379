// Package ingest splits reference documents into passages with provenance.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/formbricks/evalhub/internal/models"
)

// DefaultMaxChars is the passage window size in characters.
const DefaultMaxChars = 1200

// pageBreak separates pages in plain-text exports.
const pageBreak = "\f"

// SupportedExtensions lists the document types read by ReadDir. PDFs are read page by page; text
// files use form feeds as page breaks.
var SupportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".pdf": true,
}

// ChunkDocument splits text into passages. Pages are separated by form feeds and numbered from 1.
// Whitespace runs collapse to one space, blank pages are skipped and each page is cut into windows
// of at most maxChars characters. Chunk ids are "<name>_p<page>_c<n>".
func ChunkDocument(name, text string, maxChars int) []models.CreateReferencePassageRequest {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var out []models.CreateReferencePassageRequest

	for i, page := range strings.Split(text, pageBreak) {
		pageNumber := i + 1

		runes := []rune(strings.Join(strings.Fields(page), " "))
		if len(runes) == 0 {
			continue
		}

		for start, n := 0, 1; start < len(runes); start, n = start+maxChars, n+1 {
			end := min(start+maxChars, len(runes))

			out = append(out, models.CreateReferencePassageRequest{
				ChunkID: fmt.Sprintf("%s_p%d_c%d", name, pageNumber, n),
				Source:  name,
				Page:    pageNumber,
				Content: string(runes[start:end]),
			})
		}
	}

	return out
}

// ReadDir chunks every supported document directly under dir, in file name order.
func ReadDir(dir string, maxChars int) ([]models.CreateReferencePassageRequest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !SupportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}

		names = append(names, e.Name())
	}

	sort.Strings(names)

	var out []models.CreateReferencePassageRequest

	for _, name := range names {
		text, err := readDocument(filepath.Join(dir, name), strings.ToLower(filepath.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		out = append(out, ChunkDocument(name, text, maxChars)...)
	}

	return out, nil
}
