package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkDocument_pagesAndWindows(t *testing.T) {
	text := "uno  dos\n\ttres" + "\f" + "   \n" + "\f" + strings.Repeat("á", 25)

	chunks := ChunkDocument("fasciculo.txt", text, 10)
	require.Len(t, chunks, 4)

	assert.Equal(t, "fasciculo.txt_p1_c1", chunks[0].ChunkID)
	assert.Equal(t, "uno dos tr", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "fasciculo.txt_p1_c2", chunks[1].ChunkID)
	assert.Equal(t, "es", chunks[1].Content)

	assert.Equal(t, "fasciculo.txt_p3_c1", chunks[2].ChunkID)
	assert.Equal(t, 3, chunks[2].Page)
	assert.Equal(t, 10, utf8.RuneCountInString(chunks[2].Content))
	assert.Equal(t, "fasciculo.txt_p3_c3", chunks[3].ChunkID)
	assert.Equal(t, 5, utf8.RuneCountInString(chunks[3].Content))

	for _, c := range chunks {
		assert.Equal(t, "fasciculo.txt", c.Source)
		assert.True(t, utf8.ValidString(c.Content))
	}
}

func TestChunkDocument_defaults(t *testing.T) {
	chunks := ChunkDocument("a.md", strings.Repeat("x", DefaultMaxChars+1), 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Content, DefaultMaxChars)

	assert.Empty(t, ChunkDocument("vacio.txt", " \n\f\t", 0))
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("segundo"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("primero"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.docx"), []byte("PK"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o700))

	chunks, err := ReadDir(dir, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a.md_p1_c1", chunks[0].ChunkID)
	assert.Equal(t, "b.txt", chunks[1].Source)
}

func TestReadPDFPages(t *testing.T) {
	pages, err := ReadPDFPages(filepath.Join("testdata", "lecturas.pdf"))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Contains(t, pages[0], "Evaluar es valorar el aprendizaje")
	assert.Empty(t, strings.TrimSpace(pages[1]))
	assert.Contains(t, pages[2], "La retroalimentacion orienta al estudiante")
}

func TestReadDir_pdfKeepsPageNumbers(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "lecturas.pdf"))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lecturas.pdf"), data, 0o600))

	chunks, err := ReadDir(dir, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "lecturas.pdf_p1_c1", chunks[0].ChunkID)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Contains(t, chunks[0].Content, "Evaluar es valorar")

	assert.Equal(t, "lecturas.pdf_p3_c1", chunks[1].ChunkID)
	assert.Equal(t, 3, chunks[1].Page)
	assert.Equal(t, "lecturas.pdf", chunks[1].Source)
}

func TestReadDir_invalidPDF(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roto.pdf"), []byte("%PDF"), 0o600))

	_, err := ReadDir(dir, 0)
	require.Error(t, err)
}
