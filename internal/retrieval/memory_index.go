package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/formbricks/evalhub/internal/models"
	vecmath "github.com/formbricks/evalhub/pkg/embeddings"
)

// ErrEmptyIndex is returned by LoadMemoryIndex when the export holds no vectors.
var ErrEmptyIndex = errors.New("retrieval: memory index has no vectors")

// MemoryIndex is an exact flat L2 index held in memory: vectors plus metadata aligned by position.
// Distances are squared L2. It is read-only after construction.
type MemoryIndex struct {
	vectors  [][]float32
	metadata []models.ReferencePassage
}

// NewMemoryIndex builds an index. metadata[i] describes vectors[i]; vectors with no metadata
// entry are still searched but resolve to no passage.
func NewMemoryIndex(vectors [][]float32, metadata []models.ReferencePassage) *MemoryIndex {
	return &MemoryIndex{vectors: vectors, metadata: metadata}
}

// memoryIndexFile is the JSON export layout.
type memoryIndexFile struct {
	Vectors  [][]float32         `json:"vectors"`
	Metadata []memoryIndexRecord `json:"metadata"`
}

// memoryIndexRecord accepts the passage text under content, snippet or text and the page under
// page or pageno.
type memoryIndexRecord struct {
	ChunkID string `json:"chunk_id,omitempty"`
	Source  string `json:"source"`
	Page    *int   `json:"page,omitempty"`
	PageNo  *int   `json:"pageno,omitempty"`
	Content string `json:"content,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (m memoryIndexRecord) passage() models.ReferencePassage {
	p := models.ReferencePassage{ChunkID: m.ChunkID, Source: m.Source}

	switch {
	case m.Page != nil:
		p.Page = *m.Page
	case m.PageNo != nil:
		p.Page = *m.PageNo
	}

	switch {
	case m.Content != "":
		p.Content = m.Content
	case m.Snippet != "":
		p.Content = m.Snippet
	default:
		p.Content = m.Text
	}

	return p
}

// LoadMemoryIndex reads a JSON export from path.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open memory index: %w", err)
	}
	defer f.Close()

	return ReadMemoryIndex(f)
}

// ReadMemoryIndex decodes a JSON export.
func ReadMemoryIndex(r io.Reader) (*MemoryIndex, error) {
	var file memoryIndexFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode memory index: %w", err)
	}

	if len(file.Vectors) == 0 {
		return nil, ErrEmptyIndex
	}

	metadata := make([]models.ReferencePassage, len(file.Metadata))
	for i, m := range file.Metadata {
		metadata[i] = m.passage()
	}

	return NewMemoryIndex(file.Vectors, metadata), nil
}

// WriteMemoryIndex encodes vectors and aligned passages as a JSON export readable by ReadMemoryIndex.
func WriteMemoryIndex(w io.Writer, vectors [][]float32, passages []models.ReferencePassage) error {
	file := memoryIndexFile{Vectors: vectors, Metadata: make([]memoryIndexRecord, len(passages))}

	for i, p := range passages {
		page := p.Page
		file.Metadata[i] = memoryIndexRecord{ChunkID: p.ChunkID, Source: p.Source, Page: &page, Content: p.Content}
	}

	if err := json.NewEncoder(w).Encode(file); err != nil {
		return fmt.Errorf("encode memory index: %w", err)
	}

	return nil
}

// Len returns the number of vectors.
func (m *MemoryIndex) Len() int {
	return len(m.vectors)
}

// Nearest scans every vector and returns the k closest by squared L2 distance.
func (m *MemoryIndex) Nearest(ctx context.Context, vector []float32, k int) ([]models.PassageHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return []models.PassageHit{}, nil
	}

	hits := make([]models.PassageHit, 0, len(m.vectors))

	for i, v := range m.vectors {
		if len(v) != len(vector) {
			continue
		}

		hit := models.PassageHit{Position: i, Distance: vecmath.SquaredL2Distance(vector, v)}
		if i < len(m.metadata) {
			p := m.metadata[i]
			hit.Passage = &p
		}

		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}
