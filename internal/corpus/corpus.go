// Package corpus holds the static evaluation context loaded once at startup: expected answers,
// rubrics and the optional lecture transcript.
package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/rubrics"
)

// Corpus is immutable after construction and safe for concurrent use.
type Corpus struct {
	expected   map[string]models.ExpectedAnswer
	rubrics    *rubrics.Table
	transcript string
}

// New builds a Corpus. A nil rubric table is treated as empty.
func New(expected []models.ExpectedAnswer, table *rubrics.Table, transcript string) *Corpus {
	m := make(map[string]models.ExpectedAnswer, len(expected))
	for _, e := range expected {
		m[e.QuestionID] = e
	}

	if table == nil {
		table = rubrics.NewTable(nil)
	}

	return &Corpus{expected: m, rubrics: table, transcript: transcript}
}

// Paths locates the corpus files. Empty or missing files produce an empty part.
type Paths struct {
	ExpectedAnswers string
	Rubrics         string
	Transcript      string
}

// LoadFiles reads every part of the corpus from disk.
func LoadFiles(paths Paths) (*Corpus, error) {
	expected, err := LoadExpectedAnswersFile(paths.ExpectedAnswers)
	if err != nil {
		return nil, err
	}

	table, err := rubrics.LoadFile(paths.Rubrics)
	if err != nil {
		return nil, err
	}

	transcript, err := LoadTranscript(paths.Transcript)
	if err != nil {
		return nil, err
	}

	slog.Info("corpus loaded",
		"expected_answers", len(expected),
		"rubrics", table.Len(),
		"transcript_chars", len(transcript),
	)

	return New(expected, table, transcript), nil
}

// ExpectedAnswer returns the expected answer for questionID.
func (c *Corpus) ExpectedAnswer(questionID string) (models.ExpectedAnswer, bool) {
	e, ok := c.expected[strings.TrimSpace(questionID)]

	return e, ok
}

// Rubric resolves the rubric for questionID (KindNone when absent).
func (c *Corpus) Rubric(questionID string) rubrics.Rubric {
	return c.rubrics.Resolve(strings.TrimSpace(questionID))
}

// Transcript returns the lecture transcript, or "" when none was loaded.
func (c *Corpus) Transcript() string {
	return c.transcript
}

// Len returns the number of expected answers.
func (c *Corpus) Len() int {
	return len(c.expected)
}

// LoadTranscript reads a plain-text transcript. An empty path or a missing file yields "".
// Blank lines are dropped.
func LoadTranscript(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("transcript not found, continuing without it", "path", path)

			return "", nil
		}

		return "", fmt.Errorf("read transcript: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	kept := lines[:0]

	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}

	return strings.Join(kept, "\n"), nil
}
