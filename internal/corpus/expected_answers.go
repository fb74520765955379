package corpus

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/validation"
)

// Column names accepted for each expected-answer field, first match wins.
var (
	questionIDColumns   = []string{"pregunta_id", "preguntaid", "id", "question_id"}
	questionColumns     = []string{"pregunta", "question"}
	expectedTextColumns = []string{"expected_text", "respuesta_esperada"}
)

// LoadExpectedAnswersFile reads the expected-answers CSV at path. A missing file yields no answers.
func LoadExpectedAnswersFile(path string) ([]models.ExpectedAnswer, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("open expected answers: %w", err)
	}
	defer f.Close()

	return LoadExpectedAnswers(f)
}

// LoadExpectedAnswers parses a CSV with a header row. The delimiter is ';' when the header contains
// one and ',' otherwise. Rows with a blank question id are skipped; a repeated id replaces the
// earlier row.
func LoadExpectedAnswers(r io.Reader) ([]models.ExpectedAnswer, error) {
	br := bufio.NewReader(r)

	header, err := br.Peek(headerPeekSize(br))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read expected answers header: %w", err)
	}

	firstLine, _, _ := strings.Cut(string(header), "\n")

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if strings.Contains(firstLine, ";") {
		reader.Comma = ';'
	}

	columns, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("read expected answers header: %w", err)
	}

	index := columnIndex(columns)
	idCol := lookupColumn(index, questionIDColumns)

	if idCol < 0 {
		return nil, fmt.Errorf("expected answers: no question id column (want one of %s)",
			strings.Join(questionIDColumns, ", "))
	}

	questionCol := lookupColumn(index, questionColumns)
	expectedCol := lookupColumn(index, expectedTextColumns)

	var (
		out  []models.ExpectedAnswer
		seen = make(map[string]int)
	)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("expected answers line %d: %w", line, err)
		}

		answer := models.ExpectedAnswer{
			QuestionID:   field(record, idCol),
			Question:     field(record, questionCol),
			ExpectedText: field(record, expectedCol),
		}

		if answer.QuestionID == "" {
			continue
		}

		if err := validation.ValidateStruct(&answer); err != nil {
			return nil, fmt.Errorf("expected answers line %d: %w", line, err)
		}

		if i, ok := seen[answer.QuestionID]; ok {
			out[i] = answer

			continue
		}

		seen[answer.QuestionID] = len(out)
		out = append(out, answer)
	}

	return out, nil
}

func headerPeekSize(br *bufio.Reader) int {
	const limit = 2000

	if br.Size() < limit {
		return br.Size()
	}

	return limit
}

func columnIndex(columns []string) map[string]int {
	index := make(map[string]int, len(columns))

	for i, c := range columns {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	return index
}

func lookupColumn(index map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := index[n]; ok {
			return i
		}
	}

	return -1
}

func field(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[col])
}
