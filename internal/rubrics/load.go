package rubrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalidRubric is returned when a rubric entry has neither or both shape indicators, or malformed fields.
var ErrInvalidRubric = errors.New("rubrics: invalid rubric entry")

// Shape indicator fields of a rubric document entry.
const (
	fieldLevels   = "levels"
	fieldCriteria = "criteria"
)

// LoadFile reads a rubric document from path. A missing file yields an empty table.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewTable(nil), nil
		}

		return nil, fmt.Errorf("open rubrics: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses a JSON object keyed by question id. Each entry is either
//
//	{"criterion": "...", "levels": {"<label>": "<text>", ...}}
//
// or
//
//	{"title": "...", "criteria": [{"name": "...", "<label>": "<text>", ...}, ...]}
//
// Level order follows the document.
func Load(r io.Reader) (*Table, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rubrics: %w", err)
	}

	entries := make(map[string]Rubric, len(doc))

	for qid, raw := range doc {
		rubric, err := parseEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", qid, err)
		}

		entries[strings.TrimSpace(qid)] = rubric
	}

	return NewTable(entries), nil
}

func parseEntry(raw json.RawMessage) (Rubric, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Rubric{}, fmt.Errorf("%w: entry is not an object", ErrInvalidRubric)
	}

	levelsRaw, hasLevels := fields[fieldLevels]
	criteriaRaw, hasCriteria := fields[fieldCriteria]

	switch {
	case hasLevels && hasCriteria:
		return Rubric{}, fmt.Errorf("%w: both %q and %q present", ErrInvalidRubric, fieldLevels, fieldCriteria)
	case hasLevels:
		levels, err := orderedLevels(levelsRaw)
		if err != nil {
			return Rubric{}, err
		}

		criterion, err := optionalString(fields, "criterion")
		if err != nil {
			return Rubric{}, err
		}

		return NewLeveled(Leveled{Criterion: criterion, Levels: levels}), nil
	case hasCriteria:
		return parseMultiCriterion(fields, criteriaRaw)
	default:
		return Rubric{}, fmt.Errorf("%w: neither %q nor %q present", ErrInvalidRubric, fieldLevels, fieldCriteria)
	}
}

func parseMultiCriterion(fields map[string]json.RawMessage, criteriaRaw json.RawMessage) (Rubric, error) {
	title, err := optionalString(fields, "title")
	if err != nil {
		return Rubric{}, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(criteriaRaw, &rows); err != nil {
		return Rubric{}, fmt.Errorf("%w: %q must be an array", ErrInvalidRubric, fieldCriteria)
	}

	criteria := make([]Criterion, 0, len(rows))

	for i, row := range rows {
		levels, err := orderedLevels(row)
		if err != nil {
			return Rubric{}, fmt.Errorf("criterion %d: %w", i, err)
		}

		var c Criterion

		for _, l := range levels {
			if l.Label == "name" {
				c.Name = l.Description

				continue
			}

			c.Levels = append(c.Levels, l)
		}

		criteria = append(criteria, c)
	}

	return NewMultiCriterion(MultiCriterion{Title: title, Criteria: criteria}), nil
}

// orderedLevels reads a JSON object of string values preserving key order.
func orderedLevels(raw json.RawMessage) ([]Level, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRubric, err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidRubric)
	}

	var levels []Level

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRubric, err)
		}

		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRubric, err)
		}

		var text string

		switch v := value.(type) {
		case string:
			text = v
		case nil:
		default:
			return nil, fmt.Errorf("%w: value of %q must be text", ErrInvalidRubric, key)
		}

		levels = append(levels, Level{Label: strings.TrimSpace(key), Description: strings.TrimSpace(text)})
	}

	return levels, nil
}

func optionalString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", nil
	}

	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %q must be text", ErrInvalidRubric, name)
	}

	if s == nil {
		return "", nil
	}

	return strings.TrimSpace(*s), nil
}
