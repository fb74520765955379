// Package rubrics resolves per-question grading rubrics. A rubric is exactly one of three states:
// none, leveled (one criterion with ordered level descriptions) or multi-criterion.
package rubrics

// Kind is the rubric state for a question.
type Kind int

// Rubric kinds.
const (
	KindNone Kind = iota
	KindLeveled
	KindMultiCriterion
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLeveled:
		return "leveled"
	case KindMultiCriterion:
		return "multi_criterion"
	default:
		return "unknown"
	}
}

// Level is one label with its descriptive text.
type Level struct {
	Label       string
	Description string
}

// Leveled is a single criterion described across ordered levels.
type Leveled struct {
	Criterion string
	Levels    []Level
}

// Criterion is one row of a multi-criterion rubric; Levels keeps document order.
type Criterion struct {
	Name   string
	Levels []Level
}

// Description returns the text for label and whether the criterion describes it.
func (c Criterion) Description(label string) (string, bool) {
	for _, l := range c.Levels {
		if l.Label == label {
			return l.Description, true
		}
	}

	return "", false
}

// MultiCriterion is a titled list of criteria, each described per achievement level.
type MultiCriterion struct {
	Title    string
	Criteria []Criterion
}

// Rubric holds exactly one variant. The zero value is the no-rubric state.
type Rubric struct {
	kind  Kind
	level *Leveled
	multi *MultiCriterion
}

// NewLeveled wraps l as a Rubric.
func NewLeveled(l Leveled) Rubric {
	return Rubric{kind: KindLeveled, level: &l}
}

// NewMultiCriterion wraps m as a Rubric.
func NewMultiCriterion(m MultiCriterion) Rubric {
	return Rubric{kind: KindMultiCriterion, multi: &m}
}

// Kind reports which variant r holds.
func (r Rubric) Kind() Kind {
	return r.kind
}

// Leveled returns the leveled variant when r holds one.
func (r Rubric) Leveled() (Leveled, bool) {
	if r.kind != KindLeveled || r.level == nil {
		return Leveled{}, false
	}

	return *r.level, true
}

// MultiCriterion returns the multi-criterion variant when r holds one.
func (r Rubric) MultiCriterion() (MultiCriterion, bool) {
	if r.kind != KindMultiCriterion || r.multi == nil {
		return MultiCriterion{}, false
	}

	return *r.multi, true
}

// Table maps question ids to rubrics. It is immutable after construction and safe for concurrent reads.
type Table struct {
	entries map[string]Rubric
}

// NewTable copies entries into a Table.
func NewTable(entries map[string]Rubric) *Table {
	m := make(map[string]Rubric, len(entries))
	for k, v := range entries {
		m[k] = v
	}

	return &Table{entries: m}
}

// Resolve returns the rubric for questionID, or the no-rubric state when absent.
func (t *Table) Resolve(questionID string) Rubric {
	if t == nil {
		return Rubric{}
	}

	return t.entries[questionID]
}

// Len returns the number of questions with a rubric.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.entries)
}
