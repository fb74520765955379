package prompts

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/rubrics"
)

// MaxChunks is the number of ranked passages rendered into a prompt; the rest are dropped.
const MaxChunks = 4

// ErrStrategyMismatch is returned when the leveled template is requested without a leveled rubric.
var ErrStrategyMismatch = errors.New("prompts: leveled-rubric strategy requires a leveled rubric")

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Input carries everything a template may render. Chunks must be ordered closest first.
type Input struct {
	Question       string
	Answer         string
	ExpectedAnswer string
	Rubric         rubrics.Rubric
	Chunks         []models.RetrievedChunk
	Transcript     string
}

// Builder renders prompts from the embedded templates. Safe for concurrent use.
type Builder struct {
	generic *template.Template
	leveled *template.Template
	labels  []string
}

type templateData struct {
	Question       string
	Answer         string
	ExpectedAnswer string
	Transcript     string
	Chunks         []models.RetrievedChunk
	RubricText     string
	LevelChoices   string
	Criterion      string
	Levels         []rubrics.Level
}

// NewBuilder parses the templates. labels are the achievement labels the generic prompt asks the
// model to choose from.
func NewBuilder(labels []string) (*Builder, error) {
	generic, err := template.ParseFS(templatesFS, "templates/generic.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse generic template: %w", err)
	}

	leveled, err := template.ParseFS(templatesFS, "templates/leveled.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse leveled template: %w", err)
	}

	return &Builder{generic: generic, leveled: leveled, labels: append([]string(nil), labels...)}, nil
}

// Build renders the template for strategy. It is a pure function of its inputs.
func (b *Builder) Build(strategy Strategy, in Input) (string, error) {
	chunks := in.Chunks
	if len(chunks) > MaxChunks {
		chunks = chunks[:MaxChunks]
	}

	data := templateData{
		Question:       strings.TrimSpace(in.Question),
		Answer:         strings.TrimSpace(in.Answer),
		ExpectedAnswer: strings.TrimSpace(in.ExpectedAnswer),
		Transcript:     strings.TrimSpace(in.Transcript),
		Chunks:         chunks,
		LevelChoices:   joinChoices(b.labels),
	}

	var tmpl *template.Template

	switch strategy {
	case StrategyLeveledRubric:
		leveled, ok := in.Rubric.Leveled()
		if !ok {
			return "", ErrStrategyMismatch
		}

		data.Criterion = leveled.Criterion
		data.Levels = leveled.Levels
		tmpl = b.leveled
	case StrategyGeneric:
		data.RubricText = rubrics.Text(in.Rubric, b.labels)
		tmpl = b.generic
	default:
		return "", fmt.Errorf("prompts: unknown strategy %d", strategy)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", strategy, err)
	}

	return sb.String(), nil
}

// joinChoices renders labels as "a, b, c o d".
func joinChoices(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " o " + labels[len(labels)-1]
	}
}
