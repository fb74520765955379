package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/evalhub/internal/config"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/rubrics"
)

const reservedID = "68264"

var (
	leveledRubric = rubrics.NewLeveled(rubrics.Leveled{
		Criterion: "Nivel de reflexión",
		Levels: []rubrics.Level{
			{Label: "Pre-reflexivo", Description: "Describe sin analizar."},
			{Label: "Crítico", Description: "Cuestiona supuestos."},
		},
	})
	multiRubric = rubrics.NewMultiCriterion(rubrics.MultiCriterion{
		Title:    "Rúbrica",
		Criteria: []rubrics.Criterion{{Name: "Coherencia", Levels: []rubrics.Level{{Label: "Destacado", Description: "Plena"}}}},
	})
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		questionID string
		rubric     rubrics.Rubric
		expected   Strategy
	}{
		{"reserved id with leveled rubric", reservedID, leveledRubric, StrategyLeveledRubric},
		{"reserved id with multi-criterion rubric", reservedID, multiRubric, StrategyGeneric},
		{"reserved id without rubric", reservedID, rubrics.Rubric{}, StrategyGeneric},
		{"other id with leveled rubric", "70001", leveledRubric, StrategyGeneric},
		{"other id with multi-criterion rubric", "70001", multiRubric, StrategyGeneric},
		{"other id without rubric", "70001", rubrics.Rubric{}, StrategyGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Select(tt.questionID, tt.rubric, reservedID))
		})
	}

	assert.Equal(t, StrategyGeneric, Select("", leveledRubric, ""))
}

func chunks(n int) []models.RetrievedChunk {
	out := make([]models.RetrievedChunk, n)
	for i := range out {
		out[i] = models.RetrievedChunk{
			Source:   "fasciculo.txt",
			Page:     i + 1,
			Snippet:  fmt.Sprintf("fragmento-%d", i),
			Distance: float64(i) / 10,
		}
	}

	return out
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()

	b, err := NewBuilder(config.DefaultLevelLabels)
	require.NoError(t, err)

	return b
}

func TestBuild_keepsFirstFourChunks(t *testing.T) {
	b := newBuilder(t)

	for _, strategy := range []Strategy{StrategyGeneric, StrategyLeveledRubric} {
		prompt, err := b.Build(strategy, Input{
			Question: "¿Qué es la evaluación formativa?",
			Answer:   "Es evaluar para aprender.",
			Rubric:   leveledRubric,
			Chunks:   chunks(7),
		})
		require.NoError(t, err)

		for i := 0; i < 4; i++ {
			assert.Contains(t, prompt, fmt.Sprintf("fragmento-%d", i), strategy.String())
		}

		for i := 4; i < 7; i++ {
			assert.NotContains(t, prompt, fmt.Sprintf("fragmento-%d", i), strategy.String())
		}

		assert.Less(t, strings.Index(prompt, "fragmento-0"), strings.Index(prompt, "fragmento-3"))
	}
}

func TestBuild_generic(t *testing.T) {
	b := newBuilder(t)

	prompt, err := b.Build(StrategyGeneric, Input{
		Question:       "Pregunta",
		Answer:         "Respuesta",
		ExpectedAnswer: "Esperada",
		Rubric:         multiRubric,
		Chunks:         chunks(1),
		Transcript:     "Texto del video",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "[fasciculo.txt - pág 1] fragmento-0")
	assert.Contains(t, prompt, "TRANSCRIPCIÓN DEL VIDEO:\nTexto del video")
	assert.Contains(t, prompt, "RESPUESTA ESPERADA:\nEsperada")
	assert.Contains(t, prompt, "Criterio: Coherencia\n- Destacado: Plena")
	assert.Contains(t, prompt, "Insuficiente, En proceso, Satisfactorio o Destacado")
	assert.NotContains(t, prompt, "{")
	assert.NotContains(t, prompt, "}")
}

func TestBuild_noTranscriptNoChunks(t *testing.T) {
	prompt, err := newBuilder(t).Build(StrategyGeneric, Input{Question: "P", Answer: "R"})
	require.NoError(t, err)
	assert.NotContains(t, prompt, "TRANSCRIPCIÓN")
	assert.Contains(t, prompt, "RÚBRICA:")
}

func TestBuild_leveled(t *testing.T) {
	b := newBuilder(t)

	prompt, err := b.Build(StrategyLeveledRubric, Input{Question: "P", Answer: "R", Rubric: leveledRubric})
	require.NoError(t, err)
	assert.Contains(t, prompt, "RÚBRICA DE NIVELES (Nivel de reflexión):")
	assert.Contains(t, prompt, "- Pre-reflexivo:\nDescribe sin analizar.")
	assert.Less(t, strings.Index(prompt, "Pre-reflexivo"), strings.Index(prompt, "Crítico"))

	_, err = b.Build(StrategyLeveledRubric, Input{Rubric: multiRubric})
	require.ErrorIs(t, err, ErrStrategyMismatch)
}

func TestBuild_deterministic(t *testing.T) {
	b := newBuilder(t)
	in := Input{Question: "P", Answer: "R", Rubric: multiRubric, Chunks: chunks(5)}

	first, err := b.Build(StrategyGeneric, in)
	require.NoError(t, err)
	second, err := b.Build(StrategyGeneric, in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
