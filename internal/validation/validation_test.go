package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
)

func TestValidateStruct(t *testing.T) {
	t.Run("valid key passes", func(t *testing.T) {
		key := models.EvaluationKey{CourseID: "c1", FeedbackID: "f1", LearnerID: "u1", QuestionID: "q1"}

		assert.NoError(t, ValidateStruct(key))
	})

	t.Run("missing fields are reported as ValidationError", func(t *testing.T) {
		err := ValidateStruct(models.EvaluationKey{CourseID: "c1"})

		require.Error(t, err)
		assert.ErrorIs(t, err, evalerrors.ErrValidation)
		assert.Contains(t, err.Error(), "feedback_id is required")
		assert.Contains(t, err.Error(), "question_id is required")
	})

	t.Run("passage page and chunk id are checked", func(t *testing.T) {
		err := ValidateStruct(models.CreateReferencePassageRequest{Source: "a.txt", Page: 0, Content: "x"})

		require.Error(t, err)

		var validationErr *evalerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Field, "chunk_id")
		assert.Contains(t, validationErr.Field, "page")
	})

	t.Run("null bytes are rejected", func(t *testing.T) {
		err := ValidateStruct(models.ExpectedAnswer{QuestionID: "q\x001"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not contain NULL bytes")
	})

	t.Run("unknown tags name the rule", func(t *testing.T) {
		type probe struct {
			Email string `json:"email" validate:"email"`
		}

		err := ValidateStruct(probe{Email: "nope"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), `email failed "email"`)
	})
}
