package models

// ExpectedAnswer is the reference answer for one question, loaded once at startup.
type ExpectedAnswer struct {
	QuestionID   string `json:"question_id" validate:"required,no_null_bytes"`
	Question     string `json:"question"`
	ExpectedText string `json:"expected_text"`
}
