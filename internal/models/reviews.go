package models

import "time"

// ReviewItem is the evaluation of one response inside an attempt. Error is set, and Evaluation is
// nil, when this response could not be evaluated.
type ReviewItem struct {
	QuestionID string            `json:"question_id"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`
	Source     EvaluationSource  `json:"source,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ReviewAttempt groups the items of one attempt. Attempt numbers start at 1 in submission order.
type ReviewAttempt struct {
	Attempt     int          `json:"attempt"`
	AttemptID   int64        `json:"attempt_id"`
	RespondedAt time.Time    `json:"responded_at"`
	Items       []ReviewItem `json:"items"`
}

// Review is every evaluated attempt of one learner in one feedback activity.
type Review struct {
	CourseID   string          `json:"course_id"`
	FeedbackID string          `json:"feedback_id"`
	LearnerID  string          `json:"learner_id"`
	Attempts   []ReviewAttempt `json:"attempts"`
}
