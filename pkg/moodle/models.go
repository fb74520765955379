package moodle

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ResponsesAnalysis is the mod_feedback_get_responses_analysis payload.
type ResponsesAnalysis struct {
	Attempts      []Attempt `json:"attempts"`
	TotalAttempts int       `json:"totalattempts"`
	Warnings      []Warning `json:"warnings,omitempty"`
}

// Attempt is one completed submission of a feedback activity.
type Attempt struct {
	ID           int64      `json:"id"`
	CourseID     int64      `json:"courseid"`
	UserID       int64      `json:"userid"`
	TimeModified int64      `json:"timemodified"`
	FullName     string     `json:"fullname"`
	Responses    []Response `json:"responses"`
}

// Response is the learner's answer to one item.
type Response struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	PrintVal string    `json:"printval"`
	RawVal   FlexValue `json:"rawval"`
}

// ItemsResponse is the mod_feedback_get_items payload.
type ItemsResponse struct {
	Items    []Item    `json:"items"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Item is one question of a feedback activity.
type Item struct {
	ID         int64  `json:"id"`
	FeedbackID int64  `json:"feedback"`
	Name       string `json:"name"`
	Label      string `json:"label"`
	Typ        string `json:"typ"`
	Position   int    `json:"position"`
}

// Warning is a non-fatal web service warning.
type Warning struct {
	Item        string `json:"item,omitempty"`
	ItemID      int64  `json:"itemid,omitempty"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

// exceptionResponse is returned with HTTP 200 when a web service call fails.
type exceptionResponse struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

// FlexValue decodes a JSON string, number or null into a string.
type FlexValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*v = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*v = FlexValue(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	if i, err := n.Int64(); err == nil {
		*v = FlexValue(strconv.FormatInt(i, 10))

		return nil
	}

	*v = FlexValue(n.String())

	return nil
}

// String returns the decoded value.
func (v FlexValue) String() string {
	return string(v)
}
