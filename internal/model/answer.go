package model

import (
	"strconv"
	"strings"
	"time"
)

// AnswerValue is the typed answer payload. Exactly the fields matching the
// owning question's type are set; the validator populates it from raw input.
type AnswerValue struct {
	Bool    *bool    `json:"bool,omitempty" bson:"bool,omitempty"`       // yes_no
	Number  *float64 `json:"number,omitempty" bson:"number,omitempty"`   // number
	Scale   *int     `json:"scale,omitempty" bson:"scale,omitempty"`     // scale 1-5
	Text    string   `json:"text,omitempty" bson:"text,omitempty"`       // text
	Date    string   `json:"date,omitempty" bson:"date,omitempty"`       // date, ISO-8601
	Option  string   `json:"option,omitempty" bson:"option,omitempty"`   // multiple_choice
	Options []string `json:"options,omitempty" bson:"options,omitempty"` // multi_select
}

// IsAffirmative reports whether the value is a boolean-like "yes"
func (v AnswerValue) IsAffirmative() bool {
	return v.Bool != nil && *v.Bool
}

// IsNegativeLike reports whether the value is a negative or zero-like answer:
// boolean "no" or a numeric zero. Used for the critical-gap trigger.
func (v AnswerValue) IsNegativeLike() bool {
	if v.Bool != nil {
		return !*v.Bool
	}
	if v.Number != nil {
		return *v.Number == 0
	}
	return false
}

// TriggerKey renders the value as a follow-up trigger key fragment.
// Booleans are coerced to "yes"/"no"; everything else compares by its
// string form, case-sensitively.
func (v AnswerValue) TriggerKey() string {
	switch {
	case v.Bool != nil:
		if *v.Bool {
			return "yes"
		}
		return "no"
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Scale != nil:
		return strconv.Itoa(*v.Scale)
	case v.Date != "":
		return v.Date
	case v.Option != "":
		return v.Option
	case v.Options != nil:
		return strings.Join(v.Options, ",")
	default:
		return v.Text
	}
}

// Display renders the value for statements and terminal output
func (v AnswerValue) Display() string {
	switch {
	case v.Bool != nil:
		if *v.Bool {
			return "Yes"
		}
		return "No"
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Scale != nil:
		return strconv.Itoa(*v.Scale)
	case v.Date != "":
		return v.Date
	case v.Option != "":
		return v.Option
	case v.Options != nil:
		return strings.Join(v.Options, ", ")
	default:
		return v.Text
	}
}

// AIClarification is one LLM-generated deep-dive exchange attached to an answer
type AIClarification struct {
	Question string `json:"question" bson:"question"`
	Purpose  string `json:"purpose,omitempty" bson:"purpose,omitempty"`
	Answer   string `json:"answer,omitempty" bson:"answer,omitempty"`
}

// InterviewAnswer is a recorded answer, owned by exactly one session
type InterviewAnswer struct {
	QuestionID       string            `json:"questionId" bson:"questionId"`
	Value            AnswerValue       `json:"value" bson:"value"`
	Timestamp        time.Time         `json:"timestamp" bson:"timestamp"`
	Confidence       *float64          `json:"confidence,omitempty" bson:"confidence,omitempty"` // 0-1
	Notes            string            `json:"notes,omitempty" bson:"notes,omitempty"`
	EvidenceFiles    []string          `json:"evidenceFiles,omitempty" bson:"evidenceFiles,omitempty"`
	AIClarifications []AIClarification `json:"aiClarifications,omitempty" bson:"aiClarifications,omitempty"`
	NeedsAIFollowUp  bool              `json:"needsAiFollowup" bson:"needsAiFollowup"`
}

// Validation error kinds returned by answer validation and submission
const (
	ErrTypeError     = "type_error"
	ErrRangeError    = "range_error"
	ErrInvalidOption = "invalid_option"
	ErrFormatError   = "format_error"
	ErrSessionError  = "session_error"
	ErrQuestionError = "question_error"
)

// ValidationError describes why an answer was rejected. It is returned as a
// value, not raised: a rejected submission leaves the session untouched.
type ValidationError struct {
	QuestionID     string `json:"questionId"`
	ErrorType      string `json:"errorType"`
	Message        string `json:"message"`
	ExpectedFormat string `json:"expectedFormat,omitempty"`
}

// Submission statuses
const (
	SubmissionAccepted        = "accepted"
	SubmissionValidationError = "validation_error"
	SubmissionSessionComplete = "session_complete"
)

// SubmitAnswerRequest carries one answer submission. Answer is the raw value
// as decoded from JSON; the validator types it against the question.
type SubmitAnswerRequest struct {
	QuestionID    string      `json:"questionId"`
	Answer        interface{} `json:"answer"`
	Confidence    *float64    `json:"confidence,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	EvidenceFiles []string    `json:"evidenceFiles,omitempty"`
}

// SubmitAnswerResponse reports the outcome of a submission
type SubmitAnswerResponse struct {
	Status              string              `json:"status"`
	Progress            float64             `json:"progress"`
	NextQuestion        *ComplianceQuestion `json:"nextQuestion,omitempty"`
	ValidationError     *ValidationError    `json:"validationError,omitempty"`
	SessionComplete     bool                `json:"sessionComplete"`
	CategoriesRemaining []string            `json:"categoriesRemaining,omitempty"`
	NeedsAIFollowUp     bool                `json:"needsAiFollowup"`
}
